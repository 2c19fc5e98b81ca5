package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	migratedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migration_service",
		Subsystem: "pipeline",
		Name:      "migrated_records_total",
		Help:      "Records successfully written to the target store, by entity.",
	}, []string{"entity"})
	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migration_service",
		Subsystem: "pipeline",
		Name:      "skipped_records_total",
		Help:      "Source records skipped without migration, by entity and reason.",
	}, []string{"entity", "reason"})
	encryptedNotesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migration_service",
		Subsystem: "pipeline",
		Name:      "encrypted_notes_total",
		Help:      "Notes classified as ciphertext during migration, by decryption outcome.",
	}, []string{"outcome"})
	backfillErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migration_service",
		Subsystem: "pipeline",
		Name:      "backfill_errors_total",
		Help:      "Failed timeslice back-fill updates after successful inserts, by entity.",
	}, []string{"entity"})
)

func init() {
	prometheus.MustRegister(migratedCounter, skippedCounter, encryptedNotesCounter, backfillErrorCounter)
}

// RecordMigrated counts one successfully migrated record.
func RecordMigrated(entity string) {
	migratedCounter.WithLabelValues(entity).Inc()
}

// RecordSkipped counts one skipped source record.
func RecordSkipped(entity, reason string) {
	skippedCounter.WithLabelValues(entity, reason).Inc()
}

// RecordEncryptedNote counts one note classified as ciphertext.
func RecordEncryptedNote(decrypted bool) {
	outcome := "decrypted"
	if !decrypted {
		outcome = "failed"
	}
	encryptedNotesCounter.WithLabelValues(outcome).Inc()
}

// RecordBackfillError counts one failed parent-timeslice update.
func RecordBackfillError(entity string) {
	backfillErrorCounter.WithLabelValues(entity).Inc()
}
