package migration

import (
	"context"
	"log"
)

// record pairs a source ID with the payload to insert, so returned target IDs
// can be zipped back onto the mapping table positionally.
type record[T any] struct {
	sourceID string
	data     T
}

// inserter is the batch-capable write contract every entity store provides.
// The per-item fallback is the migrator's responsibility, not the store's.
type inserter[T any] interface {
	InsertMany(ctx context.Context, items []T) ([]string, error)
	InsertOne(ctx context.Context, item T) (string, error)
}

// migrateBatches inserts records in chunks of batchSize. A successful bulk
// insert zips the returned IDs with the chunk. A bulk failure retries that
// chunk record by record; each individual failure is logged and that one
// record skipped, without aborting the rest of the chunk or later chunks.
// onMigrated fires once per successfully written record. Returns the number of
// records migrated.
func migrateBatches[T any](
	ctx context.Context,
	items []record[T],
	ins inserter[T],
	batchSize int,
	logger *log.Logger,
	onMigrated func(sourceID, targetID string),
) int {
	migrated := 0
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		payload := make([]T, len(chunk))
		for i, rec := range chunk {
			payload[i] = rec.data
		}

		targetIDs, err := ins.InsertMany(ctx, payload)
		if err == nil {
			for i := 0; i < len(chunk) && i < len(targetIDs); i++ {
				onMigrated(chunk[i].sourceID, targetIDs[i])
				migrated++
			}
			continue
		}

		logger.Printf("batch insert failed (%d records), falling back to individual inserts: %v", len(chunk), err)
		for _, rec := range chunk {
			targetID, itemErr := ins.InsertOne(ctx, rec.data)
			if itemErr != nil {
				logger.Printf("individual insert failed for source %s: %v", rec.sourceID, itemErr)
				continue
			}
			onMigrated(rec.sourceID, targetID)
			migrated++
		}
	}
	return migrated
}
