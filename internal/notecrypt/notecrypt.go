// Package notecrypt classifies historical note content as plaintext or
// ciphertext and opportunistically decrypts ciphertext with the locally stored
// symmetric key. The legacy app encrypted note bodies client-side; some users
// never enabled encryption, so both forms coexist in the same column.
package notecrypt

// UnableToDecrypt is the sentinel written in place of ciphertext that could
// not be decrypted. It is never silently dropped and never aborts a phase.
const UnableToDecrypt = "[UNABLE_TO_DECRYPT]"

// Processed is the outcome of preparing one note body for migration.
type Processed struct {
	Message      string
	WasEncrypted bool
	DecryptionOK bool
	Original     string
}

// Processor applies the classifier and decryption strategies to note bodies.
// A Processor with an empty key still classifies; decryption simply fails and
// falls back to the sentinel.
type Processor struct {
	Classifier Classifier
	key        string
}

// NewProcessor builds a Processor around the given symmetric key, which may be
// empty when no key is stored locally.
func NewProcessor(key string) *Processor {
	return &Processor{Classifier: DefaultClassifier(), key: key}
}

// HasKey reports whether a decryption key is available.
func (p *Processor) HasKey() bool { return p.key != "" }

// ProcessNote returns the cleartext-or-sentinel form of message. Plaintext
// passes through unchanged; ciphertext is decrypted when possible and replaced
// with the UnableToDecrypt sentinel otherwise.
func (p *Processor) ProcessNote(message string) Processed {
	if !p.Classifier.IsEncrypted(message) {
		return Processed{Message: message, WasEncrypted: false, DecryptionOK: true, Original: message}
	}

	if plaintext, ok := Decrypt(message, p.key); ok {
		return Processed{Message: plaintext, WasEncrypted: true, DecryptionOK: true, Original: message}
	}
	return Processed{Message: UnableToDecrypt, WasEncrypted: true, DecryptionOK: false, Original: message}
}

// DecryptionStats aggregates outcomes across a set of processed notes.
type DecryptionStats struct {
	Total       int
	Encrypted   int
	Decrypted   int
	Failed      int
	SuccessRate float64
}

// Stats summarises decryption outcomes for operator reporting.
func Stats(processed []Processed) DecryptionStats {
	stats := DecryptionStats{Total: len(processed), SuccessRate: 100}
	for _, p := range processed {
		if !p.WasEncrypted {
			continue
		}
		stats.Encrypted++
		if p.DecryptionOK {
			stats.Decrypted++
		}
	}
	stats.Failed = stats.Encrypted - stats.Decrypted
	if stats.Encrypted > 0 {
		stats.SuccessRate = float64(stats.Decrypted) / float64(stats.Encrypted) * 100
	}
	return stats
}
