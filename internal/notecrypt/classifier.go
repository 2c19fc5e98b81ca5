package notecrypt

import (
	"math"
	"regexp"
	"strings"
)

// opensslMarker is the base64 encoding of the "Salted__" prefix emitted by
// OpenSSL-style passphrase encryption (and by CryptoJS, which the legacy app used).
const opensslMarker = "U2FsdGVkX1"

var base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)

// Classifier decides whether a note body looks like ciphertext. The thresholds
// are heuristics tuned against the legacy data set; they are fields rather
// than constants so callers can adjust them.
type Classifier struct {
	// HighEntropy is the Shannon entropy (bits/char) above which a message is
	// treated as ciphertext unless it reads like prose.
	HighEntropy float64
	// ProseEntropy is the entropy below which letters-and-spaces content is
	// accepted as readable text.
	ProseEntropy float64
	// MinBase64Len is the minimum length for the strict-Base64 signal; short
	// Base64-looking strings are too often ordinary words.
	MinBase64Len int
}

// DefaultClassifier returns the thresholds the legacy migration shipped with.
func DefaultClassifier() Classifier {
	return Classifier{HighEntropy: 4.5, ProseEntropy: 4.0, MinBase64Len: 20}
}

// IsEncrypted reports whether message appears to be ciphertext. Any one signal
// is sufficient: a strict Base64-alphabet body above the length floor, the
// OpenSSL serialization marker, or high entropy without prose structure.
func (c Classifier) IsEncrypted(message string) bool {
	if message == "" {
		return false
	}

	// Whitespace disqualifies the Base64 signal outright: real ciphertext is
	// stored as one unbroken Base64 run, while prose almost always has spaces.
	base64Like := base64Pattern.MatchString(message)

	entropy := shannonEntropy(message)
	hasLetters := strings.ContainsFunc(message, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	})
	proseLike := hasLetters && strings.Contains(message, " ") && entropy < c.ProseEntropy

	switch {
	case base64Like && len(message) > c.MinBase64Len:
		return true
	case strings.HasPrefix(message, opensslMarker):
		return true
	case entropy > c.HighEntropy && !proseLike:
		return true
	}
	return false
}

// shannonEntropy computes per-character entropy in bits over runes.
func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
