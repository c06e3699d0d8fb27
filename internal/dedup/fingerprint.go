package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// fingerprintInputLimit bounds how much body text feeds the digest. Long
// articles differ in their first 5000 characters or are the same article.
const fingerprintInputLimit = 5000

// Fingerprint derives a 32-hex-character dedup key from extracted article
// text. Case and whitespace variations of the same body collide on purpose:
// two extractions of one article should map to one key.
func Fingerprint(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if runes := []rune(normalized); len(runes) > fingerprintInputLimit {
		normalized = string(runes[:fingerprintInputLimit])
	}

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:32]
}
