package breach

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// fingerprint derives the content-addressed event ID from the condition's
// identifying fields. The hashing strategy is isolated here so it can change
// without touching call sites; SHA-256 truncated to 16 bytes keeps IDs short
// while leaving collisions out of practical reach.
func fingerprint(eventType string, asOf time.Time, breachLevel string, hardstopUtilization, ecr float64) string {
	input := fmt.Sprintf("%s|%s|%s|%.4f|%.4f",
		eventType,
		minuteBucket(asOf),
		breachLevel,
		hardstopUtilization,
		ecr,
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}

// minuteBucket truncates a timestamp to its minute in UTC, the dedup window
// for repeated evaluations of the same condition.
func minuteBucket(t time.Time) string {
	return t.UTC().Truncate(time.Minute).Format(time.RFC3339)
}
