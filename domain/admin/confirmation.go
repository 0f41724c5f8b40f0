package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/spiralwrks/spiralworks.ai/pkg/constants"
)

// ConfirmationCode derives the clear-all challenge for one administrator on
// one UTC calendar day.
func ConfirmationCode(now time.Time, email string) string {
	input := now.UTC().Format(time.DateOnly) + "-" + email + "-clearwaitlist"
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:constants.ConfirmationCodeLength]
}

func confirmationMatches(provided, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
