package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashOwnerKey returns a filesystem-safe identifier for an owner such as a lead CRM id.
// Surrounding whitespace and letter case do not change the result.
func HashOwnerKey(s string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(s))))
	return hex.EncodeToString(sum[:])
}
