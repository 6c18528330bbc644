// Package tokenhash derives the at-rest key of an opaque token, so a leaked
// table or cache never contains a usable credential.
package tokenhash

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Sum returns the hex encoded BLAKE3-256 digest of token.
func Sum(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
