package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// BuildKey turns a normalized query into the final string used in Redis.
// Queries contain spaces, parentheses and operators, so the query itself
// is hashed rather than embedded.
//
// counts:<PREFIX>:q:<HASH_HEX>
func BuildKey(prefix, query string) string {
	sum := sha256.Sum256([]byte(query))
	hash := hex.EncodeToString(sum[:])
	if prefix == "" {
		return fmt.Sprintf("counts:q:%s", hash)
	}
	return fmt.Sprintf("counts:%s:q:%s", prefix, hash)
}
