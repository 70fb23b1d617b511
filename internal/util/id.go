package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed random identifier (usr_, org_, tpl_, doc_, rev_,
// rmv_) used as primary keys across the store.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewObjectKey returns a UUID-based object-storage key under the given
// organization prefix, keeping each org's assets in its own namespace.
func NewObjectKey(orgID, ext string) string {
	return orgID + "/" + uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
}
