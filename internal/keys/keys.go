// Package keys derives the storage keys a logical resource occupies.
package keys

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	suffixETag         = ":etag"
	suffixLastModified = ":last_modified"
	suffixFresh        = ":fresh"
	suffixStale        = ":stale"
	suffixLock         = ":lock"
	localPrefix        = "local:"
)

// Namespaced isolates key under ns. An empty ns leaves key untouched.
func Namespaced(ns, key string) string {
	if ns == "" {
		return key
	}
	return ns + ":" + key
}

func Local(key string) string        { return localPrefix + key }
func ETag(key string) string         { return key + suffixETag }
func LastModified(key string) string { return key + suffixLastModified }
func Fresh(key string) string        { return key + suffixFresh }
func Stale(key string) string        { return key + suffixStale }
func Lock(key string) string         { return key + suffixLock }

// Batch is the storage key of one item of a batch sharing prefix.
func Batch(prefix, item string) string { return prefix + ":" + item }

var tokenFallback atomic.Uint64

// Token returns a random lock-owner token.
func Token() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is exceptional; uniqueness within the process still holds.
		n := tokenFallback.Add(1)
		return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 36)
	}
	return hex.EncodeToString(b[:])
}
