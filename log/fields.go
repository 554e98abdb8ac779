// Package log holds the shared plumbing of the fetchcache.Logger adapters.
package log

import (
	"sort"

	"github.com/unkn0wn-root/fetchcache"
)

// SortedKeys returns the field names in order so adapters emit fields
// deterministically.
func SortedKeys(f fetchcache.Fields) []string {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
