package cache

import "unicode"

// validName reports whether s is acceptable as a cache key or as a file
// name within an entry: non-empty, first rune alphanumeric, remaining
// runes alphanumeric or '.'. Rejecting a leading '.' keeps dotted names
// (the lock file, the staging area) reserved for the cache itself and
// rules out path traversal.
func validName(s string) bool {
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if i > 0 && r == '.' {
			continue
		}
		return false
	}
	return s != ""
}
