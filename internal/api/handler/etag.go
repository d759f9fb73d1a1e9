package handler

import (
	"fmt"
	"net/http"
)

// GenerateETag generates an ETag for a snapshot from its key and change number.
// Format: "snapshot-<key>-<change_number>"
func GenerateETag(key string, changeNumber int) string {
	return fmt.Sprintf(`"snapshot-%s-%d"`, key, changeNumber)
}

// SetETagHeader sets the ETag header on the response.
func SetETagHeader(w http.ResponseWriter, key string, changeNumber int) {
	w.Header().Set("ETag", GenerateETag(key, changeNumber))
}

// CheckIfNoneMatch reports whether the If-None-Match header matches the
// current ETag, meaning the client copy is fresh.
func CheckIfNoneMatch(r *http.Request, key string, changeNumber int) bool {
	ifNoneMatch := r.Header.Get("If-None-Match")
	if ifNoneMatch == "" {
		return false
	}
	return ifNoneMatch == GenerateETag(key, changeNumber)
}
