package httpx

import (
	"net/http"
	"strings"
)

// Bearer extracts a bearer token from the Authorization header, empty when
// absent or malformed.
func Bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
