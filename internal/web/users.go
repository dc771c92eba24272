package web

import (
	"net/http"
	"regexp"
	"strings"
)

// validUserID bounds what an identity header may carry.
var validUserID = regexp.MustCompile(`^[A-Za-z0-9_.@:-]{1,128}$`)

// UserResolver identifies the caller from a header set by the fronting
// identity provider.
type UserResolver struct {
	Header   string
	Fallback string
}

// Resolve returns the caller's user ID, or "" when none can be trusted.
func (u UserResolver) Resolve(r *http.Request) string {
	if u.Header != "" {
		if id := strings.TrimSpace(r.Header.Get(u.Header)); id != "" {
			if validUserID.MatchString(id) {
				return id
			}
			return ""
		}
	}
	return u.Fallback
}
