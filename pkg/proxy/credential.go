package proxy

import (
	"errors"
	"strings"
)

// ErrMissingAPIKey is returned when an identity has no API key to encode
var ErrMissingAPIKey = errors.New("proxy: api key is required")

const separator = ":"

// Encode turns an identity into the proxy credential string.
//
// The API key comes first, followed by the optional targeting segments in a
// fixed order: country, city, session, render. Country and city are
// lower-cased; the session id is passed through untouched.
func Encode(id Identity) (string, error) {
	if id.APIKey == "" {
		return "", ErrMissingAPIKey
	}

	parts := []string{id.APIKey}
	if c := strings.TrimSpace(id.Country); c != "" {
		parts = append(parts, "country-"+strings.ToLower(c))
	}
	if c := strings.TrimSpace(id.City); c != "" {
		parts = append(parts, "city-"+strings.ToLower(c))
	}
	if id.Session != "" {
		parts = append(parts, "session-"+id.Session)
	}
	if id.Render {
		parts = append(parts, "render-1")
	}

	return strings.Join(parts, separator), nil
}

// WithSession returns a copy of the identity pinned to a new session id.
// The previous id is replaced, never kept alongside.
func (id Identity) WithSession(session string) Identity {
	id.Session = session
	return id
}
