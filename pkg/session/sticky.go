// Package session pins fetches to one egress identity.
//
// A sticky session reuses its session id on every call and every retry, so
// the gateway keeps routing through the same exit node for as long as it can.
// Rotation is suppressed even after failures: IP persistence is traded for
// the resilience a fresh identity would give.
package session

import (
	"context"
	"net/url"

	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/fetch"
	"egress-dispatcher/pkg/proxy"
)

// Sticky is a fetcher bound to one session id
type Sticky struct {
	fetcher dispatch.Fetcher
	id      string
	country string
	city    string
}

var _ dispatch.Fetcher = (*Sticky)(nil)

// New opens a sticky session with a freshly generated id
func New(f dispatch.Fetcher, country, city string) *Sticky {
	return WithID(f, dispatch.NewSessionID(), country, city)
}

// WithID opens a sticky session pinned to an existing id
func WithID(f dispatch.Fetcher, id, country, city string) *Sticky {
	return &Sticky{
		fetcher: f,
		id:      id,
		country: country,
		city:    city,
	}
}

func (s *Sticky) ID() string      { return s.id }
func (s *Sticky) Country() string { return s.country }
func (s *Sticky) City() string    { return s.city }

// Fetch runs a call through the pinned session. Country and city default to
// the values the session was opened with.
func (s *Sticky) Fetch(ctx context.Context, url string, req dispatch.Request) (*fetch.Result, error) {
	req.Session = s.id
	if req.Country == "" {
		req.Country = s.country
	}
	if req.City == "" {
		req.City = s.city
	}
	return s.fetcher.Fetch(ctx, url, req)
}

// Proxy returns the pinned proxy URL for use by other HTTP clients
func (s *Sticky) Proxy(ep proxy.Endpoint, apiKey string) (*url.URL, error) {
	cred, err := proxy.Encode(proxy.Identity{
		APIKey:  apiKey,
		Country: s.country,
		City:    s.city,
		Session: s.id,
	})
	if err != nil {
		return nil, err
	}
	return ep.URL(cred), nil
}
