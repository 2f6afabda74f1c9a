// Package preset holds thin per-site wrappers. A preset only builds the
// target URL and waits on the shared cooldown for its site before handing
// the request to the dispatcher.
package preset

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"egress-dispatcher/pkg/dispatch"
	"egress-dispatcher/pkg/fetch"
	"egress-dispatcher/pkg/ratelimit"
)

// URLBuilder turns an endpoint argument and country into a target URL
type URLBuilder func(arg, country string) string

// Preset is one site bound to a fetcher
type Preset struct {
	name      string
	endpoints map[string]URLBuilder
	fetcher   dispatch.Fetcher
	limiter   *ratelimit.Limiter
}

// New builds a preset. The name is also its rate limit key.
func New(name string, endpoints map[string]URLBuilder, f dispatch.Fetcher, l *ratelimit.Limiter) *Preset {
	return &Preset{
		name:      name,
		endpoints: endpoints,
		fetcher:   f,
		limiter:   l,
	}
}

func newFactory(name string, endpoints map[string]URLBuilder) Factory {
	return func(f dispatch.Fetcher, l *ratelimit.Limiter) *Preset {
		return New(name, endpoints, f, l)
	}
}

func (p *Preset) Name() string { return p.name }

// Endpoints lists what the preset can fetch
func (p *Preset) Endpoints() []string {
	out := make([]string, 0, len(p.endpoints))
	for e := range p.endpoints {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// URL builds the target for an endpoint without fetching it
func (p *Preset) URL(endpoint, arg, country string) (string, error) {
	build, ok := p.endpoints[endpoint]
	if !ok {
		return "", fmt.Errorf("%s has no endpoint %q (have %s)", p.name, endpoint, strings.Join(p.Endpoints(), ", "))
	}
	if country == "" {
		country = "US"
	}
	return build(arg, strings.ToUpper(country)), nil
}

// Fetch waits for the site's cooldown and fetches the endpoint
func (p *Preset) Fetch(ctx context.Context, endpoint, arg, country string) (*fetch.Result, error) {
	target, err := p.URL(endpoint, arg, country)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx, p.name); err != nil {
		return nil, err
	}
	return p.fetcher.Fetch(ctx, target, dispatch.Request{Country: country})
}
