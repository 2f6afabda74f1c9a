// Package fingerprint generates desktop Chrome request headers matched to the
// egress country.
package fingerprint

import (
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Generator builds header sets. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator returns a generator seeded from the clock
func NewGenerator() *Generator {
	return NewGeneratorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWithSource returns a generator drawing versions from src
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

func (g *Generator) version() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return chromeVersions[g.rnd.Intn(len(chromeVersions))]
}

// Generate returns a fresh header set for the country. A new Chrome version
// is drawn on every call so retries do not look like the same browser.
// An empty country is treated as US.
func (g *Generator) Generate(country string) http.Header {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = "US"
	}
	p, ok := profiles[country]
	if !ok {
		p = fallbackProfile
	}

	v := g.version()
	major, _, _ := strings.Cut(v, ".")

	h := make(http.Header, 14)
	h.Set("User-Agent", fmt.Sprintf(userAgents[p.platform], v))
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", p.acceptLanguage)
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Sec-Ch-Ua", fmt.Sprintf(`"Chromium";v="%s", "Google Chrome";v="%s", "Not-A.Brand";v="99"`, major, major))
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", platformHints[p.platform])
	h.Set("Cache-Control", "max-age=0")
	return h
}

// Merge copies overrides onto base and returns base. Caller supplied values
// replace generated ones key by key.
func Merge(base, overrides http.Header) http.Header {
	if base == nil {
		base = make(http.Header, len(overrides))
	}
	for k, vs := range overrides {
		base[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return base
}

// AcceptLanguage returns the Accept-Language value used for a country
func AcceptLanguage(country string) string {
	if p, ok := profiles[strings.ToUpper(country)]; ok {
		return p.acceptLanguage
	}
	return FallbackAcceptLanguage
}
