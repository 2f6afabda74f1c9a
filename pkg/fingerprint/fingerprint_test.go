package fingerprint

import (
	"math/rand"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAcceptLanguage(t *testing.T) {
	g := NewGenerator()

	testCases := []struct {
		country  string
		contains string
	}{
		{country: "DE", contains: "de-DE"},
		{country: "de", contains: "de-DE"},
		{country: "IN", contains: "hi;q=0.8"},
		{country: "ZZ", contains: FallbackAcceptLanguage},
		{country: "", contains: "en-US"},
	}

	for _, tc := range testCases {
		t.Run(tc.country, func(t *testing.T) {
			h := g.Generate(tc.country)
			assert.Contains(t, h.Get("Accept-Language"), tc.contains)
		})
	}

	assert.Equal(t, FallbackAcceptLanguage, g.Generate("ZZ").Get("Accept-Language"))
}

func TestGenerateConsistentClientHints(t *testing.T) {
	g := NewGeneratorWithSource(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		h := g.Generate("JP")
		ua := h.Get("User-Agent")
		require.Contains(t, ua, "Macintosh")
		assert.Equal(t, `"macOS"`, h.Get("Sec-Ch-Ua-Platform"))

		version := strings.TrimSuffix(strings.SplitN(ua, "Chrome/", 2)[1], " Safari/537.36")
		major := strings.SplitN(version, ".", 2)[0]
		assert.Contains(t, h.Get("Sec-Ch-Ua"), `"Google Chrome";v="`+major+`"`)
		assert.Equal(t, "?0", h.Get("Sec-Ch-Ua-Mobile"))
	}
}

func TestGenerateFullHeaderSet(t *testing.T) {
	h := NewGenerator().Generate("US")
	for _, name := range []string{
		"User-Agent", "Accept", "Accept-Language", "Accept-Encoding", "Connection",
		"Upgrade-Insecure-Requests", "Sec-Fetch-Dest", "Sec-Fetch-Mode", "Sec-Fetch-Site",
		"Sec-Fetch-User", "Sec-Ch-Ua", "Sec-Ch-Ua-Mobile", "Sec-Ch-Ua-Platform", "Cache-Control",
	} {
		assert.NotEmpty(t, h.Get(name), name)
	}
	assert.Equal(t, "gzip, deflate, br", h.Get("Accept-Encoding"))
	assert.Equal(t, `"Windows"`, h.Get("Sec-Ch-Ua-Platform"))
}

func TestGenerateRotatesVersion(t *testing.T) {
	g := NewGeneratorWithSource(rand.NewSource(42))
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[g.Generate("US").Get("User-Agent")] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestMergeCallerWins(t *testing.T) {
	base := NewGenerator().Generate("DE")
	merged := Merge(base, http.Header{
		"accept-language": {"fr-FR"},
		"X-Custom":        {"1"},
	})

	assert.Equal(t, "fr-FR", merged.Get("Accept-Language"))
	assert.Equal(t, "1", merged.Get("X-Custom"))
	assert.NotEmpty(t, merged.Get("User-Agent"))

	assert.Equal(t, "v", Merge(nil, http.Header{"K": {"v"}}).Get("K"))
}
