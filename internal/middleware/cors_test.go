package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWildcardOrigin(t *testing.T) {
	valid := map[string]wildcardOrigin{
		"https://*.wellnessgrid.app":       {scheme: "https://", suffix: ".wellnessgrid.app"},
		"http://*.localhost.dev":           {scheme: "http://", suffix: ".localhost.dev"},
		"https://*.wellnessgrid.pages.dev": {scheme: "https://", suffix: ".wellnessgrid.pages.dev"},
	}
	for pattern, want := range valid {
		got := parseWildcardOrigin(pattern)
		require.NotNil(t, got, pattern)
		assert.Equal(t, want, *got, pattern)
	}

	for _, pattern := range []string{
		"*.wellnessgrid.app",
		"*",
		"https://wellnessgrid.*",
		"https://*.*.wellnessgrid.app",
		"https://*wellnessgrid.app",
		"https://*.app",
		"https://wellnessgrid.app",
		"://*.wellnessgrid.app",
	} {
		assert.Nil(t, parseWildcardOrigin(pattern), pattern)
	}
}

func TestWildcardOriginMatches(t *testing.T) {
	w := parseWildcardOrigin("https://*.wellnessgrid.app")
	require.NotNil(t, w)

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://staging.wellnessgrid.app", true},
		{"https://pr-42.wellnessgrid.app", true},
		{"https://wellnessgrid.app", false},
		{"https://a.b.wellnessgrid.app", false},
		{"http://staging.wellnessgrid.app", false},
		{"https://staging.wellnessgrid.app.evil.com", false},
		{"https://evil-wellnessgrid.app", false},
		{"https://staging.wellnessgrid.app:8443", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.matches(tt.origin), tt.origin)
	}
}

func TestOriginPolicy(t *testing.T) {
	t.Run("empty list allows all", func(t *testing.T) {
		assert.True(t, newOriginPolicy(nil).allowAll)
		assert.True(t, newOriginPolicy([]string{" ", ""}).allowAll)
	})

	t.Run("invalid wildcards alone allow all", func(t *testing.T) {
		assert.True(t, newOriginPolicy([]string{"https://*.app"}).allowAll)
	})

	t.Run("star mixed with exact origins", func(t *testing.T) {
		p := newOriginPolicy([]string{"https://app.wellnessgrid.app", "*"})
		assert.True(t, p.allowAll)
	})

	t.Run("exact and wildcard", func(t *testing.T) {
		p := newOriginPolicy([]string{" https://app.wellnessgrid.app ", "https://*.preview.wellnessgrid.app"})
		assert.False(t, p.allowAll)
		assert.True(t, p.allows("https://app.wellnessgrid.app"))
		assert.True(t, p.allows("https://pr-7.preview.wellnessgrid.app"))
		assert.False(t, p.allows("https://other.wellnessgrid.app"))
		assert.False(t, p.allows("http://app.wellnessgrid.app"))
	})
}
