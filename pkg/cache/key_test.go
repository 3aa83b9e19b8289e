package cache

import (
	"net/url"
	"strings"
	"testing"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      CacheKey
		expected string
	}{
		{
			name:     "endpoint only",
			key:      CacheKey{Endpoint: "https://api.test/items/"},
			expected: "api2xlsx:https://api.test/items:auth=anon",
		},
		{
			name: "sorted query params",
			key: CacheKey{
				Endpoint:    "https://api.test/items",
				QueryParams: url.Values{"page": {"2"}, "limit": {"50"}},
				AuthScope:   "abc",
			},
			expected: "api2xlsx:https://api.test/items:limit=50:page=2:auth=abc",
		},
		{
			name: "multi valued param",
			key: CacheKey{
				Endpoint:    "https://api.test/items",
				QueryParams: url.Values{"tag": {"b", "a"}},
			},
			expected: "api2xlsx:https://api.test/items:tag=a,b:auth=anon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewKey_StripsAPIKey(t *testing.T) {
	u, _ := url.Parse("https://api.test/items?page=1&api_key=top-secret")
	key := NewKey(u, auth.APIKey("api_key", "top-secret"))

	s := key.String()
	if strings.Contains(s, "top-secret") {
		t.Errorf("Key leaked the API key: %s", s)
	}
	if !strings.Contains(s, "page=1") {
		t.Errorf("Key lost the page parameter: %s", s)
	}
}

func TestNewKey_ScopedByCredentials(t *testing.T) {
	u, _ := url.Parse("https://api.test/items")

	anon := NewKey(u, auth.None()).String()
	alice := NewKey(u, auth.Basic("alice", "pw")).String()
	bob := NewKey(u, auth.Basic("bob", "pw")).String()

	if anon == alice || alice == bob {
		t.Errorf("Keys should differ per credential: %s, %s, %s", anon, alice, bob)
	}
}

func TestCacheKey_Determinism(t *testing.T) {
	u, _ := url.Parse("https://api.test/items?b=2&a=1&c=3")
	first := NewKey(u, auth.Bearer("t")).String()

	for i := 0; i < 100; i++ {
		if got := NewKey(u, auth.Bearer("t")).String(); got != first {
			t.Fatalf("Non-deterministic key: %q vs %q", got, first)
		}
	}
}
