package cache

import (
	"net/url"
	"testing"
)

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  CacheKey
		want string
	}{
		{
			name: "simple endpoint no params",
			key: CacheKey{
				Endpoint: "/v3/launches/",
			},
			want: "launchlist:v3/launches",
		},
		{
			name: "page query params (sorted)",
			key: CacheKey{
				Endpoint: "/v3/launches",
				QueryParams: url.Values{
					"offset": []string{"20"},
					"limit":  []string{"10"},
				},
			},
			want: "launchlist:v3/launches:limit=10:offset=20",
		},
		{
			name: "multi-valued query param",
			key: CacheKey{
				Endpoint: "/v3/launches",
				QueryParams: url.Values{
					"filter": []string{"upcoming", "details"},
				},
			},
			want: "launchlist:v3/launches:filter=details,upcoming",
		},
		{
			name: "empty endpoint",
			key:  CacheKey{},
			want: "launchlist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("CacheKey.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := CacheKey{
		Endpoint:    "/v3/launches",
		QueryParams: url.Values{"limit": {"10"}, "offset": {"0"}},
	}
	b := CacheKey{
		Endpoint:    "v3/launches/",
		QueryParams: url.Values{"offset": {"0"}, "limit": {"10"}},
	}

	for i := 0; i < 10; i++ {
		if a.String() != b.String() {
			t.Fatalf("Keys differ: %q vs %q", a.String(), b.String())
		}
	}
}
