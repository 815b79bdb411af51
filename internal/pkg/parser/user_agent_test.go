package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Client
	}{
		{
			name: "console",
			ua:   "suitehub-console/1 (linux)",
			want: Client{Kind: ClientConsole, OS: "Linux", Browser: "Unknown"},
		},
		{
			name: "curl",
			ua:   "curl/8.5.0",
			want: Client{Kind: ClientScript, OS: "Unknown", Browser: "Unknown"},
		},
		{
			name: "go client",
			ua:   "Go-http-client/1.1",
			want: Client{Kind: ClientScript, OS: "Unknown", Browser: "Unknown"},
		},
		{
			name: "chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			want: Client{Kind: ClientBrowser, OS: "Windows", Browser: "Chrome"},
		},
		{
			name: "edge",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Edg/120.0",
			want: Client{Kind: ClientBrowser, OS: "Windows", Browser: "Edge"},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			want: Client{Kind: ClientBrowser, OS: "iOS", Browser: "Safari"},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: Client{Kind: ClientBrowser, OS: "Linux", Browser: "Firefox"},
		},
		{
			name: "empty",
			ua:   "",
			want: Client{Kind: ClientUnknown, OS: "Unknown", Browser: "Unknown"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseUserAgent(tc.ua))
		})
	}
}
