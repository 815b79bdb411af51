package parser

import "strings"

const (
	ClientConsole = "console"
	ClientBrowser = "browser"
	ClientScript  = "script"
	ClientUnknown = "unknown"
)

// Client is what an audit reader wants to know about a User-Agent header.
type Client struct {
	Kind    string
	OS      string
	Browser string
}

var scriptAgents = []string{"curl/", "go-http-client", "python-requests", "wget/", "httpie/", "postmanruntime"}

func ParseUserAgent(ua string) Client {
	uaLower := strings.ToLower(ua)
	c := Client{Kind: ClientUnknown, OS: parseOS(uaLower), Browser: "Unknown"}

	switch {
	case strings.HasPrefix(uaLower, "suitehub-console/"):
		c.Kind = ClientConsole
		return c
	case hasAny(uaLower, scriptAgents):
		c.Kind = ClientScript
		return c
	}

	// Browser Detection
	if strings.Contains(uaLower, "edg/") || strings.Contains(uaLower, "edge") {
		c.Browser = "Edge"
	} else if strings.Contains(uaLower, "firefox") {
		c.Browser = "Firefox"
	} else if strings.Contains(uaLower, "chrome") {
		c.Browser = "Chrome"
	} else if strings.Contains(uaLower, "safari") {
		c.Browser = "Safari"
	}
	if c.Browser != "Unknown" {
		c.Kind = ClientBrowser
	}
	return c
}

func parseOS(uaLower string) string {
	switch {
	case strings.Contains(uaLower, "windows"):
		return "Windows"
	case strings.Contains(uaLower, "iphone") || strings.Contains(uaLower, "ipad"):
		return "iOS"
	case strings.Contains(uaLower, "mac os") || strings.Contains(uaLower, "darwin"):
		return "macOS"
	case strings.Contains(uaLower, "android"):
		return "Android"
	case strings.Contains(uaLower, "linux"):
		return "Linux"
	default:
		return "Unknown"
	}
}

func hasAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
