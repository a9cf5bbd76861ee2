package engine

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"pagead2.googlesyndication.com", true},
		{"SECUREPUBADS.G.DOUBLECLICK.NET", true},
		{"www.googletagmanager.com.", true},
		{"genshin-impact.fandom.com", false},
		{"static.wikia.nocookie.net", false},
		{"notdoubleclick.net", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isAdDomain(tt.host); got != tt.want {
			t.Errorf("isAdDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestShouldBlock(t *testing.T) {
	blocked := blockedResourceTypes([]string{"Image", "font", "Document", "Bogus"})
	if len(blocked) != 2 {
		t.Fatalf("expected 2 blockable resource types, got %d", len(blocked))
	}

	tests := []struct {
		name     string
		rt       proto.NetworkResourceType
		url      string
		blockAds bool
		want     bool
	}{
		{"blocked type", proto.NetworkResourceTypeImage, "https://example.com/a.png", false, true},
		{"case-insensitive type", proto.NetworkResourceTypeFont, "https://example.com/a.woff2", false, true},
		{"document never blocked", proto.NetworkResourceTypeDocument, "https://example.com/", false, false},
		{"ad domain with ads blocked", proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js", true, true},
		{"ad domain with ads allowed", proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js", false, false},
		{"unparsable url", proto.NetworkResourceTypeScript, "://", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldBlock(tt.rt, tt.url, blocked, tt.blockAds); got != tt.want {
				t.Errorf("shouldBlock() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Accept-Language": "en-US"})
	if got := m["Accept-Language"].Str(); got != "en-US" {
		t.Errorf("header value = %q", got)
	}
}
