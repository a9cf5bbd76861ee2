package engine

import (
	"net/url"
	"slices"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockableTypes are the resource types a detail page can render without.
// Document, XHR and Fetch are never blockable: the translation table and the
// lazy-loaded tabs arrive through them.
var blockableTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeMedia,
	proto.NetworkResourceTypeScript,
}

// trackerHosts are the ad, consent and analytics hosts a fandom wiki page
// pulls in. Subdomains match too.
var trackerHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googletagmanager.com",
	"googletagservices.com",
	"google-analytics.com",
	"amazon-adsystem.com",
	"scorecardresearch.com",
	"quantserve.com",
	"pubmatic.com",
	"rubiconproject.com",
	"adnxs.com",
	"casalemedia.com",
	"criteo.com",
	"openx.net",
	"consensu.org",
	"nielsen.com",
}

// isAdDomain reports whether host is a tracker host or one of its subdomains.
func isAdDomain(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for host != "" {
		if slices.Contains(trackerHosts, host) {
			return true
		}
		_, parent, ok := strings.Cut(host, ".")
		if !ok {
			return false
		}
		host = parent
	}
	return false
}

// mountHijack installs a request interceptor on the page that fails
// requests of the blocked resource types and, when blockAds is set, requests
// to known ad and tracking domains. It returns nil when there is nothing to
// block; otherwise the caller owns the running router and must Stop it.
func mountHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := blockedResourceTypes(blockedTypes)
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if shouldBlock(ctx.Request.Type(), ctx.Request.URL().String(), blocked, blockAds) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It will exit when router.Stop() is called.
	go router.Run()

	return router
}

// blockedResourceTypes resolves configured type names, case-insensitively,
// against blockableTypes. Other names are ignored.
func blockedResourceTypes(names []string) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		for _, rt := range blockableTypes {
			if strings.EqualFold(strings.TrimSpace(name), string(rt)) {
				blocked[rt] = struct{}{}
			}
		}
	}
	return blocked
}

func shouldBlock(rt proto.NetworkResourceType, rawURL string, blocked map[proto.NetworkResourceType]struct{}, blockAds bool) bool {
	if _, ok := blocked[rt]; ok {
		return true
	}
	if !blockAds {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isAdDomain(u.Hostname())
}
