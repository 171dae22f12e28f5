package app

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/yourusername/vidbot/internal/domain"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// domainRoute maps a recognized host substring to the platform that handles it
type domainRoute struct {
	substring string
	platform  domain.Platform
}

// DefaultRoutes are the recognized video domains in routing order
var DefaultRoutes = []domainRoute{
	{substring: "youtube.com", platform: domain.PlatformYouTube},
	{substring: "facebook.com", platform: domain.PlatformFacebook},
	{substring: "instagram.com", platform: domain.PlatformGeneric},
}

// UrlExtractor finds the first supported video link in a message body
type UrlExtractor struct {
	routes []domainRoute
}

// NewUrlExtractor creates an extractor for the default domains
func NewUrlExtractor() *UrlExtractor {
	return &UrlExtractor{routes: DefaultRoutes}
}

// Extract returns the first URL in body whose host contains a recognized
// domain. ok is false when the body holds no such URL.
func (e *UrlExtractor) Extract(body string) (link domain.ExtractedLink, ok bool) {
	for _, candidate := range urlPattern.FindAllString(body, -1) {
		host := hostOf(candidate)
		for _, route := range e.routes {
			if strings.Contains(host, route.substring) {
				return domain.ExtractedLink{Platform: route.platform, RawURL: candidate}, true
			}
		}
	}
	return domain.ExtractedLink{}, false
}

// hostOf returns the lower-cased host of raw, falling back to the text
// between the scheme and the first slash when raw does not parse.
func hostOf(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return strings.ToLower(u.Host)
	}
	rest := raw[strings.Index(raw, "://")+3:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}
