// Package platform classifies client devices and browsers from user-agent
// strings. Both the subscription registrar and the service worker runtime use
// the same ordered matching, so the platform recorded at registration matches
// what the runtime assumes when rendering notifications.
package platform

import "strings"

// Platform identifies the client device class.
type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
	Web     Platform = "web"
)

// Browser identifies the client browser.
type Browser string

const (
	Chrome         Browser = "chrome"
	Safari         Browser = "safari"
	Firefox        Browser = "firefox"
	Edge           Browser = "edge"
	UnknownBrowser Browser = "unknown"
)

// platformMarkers is evaluated in order; the first substring match wins.
var platformMarkers = []struct {
	substrings []string
	platform   Platform
}{
	{[]string{"Android"}, Android},
	{[]string{"iPhone", "iPad", "iPod"}, IOS},
}

// browserMarkers is evaluated in order. Order matters: Chrome-based user
// agents also contain "Safari", so Chrome must be checked first.
var browserMarkers = []struct {
	substring string
	browser   Browser
}{
	{"Chrome", Chrome},
	{"Safari", Safari},
	{"Firefox", Firefox},
	{"Edge", Edge},
}

// Detect resolves the client platform. An explicit client-supplied hint always
// wins; otherwise the user agent is matched against the ordered marker list,
// defaulting to Web.
func Detect(userAgent, hint string) Platform {
	if hint != "" {
		return Platform(hint)
	}
	for _, m := range platformMarkers {
		for _, s := range m.substrings {
			if strings.Contains(userAgent, s) {
				return m.platform
			}
		}
	}
	return Web
}

// DetectBrowser resolves the client browser from the user agent, defaulting
// to UnknownBrowser when no marker matches.
func DetectBrowser(userAgent string) Browser {
	for _, m := range browserMarkers {
		if strings.Contains(userAgent, m.substring) {
			return m.browser
		}
	}
	return UnknownBrowser
}
