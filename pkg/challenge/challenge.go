// Package challenge recognises Cloudflare JavaScript challenge pages.
//
// Detection is a plain substring match on the challenge bootstrap object that
// every interstitial embeds. The body is not parsed.
package challenge

import "strings"

// Marker is the script object Cloudflare injects into its JS challenge page.
const Marker = "_cf_chl_opt"

// IsChallenge reports whether body is a challenge page.
func IsChallenge(body string) bool {
	return strings.Contains(body, Marker)
}
