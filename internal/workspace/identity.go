package workspace

import (
	"net/url"
	"slices"
	"strings"

	"github.com/hpungsan/tabspace/internal/host"
)

// maxUnwrap bounds nested restore wrappers.
const maxUnwrap = 4

var restoreSchemes = []string{"chrome-extension", "moz-extension", "extension"}

// NormalizeURL trims raw and unwraps restore-page URLs of the form
// <ext-scheme>://<id>/.../restore.html?url=<original> back to the original.
// Anything that does not parse is returned trimmed but otherwise untouched.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	for i := 0; i < maxUnwrap; i++ {
		inner, ok := unwrapRestore(s)
		if !ok {
			break
		}
		s = inner
	}
	return s
}

func unwrapRestore(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if !slices.Contains(restoreSchemes, strings.ToLower(u.Scheme)) {
		return "", false
	}
	if !strings.HasSuffix(u.Path, "/restore.html") {
		return "", false
	}
	inner := strings.TrimSpace(u.Query().Get("url"))
	if inner == "" {
		return "", false
	}
	return inner, true
}

// TabFingerprint is the tab's normalized URL. A tab still loading falls
// back to its pending URL.
func TabFingerprint(t host.Tab) string {
	u := t.URL
	if u == "" {
		u = t.PendingURL
	}
	return NormalizeURL(u)
}

// GroupFingerprint is "<title>|<color>". Two groups sharing both in one
// window are the same logical group.
func GroupFingerprint(title, color string) string {
	return title + "|" + color
}

// GroupFingerprintOf fingerprints a live group.
func GroupFingerprintOf(g host.Group) string {
	return GroupFingerprint(g.Title, g.Color)
}

// URLsMatch compares two URLs after normalization. Empty URLs never match.
func URLsMatch(a, b string) bool {
	na, nb := NormalizeURL(a), NormalizeURL(b)
	return na != "" && na == nb
}
