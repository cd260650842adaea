package stories

import (
	"net/url"
	"strings"

	"github.com/Semior001/alumni/app/store"
	"github.com/samber/lo"
)

// IntentKind is the kind of view the navigation asks for.
type IntentKind int

// Possible intents.
const (
	IntentListing IntentKind = iota
	IntentDetail
)

// String returns the name of the intent.
func (k IntentKind) String() string {
	if k == IntentDetail {
		return "detail"
	}
	return "listing"
}

// Intent is the resolved decision of what to show.
type Intent struct {
	Kind IntentKind
	Key  string
}

// Navigation describes where the user is.
type Navigation struct {
	Path  string
	Query url.Values
	// Override is the key set by the hosting page, if any.
	Override string
}

// Resolver determines the intent from the navigation.
type Resolver struct {
	QueryParam string
	Section    string
	Reserved   []string
}

// DefaultResolver resolves keys for the /stories/ section.
var DefaultResolver = Resolver{
	QueryParam: "slug",
	Section:    "stories",
	Reserved:   []string{"index.html", "detail.html", "stories"},
}

// Resolve returns the detail intent for the first key found in the query,
// the override and the path, in that order, and the listing intent otherwise.
func (r Resolver) Resolve(nav Navigation) Intent {
	candidates := []string{nav.Query.Get(r.QueryParam), nav.Override, r.pathKey(nav.Path)}

	for _, c := range candidates {
		if key := store.Slugify(unescape(c)); key != "" {
			return Intent{Kind: IntentDetail, Key: key}
		}
	}

	return Intent{Kind: IntentListing}
}

// pathKey returns the last segment of the path under the section root,
// unless it is a reserved page name.
func (r Resolver) pathKey(p string) string {
	parts := lo.Compact(strings.Split(strings.TrimRight(p, "/"), "/"))
	if len(parts) < 2 || parts[0] != r.Section {
		return ""
	}

	last := parts[len(parts)-1]
	if lo.Contains(r.Reserved, last) {
		return ""
	}

	return last
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
