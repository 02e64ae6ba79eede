package model

import "strings"

// CategoryTag names one service category in the taxonomy.
type CategoryTag string

// Taxonomy maps category tags to their match keywords. A keyword
// matches when it appears as a case-insensitive substring of the
// sender domain, sender address, or subject.
type Taxonomy map[CategoryTag][]string

// DefaultTaxonomy returns the built-in category table. Callers may
// merge additional categories from configuration on top of it.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		"Social Media": {
			"facebook", "twitter", "instagram", "linkedin", "tiktok",
			"reddit", "snapchat", "pinterest",
		},
		"Shopping": {
			"amazon", "ebay", "etsy", "shopify", "walmart", "target",
			"bestbuy", "aliexpress", "shop",
		},
		"Finance": {
			"paypal", "stripe", "bank", "credit", "venmo", "cashapp",
			"wise", "coinbase", "crypto",
		},
		"Cloud Services": {
			"google", "dropbox", "icloud", "onedrive", "box", "mega",
			"protonmail",
		},
		"Subscription Services": {
			"netflix", "spotify", "hulu", "disney", "prime", "youtube",
			"paramount", "peacock", "apple",
		},
		"Gaming": {
			"steam", "epic", "origin", "uplay", "psn", "xbox",
			"nintendo", "battlenet",
		},
		"Professional": {
			"slack", "zoom", "teams", "asana", "jira", "trello",
			"github", "gitlab",
		},
		"Travel": {
			"airbnb", "booking", "expedia", "uber", "lyft", "airlines",
			"hotel",
		},
		"Accounts": {
			"account", "subscription", "login", "welcome",
		},
	}
}

// Normalized returns a copy of the taxonomy with every keyword
// lowercased, so classification never lowercases per message.
func (t Taxonomy) Normalized() Taxonomy {
	out := make(Taxonomy, len(t))
	for tag, keywords := range t {
		lowered := make([]string, len(keywords))
		for i, kw := range keywords {
			lowered[i] = strings.ToLower(kw)
		}
		out[tag] = lowered
	}
	return out
}

// Merge overlays extra categories onto the taxonomy. Keywords for an
// existing tag are appended; unknown tags create new categories.
func (t Taxonomy) Merge(extra map[string][]string) Taxonomy {
	out := make(Taxonomy, len(t)+len(extra))
	for tag, keywords := range t {
		out[tag] = append([]string(nil), keywords...)
	}
	for name, keywords := range extra {
		tag := CategoryTag(name)
		out[tag] = append(out[tag], keywords...)
	}
	return out
}
