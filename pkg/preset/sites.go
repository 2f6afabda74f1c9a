package preset

import (
	"fmt"
	"net/url"
	"strings"
)

var amazonDomains = map[string]string{
	"US": "amazon.com",
	"UK": "amazon.co.uk",
	"GB": "amazon.co.uk",
	"DE": "amazon.de",
	"FR": "amazon.fr",
	"JP": "amazon.co.jp",
	"CA": "amazon.ca",
}

var ebayDomains = map[string]string{
	"US": "ebay.com",
	"UK": "ebay.co.uk",
	"GB": "ebay.co.uk",
	"DE": "ebay.de",
}

// domainFor falls back to the US storefront
func domainFor(domains map[string]string, country string) string {
	if d, ok := domains[country]; ok {
		return d
	}
	return domains["US"]
}

var builtins = map[string]map[string]URLBuilder{
	"amazon": {
		"product": func(asin, country string) string {
			return fmt.Sprintf("https://www.%s/dp/%s", domainFor(amazonDomains, country), url.PathEscape(asin))
		},
		"search": func(q, country string) string {
			return fmt.Sprintf("https://www.%s/s?k=%s", domainFor(amazonDomains, country), url.QueryEscape(q))
		},
	},
	"ebay": {
		"search": func(q, country string) string {
			return fmt.Sprintf("https://www.%s/sch/i.html?_nkw=%s", domainFor(ebayDomains, country), url.QueryEscape(q))
		},
		"item": func(id, _ string) string {
			return "https://www.ebay.com/itm/" + url.PathEscape(id)
		},
	},
	"google": {
		"search": func(q, _ string) string {
			return fmt.Sprintf("https://www.google.com/search?q=%s&num=10&hl=en", url.QueryEscape(q))
		},
		"maps": func(q, _ string) string {
			return "https://www.google.com/maps/search/" + url.PathEscape(q)
		},
	},
	"instagram": {
		"profile": func(user, _ string) string {
			return fmt.Sprintf("https://www.instagram.com/%s/", url.PathEscape(user))
		},
	},
	"linkedin": {
		"profile": func(user, _ string) string {
			return fmt.Sprintf("https://www.linkedin.com/in/%s/", url.PathEscape(user))
		},
		"company": func(name, _ string) string {
			return fmt.Sprintf("https://www.linkedin.com/company/%s/", url.PathEscape(name))
		},
	},
	"nasdaq": {
		"quote": func(symbol, _ string) string {
			return "https://www.nasdaq.com/market-activity/stocks/" + url.PathEscape(strings.ToLower(symbol))
		},
	},
	"reddit": {
		"subreddit": func(name, _ string) string {
			return fmt.Sprintf("https://www.reddit.com/r/%s/", url.PathEscape(name))
		},
	},
	"tiktok": {
		"profile": func(user, _ string) string {
			return "https://www.tiktok.com/@" + url.PathEscape(strings.TrimPrefix(user, "@"))
		},
		"video": func(id, _ string) string {
			return "https://www.tiktok.com/video/" + url.PathEscape(id)
		},
	},
	"twitter": {
		"profile": func(user, _ string) string {
			return "https://twitter.com/" + url.PathEscape(strings.TrimPrefix(user, "@"))
		},
		"tweet": func(id, _ string) string {
			return "https://twitter.com/i/status/" + url.PathEscape(id)
		},
		"search": func(q, _ string) string {
			return fmt.Sprintf("https://twitter.com/search?q=%s&src=typed_query", url.QueryEscape(q))
		},
	},
	"youtube": {
		"video": func(id, _ string) string {
			return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
		},
		"search": func(q, _ string) string {
			return "https://www.youtube.com/results?search_query=" + url.QueryEscape(q)
		},
		"channel": func(name, _ string) string {
			return "https://www.youtube.com/@" + url.PathEscape(strings.TrimPrefix(name, "@"))
		},
	},
}
