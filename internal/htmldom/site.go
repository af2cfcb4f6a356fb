package htmldom

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"feedwarden/internal/dom"
	"feedwarden/lib/htmlutil"
	"feedwarden/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Site describes where the feed lives on one site and how its items are
// identified.
type Site struct {
	Name string `json:"name" yaml:"name"`
	// MatchPaths are the location paths the feed is shown on.
	MatchPaths        []string `json:"match_paths" yaml:"match_paths"`
	ContainerSelector string   `json:"container_selector" yaml:"container_selector"`
	// ItemSelector restricts which inserted nodes are items, empty accepts
	// every element.
	ItemSelector      string `json:"item_selector" yaml:"item_selector"`
	SeparatorSelector string `json:"separator_selector" yaml:"separator_selector"`
	LinkSelector      string `json:"link_selector" yaml:"link_selector"`
	// IDParam is the query parameter of the item link holding the item id,
	// when empty the whole link (without fragment) is the id.
	IDParam        string   `json:"id_param" yaml:"id_param"`
	BlockedDomains []string `json:"blocked_domains" yaml:"blocked_domains"`
	// BlockedKeywords are matched against the text of the item links,
	// ignoring case and whitespace.
	BlockedKeywords []string `json:"blocked_keywords" yaml:"blocked_keywords"`
}

var profiles = map[string]Site{
	"youtube": {
		Name:              "youtube",
		MatchPaths:        []string{"/"},
		ContainerSelector: "#contents",
		ItemSelector:      "ytd-rich-item-renderer",
		SeparatorSelector: "ytd-rich-section-renderer",
		LinkSelector:      "a",
		IDParam:           "v",
	},
	"google": {
		Name:              "google",
		MatchPaths:        []string{"/search"},
		ContainerSelector: "[data-async-context]",
		LinkSelector:      "a",
	},
	"duckduckgo": {
		Name:              "duckduckgo",
		MatchPaths:        []string{"/"},
		ContainerSelector: "#react-layout ol",
		ItemSelector:      `[data-nrn="result"]`,
		LinkSelector:      "a",
	},
}

// Profile returns the built-in profile with the given name.
func Profile(name string) (Site, bool) {
	site, ok := profiles[name]
	if !ok {
		return Site{}, false
	}
	site.MatchPaths = slices.Clone(site.MatchPaths)
	return site, true
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MatchesPath reports whether the feed is shown on path.
func (s Site) MatchesPath(path string) bool {
	return slices.Contains(s.MatchPaths, path)
}

func (s Site) linkSelector() string {
	if s.LinkSelector == "" {
		return "a"
	}
	return s.LinkSelector
}

func (s Site) is(h *html.Node, selector string) bool {
	if h == nil || h.Type != html.ElementNode || selector == "" {
		return false
	}
	return goquery.NewDocumentFromNode(h).Is(selector)
}

// ExtractID returns the item id of n, "" when n is not a classifiable item.
func (s Site) ExtractID(n dom.Node) (string, error) {
	h := element(n)
	if h == nil || h.Type != html.ElementNode {
		return "", nil
	}
	if s.ItemSelector != "" && !s.is(h, s.ItemSelector) {
		return "", nil
	}
	anchor, found, err := htmlutil.FirstAnchor(context.Background(), h, s.linkSelector())
	if err != nil {
		return "", fmt.Errorf("parse item link: %w", err)
	}
	if !found {
		return "", nil
	}
	if s.IDParam == "" {
		link := *anchor.URL
		link.Fragment = ""
		return link.String(), nil
	}
	return anchor.URL.Query().Get(s.IDParam), nil
}

// IsSeparator reports whether n is a structural separator rather than an item.
func (s Site) IsSeparator(n dom.Node) bool {
	return s.is(element(n), s.SeparatorSelector)
}

// IsBlocked reports whether the link of n points at a blocked domain or any
// link of n mentions a blocked keyword.
func (s Site) IsBlocked(n dom.Node) bool {
	h := element(n)
	if h == nil || h.Type != html.ElementNode {
		return false
	}
	ctx := context.Background()

	if len(s.BlockedDomains) > 0 {
		anchor, found, err := htmlutil.FirstAnchor(ctx, h, s.linkSelector())
		if err == nil && found && textutil.MatchDomain(anchor.Href, s.BlockedDomains) {
			return true
		}
	}

	if len(s.BlockedKeywords) > 0 {
		keywords := make([]string, 0, len(s.BlockedKeywords))
		for _, k := range s.BlockedKeywords {
			if k = textutil.NormalizeName(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		links := goquery.NewDocumentFromNode(h).Find(s.linkSelector())
		for _, anchor := range htmlutil.GetAnchors(ctx, links) {
			if textutil.MatchName(anchor.Name, keywords) {
				return true
			}
		}
	}
	return false
}
