package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// NormalizeDomain lowercases a domain and strips any scheme, leading "www."
// and trailing slash so that "https://www.Example.com/" becomes "example.com".
func NormalizeDomain(domain string) string {
	domain = NormalizeName(domain)
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	domain = strings.TrimPrefix(domain, "www.")
	return strings.TrimRight(domain, "/")
}

// MatchDomain reports whether href mentions any of the given domains.
func MatchDomain(href string, domains []string) bool {
	href = strings.ToLower(href)
	for _, d := range domains {
		d = NormalizeDomain(d)
		if d == "" {
			continue
		}
		if strings.Contains(href, d) {
			return true
		}
	}
	return false
}

// Closest returns the candidate most similar to target by Jaro-Winkler
// distance along with its score, ok is false when there are no candidates.
func Closest(target string, candidates []string) (best string, score float64, ok bool) {
	target = strings.ToLower(target)
	for _, c := range candidates {
		s := matchr.JaroWinkler(target, strings.ToLower(c), false)
		if !ok || s > score {
			best, score, ok = c, s, true
		}
	}
	return best, score, ok
}
