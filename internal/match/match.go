// Package match implements the keyword containment test applied to feed
// entries and the urgency decision derived from it. Both functions are pure;
// keyword lists are expected to be lower-cased at configuration time.
package match

import "strings"

// Match returns the keywords contained in text, case-insensitively, in the
// configured order. Each keyword is tested once, so duplicates are
// impossible. An empty keyword list or zero matches yields an empty result.
func Match(text string, keywords []string) []string {
	lowered := strings.ToLower(text)
	matched := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(lowered, k) {
			matched = append(matched, k)
		}
	}
	return matched
}

// IsUrgent reports whether any matched keyword belongs to the urgent subset.
// Urgency is opt-in: an empty urgent list always yields false.
func IsUrgent(matched, urgent []string) bool {
	if len(urgent) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(matched))
	for _, m := range matched {
		set[strings.ToLower(m)] = struct{}{}
	}
	for _, u := range urgent {
		if _, ok := set[u]; ok {
			return true
		}
	}
	return false
}
