package extract

import (
	"regexp"
	"sort"
)

// IdentifierSet extracts every identifier matched by the pattern's first
// capture group from a raw markup response. The result is deduplicated and
// sorted; markup searches compare whole sets rather than a single top record.
func IdentifierSet(body []byte, pattern *regexp.Regexp) []string {
	matches := pattern.FindAllSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) < 2 {
			continue
		}
		id := string(m[1])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}
