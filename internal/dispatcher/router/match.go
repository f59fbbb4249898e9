package router

import (
	"sort"
	"strings"

	"github.com/kiribu/actor-relay/internal/dispatcher/repository"
)

// SelectHook returns the hook whose prefix is the longest literal prefix of
// text. Two matching prefixes of equal length are the same string, so a tie
// only happens with duplicate records; the smallest URL wins it, whatever the
// order the store returned them in.
func SelectHook(hooks []repository.Hook, text string) (repository.Hook, bool) {
	var best repository.Hook
	found := false

	for _, h := range hooks {
		if h.Prefix == "" || !strings.HasPrefix(text, h.Prefix) {
			continue
		}
		switch {
		case !found, len(h.Prefix) > len(best.Prefix):
			best, found = h, true
		case len(h.Prefix) == len(best.Prefix) && h.URL < best.URL:
			best = h
		}
	}

	return best, found
}

// helpText lists the distinct configured prefixes in sorted order.
func helpText(hooks []repository.Hook) string {
	seen := make(map[string]struct{}, len(hooks))
	var prefixes []string
	for _, h := range hooks {
		if _, ok := seen[h.Prefix]; ok || h.Prefix == "" {
			continue
		}
		seen[h.Prefix] = struct{}{}
		prefixes = append(prefixes, h.Prefix)
	}

	if len(prefixes) == 0 {
		return "no commands configured"
	}

	sort.Strings(prefixes)
	return "available commands:\n" + strings.Join(prefixes, "\n")
}
