package guard

import (
	"strings"

	"github.com/satyamahesh03/misuseguard/pkg/patterns"
)

// isEmptyText is the platform-aware emptiness predicate. An exact
// blank is always empty; hosts that render a default prompt in an
// empty composer ("Type a message...") are covered by the placeholder
// allow-list, so a protected surface can still return to idle.
func isEmptyText(reg *patterns.Registry, text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	return reg.IsPlaceholder(patterns.Normalize(text))
}
