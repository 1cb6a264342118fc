package bookmark

import "strings"

// ParseTags accepts either an already-split tag list or a single
// comma-separated string (both are valid wire shapes per spec.md §9) and
// returns a trimmed, de-duplicated, order-preserving slice.
//
// Only the ASCII comma splits a string; locale-specific separators (e.g.
// full-width comma) are preserved as part of a single token. This matches
// the spec's documented, currently-unresolved ambiguity: behavior is kept
// as-is rather than guessed at.
func ParseTags(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return dedupTags(trimAll(v))
	case string:
		return dedupTags(trimAll(strings.Split(v, ",")))
	default:
		return nil
	}
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
