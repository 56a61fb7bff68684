package wsock

import "strings"

// matchSubprotocol returns the first token of requested that also appears
// in available, or "" with ok=false if none match. Both inputs are
// comma-separated, whitespace-free token lists; empty tokens are not valid
// and are skipped. This is a nested O(n*m) scan, acceptable because these
// lists are always tiny — and it is the server's
// preferred-order rule: the first token in requested's order that has a
// match wins, not the first token in available's order.
func matchSubprotocol(available, requested string) (string, bool) {
	avail := splitTokens(available)
	for _, want := range splitTokens(requested) {
		for _, have := range avail {
			if want == have {
				return want, true
			}
		}
	}
	return "", false
}

func splitTokens(list string) []string {
	if list == "" {
		return nil
	}
	parts := strings.Split(list, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// firstToken returns the first comma-separated token of list, with leading
// whitespace trimmed (RFC 6455 header values are CRLF-folded and may carry
// leading space after a fold).
func firstToken(list string) string {
	if i := strings.IndexByte(list, ','); i >= 0 {
		list = list[:i]
	}
	return strings.TrimSpace(list)
}
