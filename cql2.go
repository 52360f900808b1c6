package cql2

import "strings"

// ParseAuto parses input as cql2-json when its first non-whitespace
// byte is '{', and as cql2-text otherwise. This mirrors the reference
// implementation's FromStr, which sniffs the same way rather than
// requiring the caller to pick a concrete syntax up front.
func ParseAuto(input string) (Expr, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		return ParseJSON([]byte(input))
	}
	return ParseText(input)
}
