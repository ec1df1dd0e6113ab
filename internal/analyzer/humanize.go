package analyzer

import (
	"strings"
	"unicode"
)

// HumanizeName turns a technical node name like "handleSubmitOrder" into
// "Submit Order".
func HumanizeName(name string) string {
	name = strings.TrimPrefix(name, "handle")
	name = strings.TrimPrefix(name, "Handle")
	if len(name) > 2 && strings.HasPrefix(name, "on") && unicode.IsUpper(rune(name[2])) {
		name = name[2:]
	}

	// Split camelCase on a lower-to-upper boundary only, so acronyms and
	// already-spaced names pass through untouched.
	var b strings.Builder
	prev := rune(0)
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// HumanizeEndpoint turns "/api/orders/{id}" into "Api Orders".
func HumanizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return "service"
	}
	var meaningful []string
	for _, part := range strings.Split(endpoint, "/") {
		if part == "" || strings.HasPrefix(part, "{") {
			continue
		}
		meaningful = append(meaningful, part)
	}
	if len(meaningful) == 0 {
		return "service"
	}
	if len(meaningful) > 2 {
		meaningful = meaningful[len(meaningful)-2:]
	}
	joined := strings.ReplaceAll(strings.Join(meaningful, " "), "-", " ")
	words := strings.Fields(joined)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
