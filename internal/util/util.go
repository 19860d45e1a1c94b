package util

import (
	"os"
	"regexp"
	"strings"
)

const snippetRunes = 200

var windowsVarRe = regexp.MustCompile(`%([A-Za-z0-9_]+)%`)

// ExpandEnvUniversal expands $VAR, ${VAR} and %VAR% references.
// Unset variables expand to the empty string in both syntaxes.
func ExpandEnvUniversal(s string) string {
	expanded := os.ExpandEnv(s)
	return windowsVarRe.ReplaceAllStringFunc(expanded, func(match string) string {
		return os.Getenv(match[1 : len(match)-1])
	})
}

// Snippet returns at most the first 200 runes of b, for log lines.
func Snippet(b []byte) string {
	runes := []rune(string(b))
	if len(runes) <= snippetRunes {
		return string(b)
	}
	return string(runes[:snippetRunes]) + "..."
}

// LooksLikeJSON reports whether s is shaped like a JSON object or array.
// It does not validate the document.
func LooksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
}

// SplitList splits a comma separated config value, trimming blanks and
// dropping empty items. It returns nil when nothing remains.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
