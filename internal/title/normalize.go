package title

import (
	"regexp"
	"strings"
)

// languageGroup matches any language name the upstream site embeds in its
// title strings.
const languageGroup = `(?:Tamil|Hindi|Telugu|Malayalam|Kannada|Bengali|Marathi|Punjabi)`

type noiseRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// noiseRules strips the upstream site's title decorations. Order matters:
// the composite year+language+quality+brand rules must run before the bare
// year and bare language rules, otherwise a narrower rule consumes the year
// and leaves the language/brand tail attached.
var noiseRules = []noiseRule{
	{regexp.MustCompile(`(?i)\s*\(\d{4}\)\s*` + languageGroup + `\s*in\s*(?:HD|SD)\s*-\s*Einthusan.*$`), ""},
	{regexp.MustCompile(`(?i)\s*\(\d{4}\)\s*(?:` + languageGroup + `\s*,?\s*)+in\s*(?:HD|SD)\s*-\s*Einthusan.*$`), ""},
	{regexp.MustCompile(`(?i)\s*` + languageGroup + `\s*in\s*(?:HD|SD)\s*-\s*Einthusan.*$`), ""},
	{regexp.MustCompile(`(?i)^Einthusan\s*[-–—]\s*`), ""},
	{regexp.MustCompile(`\s*\(\d{4}\)\s*$`), ""},
	{regexp.MustCompile(`(?i)\s*\[` + languageGroup + `\]`), ""},
	{regexp.MustCompile(`(?i)\|\s*Einthusan.*$`), ""},
	{regexp.MustCompile(`(?i)Watch Full Movie Online Free$`), ""},
	{regexp.MustCompile(`(?i)Online Watch Free (?:HD|SD)$`), ""},
	{regexp.MustCompile(`(?i)Free Movies Online$`), ""},
}

// Clean strips known noise from a raw title candidate. Returns "" when the
// input is empty or nothing but noise.
func Clean(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	for _, rule := range noiseRules {
		value = rule.pattern.ReplaceAllString(value, rule.replacement)
	}
	return strings.TrimSpace(value)
}
