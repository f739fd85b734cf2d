package builder

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const stateSuffix = "-tx"

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugCollapseRe = regexp.MustCompile(`-{2,}`)

	titleCaser = cases.Title(language.AmericanEnglish)
)

// Slugify derives the canonical city slug: lowercase, punctuation stripped
// (hyphens kept), whitespace collapsed to hyphens, state suffix appended.
// Deterministic, and reversible enough for display via FormatCityName.
func Slugify(cityName string) string {
	s := strings.ToLower(strings.TrimSpace(cityName))
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return ""
	}
	if !strings.HasSuffix(s, stateSuffix) {
		s += stateSuffix
	}
	return s
}

// FormatCityName is the display inverse of Slugify: strips the state suffix
// and title-cases the hyphenated words ("sugar-land-tx" -> "Sugar Land").
func FormatCityName(slug string) string {
	s := strings.TrimSuffix(slug, stateSuffix)
	s = strings.ReplaceAll(s, "-", " ")
	return titleCaser.String(s)
}
