// Package address normalizes free-text street addresses into a canonical
// form used for registry queries and cache keys.
package address

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/choosepower/tdsp-resolver/internal/model"
)

// abbreviations maps common street-suffix and directional abbreviations to
// their expanded forms. Unit designators (Apt, Ste, Unit) are deliberately
// left alone: the registry matches them as-is and expanding them loses the
// user's intent.
var abbreviations = map[string]string{
	"st":   "street",
	"str":  "street",
	"ave":  "avenue",
	"av":   "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"ln":   "lane",
	"rd":   "road",
	"ct":   "court",
	"cir":  "circle",
	"pl":   "place",
	"pkwy": "parkway",
	"hwy":  "highway",
	"expy": "expressway",
	"trl":  "trail",
	"ter":  "terrace",
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
	"ne":   "northeast",
	"nw":   "northwest",
	"se":   "southeast",
	"sw":   "southwest",
}

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	titleCaser   = cases.Title(language.AmericanEnglish)
)

// Normalize canonicalizes a street address: trims, collapses whitespace,
// strips trailing token punctuation, expands suffix and directional
// abbreviations, and title-cases. It is idempotent:
// Normalize(Normalize(a)) == Normalize(a) for any a.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = multiSpaceRe.ReplaceAllString(s, " ")

	tokens := strings.Split(s, " ")
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		trailing := ""
		core := tok
		if strings.HasSuffix(core, ",") {
			trailing = ","
			core = strings.TrimSuffix(core, ",")
		}
		core = strings.TrimRight(core, ".")
		if core == "" {
			continue
		}

		if expanded, ok := abbreviations[strings.ToLower(core)]; ok {
			core = expanded
		}
		// Leave tokens containing digits (house numbers, "2nd", unit "12B")
		// untouched beyond punctuation stripping.
		if !containsDigit(core) {
			core = titleCaser.String(strings.ToLower(core))
		}
		out = append(out, core+trailing)
	}

	return strings.Join(out, " ")
}

// MeaningfulLength counts the alphanumeric characters in s. Addresses below
// a minimum meaningful length are rejected before any registry query.
func MeaningfulLength(s string) int {
	n := 0
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			n++
		}
	}
	return n
}

// New builds a model.Address with its normalized form populated.
func New(raw, zip string) model.Address {
	return model.Address{Raw: raw, Normalized: Normalize(raw), Zip: zip}
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
