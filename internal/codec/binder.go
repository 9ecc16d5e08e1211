package codec

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Binder derives the fact name a unit is bound under. The name is
// normalized to NFC with diacritics folded onto their base letters, then
// every character outside [A-Za-z0-9_] is dropped. A name that ends up
// empty or starting with a digit gets a "u" prefix.
//
//	@top      -> top
//	%adder.4  -> adder4
//	@7seg     -> u7seg
//	@café     -> cafe
func Binder(unitName string) string {
	folded, _, err := transform.String(foldMarks(), unitName)
	if err != nil {
		folded = norm.NFC.String(unitName)
	}
	var sb strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	name := sb.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "u" + name
	}
	return name
}

// foldMarks is stateful, so each call gets its own chain.
func foldMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
