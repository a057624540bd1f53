package tracking

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind selects how a work identifier is normalized and validated.
type Kind int

const (
	// KindVIN is a 17-character alphanumeric vehicle identifier.
	KindVIN Kind = iota
	// KindColor is a free-form color token (name or hex code).
	KindColor
)

const vinLength = 17

var (
	vinValidPattern = regexp.MustCompile(`^[A-Z0-9]{17}$`)
	nonAlnumPattern = regexp.MustCompile(`[^A-Z0-9]`)
	hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// Normalize canonicalizes a raw work identifier. It is pure and idempotent.
//
// VIN: uppercase, strip everything outside [A-Z0-9], truncate to 17.
// Color: trim; hex codes are uppercased, anything else is title-cased.
func Normalize(raw string, kind Kind) string {
	switch kind {
	case KindVIN:
		vin := nonAlnumPattern.ReplaceAllString(strings.ToUpper(raw), "")
		if len(vin) > vinLength {
			vin = vin[:vinLength]
		}
		return vin
	case KindColor:
		color := strings.TrimSpace(raw)
		if hexColorPattern.MatchString(color) {
			return strings.ToUpper(color)
		}
		// Casers are stateful, so build one per call.
		return cases.Title(language.Spanish).String(strings.ToLower(color))
	default:
		return strings.TrimSpace(raw)
	}
}

// ValidVIN reports whether a normalized VIN is syntactically complete.
func ValidVIN(vin string) bool {
	return vinValidPattern.MatchString(vin)
}

// ValidColor reports whether a normalized color token is usable.
func ValidColor(color string) bool {
	return strings.TrimSpace(color) != ""
}

// Valid applies the stage-specific syntactic validity predicate.
func (k Kind) Valid(identifier string) bool {
	if k == KindVIN {
		return ValidVIN(identifier)
	}
	return ValidColor(identifier)
}
