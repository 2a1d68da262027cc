package mapper

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/guregu/null.v3"
)

// Tokens that tabular GEO and DAVID exports use for an absent value. Matches
// the default NA set of the pandas CSV reader.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing reports whether a raw cell denotes an absent value. "null" is
// recognized in any letter case.
func IsMissing(raw string) bool {
	s := strings.TrimSpace(raw)
	if _, ok := missingTokens[s]; ok {
		return true
	}

	return strings.EqualFold(s, "null")
}

// ParseFloat parses a raw cell as a float. Missing tokens, NaN and text that
// is not numeric yield an invalid value. Infinities are returned as valid;
// callers decide what to do with them.
func ParseFloat(raw string) null.Float {
	if IsMissing(raw) {
		return null.Float{}
	}

	s := asciiDigits(strings.TrimSpace(raw))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !isRangeError(err) {
		return null.Float{}
	}
	if math.IsNaN(f) {
		return null.Float{}
	}

	return null.FloatFrom(f)
}

// ParseGeneID canonicalizes a destination cell into an Entrez gene id:
// numeric input (including exponents and digits from any Unicode decimal
// script) is truncated to an integer and formatted in base 10. Missing,
// non-numeric, non-finite and zero values yield an invalid id.
func ParseGeneID(raw string) null.String {
	f := ParseFloat(raw)
	if !f.Valid || math.IsInf(f.Float64, 0) {
		return null.String{}
	}

	whole := math.Trunc(f.Float64)
	if whole == 0 || math.Abs(whole) >= 1<<63 {
		return null.String{}
	}

	return null.StringFrom(strconv.FormatInt(int64(whole), 10))
}

func isRangeError(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}

// asciiDigits rewrites decimal digits from any script (e.g., Arabic-Indic or
// fullwidth) as ASCII so strconv can read them.
func asciiDigits(s string) string {
	ascii := true
	for _, r := range s {
		if r > unicode.MaxASCII {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}

	var b strings.Builder
	for _, r := range s {
		if r > unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune('0' + digitValue(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// digitValue relies on Unicode allocating every decimal digit script as a
// contiguous run that starts at zero; adjacent runs (as in the mathematical
// alphanumerics) are each ten long.
func digitValue(r rune) rune {
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}

	return (r - start) % 10
}
