package geneexpr

import (
	"bytes"
	"io"
	"sort"

	"github.com/csimplestring/go-csv/detector"
)

// Delimiters chosen first, in this order, when the detector finds more than
// one candidate.
var preferredDelimiters = []rune{'\t', ',', ';', '|'}

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file. Falls back to fallback when
// nothing could be detected.
func DetermineDelimiter(r io.Reader, fallback rune) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	// Candidates come back in map order
	sort.Strings(delimiters)
	for _, preferred := range preferredDelimiters {
		for _, candidate := range delimiters {
			if candidate == string(preferred) {
				return preferred
			}
		}
	}

	if len(delimiters) > 0 && len(delimiters[0]) > 0 {
		return rune(delimiters[0][0])
	}

	return fallback
}

// DetermineDelimiterBytes is DetermineDelimiter over an in-memory file. Tab
// wins ties with comma: gene tables routinely carry commas inside annotation
// text but never tabs.
func DetermineDelimiterBytes(data []byte, fallback rune) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.Count(firstLine, []byte{'\t'}) > 0 {
		return '\t'
	}

	return DetermineDelimiter(bytes.NewReader(data), fallback)
}
