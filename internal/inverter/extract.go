package inverter

import (
	"strconv"
	"strings"
)

// powerMarker precedes the power value in the status page script.
const powerMarker = "var webdata_now_p = "

// previewLength is how much of a fetched page is logged.
const previewLength = 50

// ExtractPower returns the integer between powerMarker and the next ';'.
// Surrounding whitespace and one pair of quotes are removed before parsing.
// A missing marker, a missing terminator, or a value that is not an integer
// yields ok == false.
func ExtractPower(body string) (watts int, ok bool) {
	start := strings.Index(body, powerMarker)
	if start < 0 {
		return 0, false
	}
	rest := body[start+len(powerMarker):]

	end := strings.IndexByte(rest, ';')
	if end < 0 {
		return 0, false
	}

	value := unquote(strings.TrimSpace(rest[:end]))
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return n, true
}

// unquote strips one pair of matching single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if q := s[0]; (q == '"' || q == '\'') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// preview returns the first previewLength characters of body.
func preview(body string) string {
	r := []rune(body)
	if len(r) <= previewLength {
		return body
	}
	return string(r[:previewLength]) + " ..."
}
