package truncate

import "unicode/utf8"

const ellipsis = "..."

// Split caps s at maxLen bytes. When s fits, it is returned unchanged with an
// empty remainder. Otherwise the first return value is the capped prefix with
// an ellipsis appended and the second is the complete original string, so the
// caller can carry it in a separate long-form field. The cut never lands in
// the middle of a UTF-8 sequence.
func Split(s string, maxLen int) (string, string) {
	if len(s) <= maxLen {
		return s, ""
	}

	cut := maxLen
	if cut > len(ellipsis) {
		cut -= len(ellipsis)
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	if maxLen <= len(ellipsis) {
		return s[:cut], s
	}
	return s[:cut] + ellipsis, s
}
