package model

import (
	"strconv"
	"strings"
)

// FormatDuration renders a duration as "MM:SS". duration may be a plain
// number of seconds or an already-formatted "MM:SS" string, in which case it
// is returned unchanged; either way FormatDuration(FormatDuration(x)) ==
// FormatDuration(x). Unparseable input formats as "00:00", mirroring the
// original service's duration_formatter.
func FormatDuration(duration string) string {
	if strings.Contains(duration, ":") {
		return duration
	}

	seconds, err := strconv.ParseFloat(duration, 64)
	if err != nil {
		return "00:00"
	}

	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	return pad2(minutes) + ":" + pad2(secs)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
