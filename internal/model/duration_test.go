package model

import "testing"

func TestFormatDurationFormatsWholeSecondsAsMinutesSeconds(t *testing.T) {
	cases := map[string]string{
		"0":   "00:00",
		"5":   "00:05",
		"65":  "01:05",
		"600": "10:00",
		"609": "10:09",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDurationPassesThroughAlreadyFormattedInput(t *testing.T) {
	if got := FormatDuration("03:45"); got != "03:45" {
		t.Errorf("FormatDuration(%q) = %q, want unchanged", "03:45", got)
	}
}

func TestFormatDurationFallsBackOnUnparseableInput(t *testing.T) {
	if got := FormatDuration("not-a-number"); got != "00:00" {
		t.Errorf("FormatDuration(%q) = %q, want %q", "not-a-number", got, "00:00")
	}
}

func TestFormatDurationIsIdempotent(t *testing.T) {
	for _, in := range []string{"125", "03:45", "garbage"} {
		once := FormatDuration(in)
		twice := FormatDuration(once)
		if once != twice {
			t.Errorf("FormatDuration not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
