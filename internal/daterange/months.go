package daterange

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// frenchMonths holds the canonical lower-case names.
var frenchMonths = [12]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// monthsByName maps case-folded names to months. Unaccented spellings are
// accepted as well since tiles are typed by hand.
var monthsByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 15)
	for i, name := range frenchMonths {
		m[foldName(name)] = time.Month(i + 1)
	}
	m["fevrier"] = time.February
	m["aout"] = time.August
	m["decembre"] = time.December
	return m
}()

// LookupMonth resolves a French month name regardless of case.
func LookupMonth(name string) (time.Month, bool) {
	m, ok := monthsByName[foldName(name)]
	return m, ok
}

// Casers keep state, so each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

// FormatMonth returns the title-cased French name, "Janvier" for time.January.
func FormatMonth(m time.Month) string {
	if m < time.January || m > time.December {
		return m.String()
	}
	return cases.Title(language.French).String(frenchMonths[m-1])
}

// Format renders t as "DD Month YYYY", the form ParseDay accepts.
func Format(t time.Time) string {
	return fmt.Sprintf("%02d %s %04d", t.Day(), FormatMonth(t.Month()), t.Year())
}
