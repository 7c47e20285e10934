// Package daterange parses the compact French date-range notation shown on
// event tiles ("12-14 Janvier 2024", "30 Mars - 2 Avril 2024",
// "30 Décembre 2023 - 2 Janvier 2024") into a pair of calendar days.
package daterange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Parse errors. A start and end failure are reported together through errors.Join.
var (
	ErrUnknownPattern       = errors.New("date range matches no known pattern")
	ErrStartDateUnparseable = errors.New("start date unparseable")
	ErrEndDateUnparseable   = errors.New("end date unparseable")
)

// Pattern identifies which of the three grammars a range matched.
type Pattern int

const (
	PatternUnknown Pattern = iota
	// PatternSameMonth is "D-D Month YYYY".
	PatternSameMonth
	// PatternSameYear is "D Month - D Month YYYY".
	PatternSameYear
	// PatternDifferentYears is "D Month YYYY - D Month YYYY".
	PatternDifferentYears
)

func (p Pattern) String() string {
	switch p {
	case PatternSameMonth:
		return "same-month"
	case PatternSameYear:
		return "same-year"
	case PatternDifferentYears:
		return "different-years"
	default:
		return "unknown"
	}
}

var grammars = []struct {
	pattern Pattern
	re      *regexp.Regexp
}{
	{PatternSameMonth, regexp.MustCompile(`^\d{1,2}-\d{1,2} \pL+ \d{4}$`)},
	{PatternSameYear, regexp.MustCompile(`^\d{1,2} \pL+ - \d{1,2} \pL+ \d{4}$`)},
	{PatternDifferentYears, regexp.MustCompile(`^\d{1,2} \pL+ \d{4} - \d{1,2} \pL+ \d{4}$`)},
}

// Range is an inclusive span of calendar days. Both bounds are midnight UTC.
type Range struct {
	Start   time.Time
	End     time.Time
	Pattern Pattern
}

// Classify reports the single grammar text matches, or PatternUnknown when it
// matches none or more than one.
func Classify(text string) Pattern {
	text = norm.NFC.String(text)

	matched := PatternUnknown
	for _, g := range grammars {
		if !g.re.MatchString(text) {
			continue
		}
		if matched != PatternUnknown {
			return PatternUnknown
		}
		matched = g.pattern
	}
	return matched
}

// Parse resolves text into a Range.
//
// The pattern decides how the text is split at its first '-':
//   - same month: the left day borrows the month and year of the right side
//   - same year: the left "D Month" borrows the trailing year
//   - different years: both sides are complete dates
//
// The parser performs no ordering check; callers validate start <= end.
func Parse(text string) (Range, error) {
	text = norm.NFC.String(strings.TrimSpace(text))

	pattern := Classify(text)
	if pattern == PatternUnknown {
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownPattern, text)
	}

	startText, endText := split(text, pattern)

	start, startErr := ParseDay(startText)
	if startErr != nil {
		startErr = fmt.Errorf("%w: %q: %v", ErrStartDateUnparseable, startText, startErr)
	}
	end, endErr := ParseDay(endText)
	if endErr != nil {
		endErr = fmt.Errorf("%w: %q: %v", ErrEndDateUnparseable, endText, endErr)
	}
	if err := errors.Join(startErr, endErr); err != nil {
		return Range{}, err
	}

	return Range{Start: start, End: end, Pattern: pattern}, nil
}

// split returns the start and end date texts, both in "D Month YYYY" form.
func split(text string, pattern Pattern) (string, string) {
	sep := strings.IndexByte(text, '-')
	left := strings.TrimSpace(text[:sep])
	right := strings.TrimSpace(text[sep+1:])

	switch pattern {
	case PatternSameMonth:
		// right is "D Month YYYY"; keep everything after its day
		_, monthYear, _ := strings.Cut(right, " ")
		return left + " " + monthYear, right
	case PatternSameYear:
		return left + " " + right[len(right)-4:], right
	default:
		return left, right
	}
}

// ParseDay parses a single "D Month YYYY" date with a French month name.
// Days that do not exist in the given month are rejected.
func ParseDay(text string) (time.Time, error) {
	fields := strings.Fields(norm.NFC.String(text))
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("expected day, month and year, got %d fields", len(fields))
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q", fields[0])
	}
	month, ok := LookupMonth(fields[1])
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month %q", fields[1])
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil || len(fields[2]) != 4 {
		return time.Time{}, fmt.Errorf("invalid year %q", fields[2])
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("day %d does not exist in %s %d", day, FormatMonth(month), year)
	}
	return t, nil
}
