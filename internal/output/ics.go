package output

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/zyniel/westie/internal/event"
)

// ProductID identifies the generator in exported calendars.
const ProductID = "-//westie//event harvest//FR"

var now = time.Now

// eventUID is stable across runs for the same name and start day, so
// calendar clients update events instead of duplicating them.
func eventUID(e event.Event) string {
	sum := sha1.Sum([]byte(e.Name() + "|" + e.Start().Format(time.DateOnly)))
	return hex.EncodeToString(sum[:10]) + "@westie.app"
}

// WriteICS writes the table as an iCalendar feed of all-day events.
func WriteICS(w io.Writer, table *event.Table) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	stamp := now().UTC()
	for _, entry := range table.Entries() {
		e := entry.Event

		ve := cal.AddEvent(eventUID(e))
		ve.SetDtStampTime(stamp)
		ve.SetSummary(e.Name())
		ve.SetAllDayStartAt(e.Start())
		// DTEND is exclusive for all-day events
		ve.SetAllDayEndAt(e.End().AddDate(0, 0, 1))
		if loc := e.Location(); loc != "" {
			ve.SetLocation(loc)
		}
		if u := e.WebsiteURL(); u != nil {
			ve.SetURL(u.String())
		} else if u := e.FacebookURL(); u != nil {
			ve.SetURL(u.String())
		}
		ve.AddProperty(ical.ComponentPropertyCategories, strings.ToUpper(e.Kind().String()))
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
