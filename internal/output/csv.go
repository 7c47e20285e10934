package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/zyniel/westie/internal/event"
)

var csvHeader = []string{
	"index", "name", "start_date", "end_date", "city", "country",
	"kind", "website_url", "facebook_url", "banner_url",
}

// WriteCSV writes one row per event with a header row.
func WriteCSV(w io.Writer, table *event.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range table.Records() {
		row := []string{
			strconv.Itoa(r.Index), r.Name, r.StartDate, r.EndDate, r.City, r.Country,
			r.Kind, r.WebsiteURL, r.FacebookURL, r.BannerURL,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
