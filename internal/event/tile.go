package event

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/zyniel/westie/internal/daterange"
)

// Tile selectors, relative to the list item.
const (
	tileImageArea = ".tile-image-area"
	tileOverlay   = ".tile-image-area .tile-overlay"
	tileText      = ".center-content.corner-content .tile-text-container"
	tileTitle     = tileText + " .tile-title"
	tileSubtitle  = tileText + " .tile-subtitle"
	tileDates     = ".tile-corner-container .bottom-left-content.corner-content"
	tileTag       = ".tile-corner-container .top-left-content.corner-content [data-test='app-tag-overlay']"
	tileBanner    = ".tile-image-area img[src]"
)

// Tile is the raw text read from one list item.
type Tile struct {
	// IsEvent is false for rows without an image area, such as headers.
	IsEvent  bool
	Title    string
	Subtitle string
	Dates    string
	Tag      string
	Banner   string
}

// ParseTile extracts the tile fields from an item's outer HTML.
func ParseTile(html string) (Tile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Tile{}, fmt.Errorf("failed to parse tile markup: %w", err)
	}

	if doc.Find(tileImageArea).Length() == 0 {
		return Tile{}, nil
	}

	overlay := doc.Find(tileOverlay).First()
	banner, _ := doc.Find(tileBanner).First().Attr("src")

	return Tile{
		IsEvent:  true,
		Title:    text(overlay.Find(tileTitle)),
		Subtitle: text(overlay.Find(tileSubtitle)),
		Dates:    text(overlay.Find(tileDates)),
		Tag:      text(overlay.Find(tileTag)),
		Banner:   strings.TrimSpace(banner),
	}, nil
}

// text returns the first match's text with whitespace collapsed.
func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

// SplitLocation splits "City, Country" at the first comma. Without a comma the
// whole subtitle is the city.
func SplitLocation(subtitle string) (city, country string) {
	city, country, _ = strings.Cut(subtitle, ",")
	return strings.TrimSpace(city), strings.TrimSpace(country)
}

// Build turns a tile into a validated event. The date range is resolved with
// the French notation used on the site.
func Build(t Tile) (Event, error) {
	r, err := daterange.Parse(t.Dates)
	if err != nil {
		return Event{}, err
	}

	city, country := SplitLocation(t.Subtitle)

	p := Params{
		Name:         t.Title,
		Start:        r.Start,
		End:          r.End,
		City:         city,
		Country:      country,
		FullLocation: t.Subtitle,
		Kind:         ParseKind(t.Tag),
	}
	if t.Banner != "" {
		if u, err := url.Parse(t.Banner); err == nil && u.IsAbs() {
			p.BannerURL = u
		}
	}

	return New(p)
}
