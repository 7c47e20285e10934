// Package event holds the canonical event record and the table that
// collects them during a harvest.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Kind classifies an event.
type Kind int

const (
	KindSocial Kind = iota
	KindWSDC
)

func (k Kind) String() string {
	if k == KindWSDC {
		return "wsdc"
	}
	return "social"
}

// MarshalText encodes the kind as its lower-case name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind maps a tile tag to a Kind. Only "WSDC", in any case, is special.
func ParseKind(tag string) Kind {
	if strings.EqualFold(strings.TrimSpace(tag), "WSDC") {
		return KindWSDC
	}
	return KindSocial
}

// ErrInvalidEvent is matched by every ValidationError.
var ErrInvalidEvent = errors.New("invalid event")

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEvent
}

// Params are the inputs to New.
type Params struct {
	Name         string
	Start        time.Time
	End          time.Time
	City         string
	Country      string
	FullLocation string
	FacebookURL  *url.URL
	WebsiteURL   *url.URL
	BannerURL    *url.URL
	Kind         Kind
}

// Event is an immutable, validated event record.
type Event struct {
	name         string
	start        time.Time
	end          time.Time
	city         string
	country      string
	fullLocation string
	facebookURL  *url.URL
	websiteURL   *url.URL
	bannerURL    *url.URL
	kind         Kind
}

// New validates p and returns the event. Dates are truncated to their
// calendar day.
func New(p Params) (Event, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return Event{}, &ValidationError{Field: "name", Reason: "is required"}
	}
	if p.Start.IsZero() {
		return Event{}, &ValidationError{Field: "start", Reason: "is required"}
	}
	if p.End.IsZero() {
		return Event{}, &ValidationError{Field: "end", Reason: "is required"}
	}

	start, end := calendarDay(p.Start), calendarDay(p.End)
	if start.After(end) {
		return Event{}, &ValidationError{
			Field:  "end",
			Reason: fmt.Sprintf("%s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly)),
		}
	}

	return Event{
		name:         name,
		start:        start,
		end:          end,
		city:         strings.TrimSpace(p.City),
		country:      strings.TrimSpace(p.Country),
		fullLocation: strings.TrimSpace(p.FullLocation),
		facebookURL:  cloneURL(p.FacebookURL),
		websiteURL:   cloneURL(p.WebsiteURL),
		bannerURL:    cloneURL(p.BannerURL),
		kind:         p.Kind,
	}, nil
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}

func (e Event) Name() string         { return e.name }
func (e Event) Start() time.Time     { return e.start }
func (e Event) End() time.Time       { return e.end }
func (e Event) City() string         { return e.city }
func (e Event) Country() string      { return e.country }
func (e Event) FullLocation() string { return e.fullLocation }
func (e Event) Kind() Kind           { return e.kind }

// FacebookURL returns a copy, or nil when unset.
func (e Event) FacebookURL() *url.URL { return cloneURL(e.facebookURL) }

// WebsiteURL returns a copy, or nil when unset.
func (e Event) WebsiteURL() *url.URL { return cloneURL(e.websiteURL) }

// BannerURL returns a copy, or nil when unset.
func (e Event) BannerURL() *url.URL { return cloneURL(e.bannerURL) }

// Location joins city and country the way tiles display them.
func (e Event) Location() string {
	switch {
	case e.fullLocation != "":
		return e.fullLocation
	case e.country == "":
		return e.city
	case e.city == "":
		return e.country
	}
	return e.city + ", " + e.country
}

// Record is the flat export form of an event. Dates are YYYY-MM-DD and
// unset URLs are empty.
type Record struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	City         string `json:"city,omitempty"`
	Country      string `json:"country,omitempty"`
	FullLocation string `json:"fullLocation,omitempty"`
	FacebookURL  string `json:"facebookUrl,omitempty"`
	WebsiteURL   string `json:"websiteUrl,omitempty"`
	BannerURL    string `json:"bannerUrl,omitempty"`
	Kind         string `json:"kind"`
}

// Record flattens e for export under the given list index.
func (e Event) Record(index int) Record {
	return Record{
		Index:        index,
		Name:         e.name,
		StartDate:    e.start.Format(time.DateOnly),
		EndDate:      e.end.Format(time.DateOnly),
		City:         e.city,
		Country:      e.country,
		FullLocation: e.fullLocation,
		FacebookURL:  urlString(e.facebookURL),
		WebsiteURL:   urlString(e.websiteURL),
		BannerURL:    urlString(e.bannerURL),
		Kind:         e.kind.String(),
	}
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

// MarshalJSON writes the record form without an index.
func (e Event) MarshalJSON() ([]byte, error) {
	r := e.Record(0)
	return json.Marshal(struct {
		Record
		Index int `json:"index,omitempty"`
	}{Record: r})
}
