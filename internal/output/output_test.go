package output

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyniel/westie/internal/event"
)

func sampleTable(t *testing.T) *event.Table {
	t.Helper()
	site, err := url.Parse("https://springswing.example/")
	require.NoError(t, err)

	table := event.NewTable()
	first, err := event.New(event.Params{
		Name:         "Spring Swing",
		Start:        time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2024, time.May, 3, 0, 0, 0, 0, time.UTC),
		City:         "Lyon",
		Country:      "France",
		FullLocation: "Lyon, France",
		WebsiteURL:   site,
		Kind:         event.KindWSDC,
	})
	require.NoError(t, err)
	second, err := event.New(event.Params{
		Name:  "Social du jeudi",
		Start: time.Date(2024, time.June, 6, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.June, 6, 0, 0, 0, 0, time.UTC),
		City:  "Paris",
	})
	require.NoError(t, err)

	table.InsertIfAbsent(4, second)
	table.InsertIfAbsent(2, first)
	return table
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json": FormatJSON, "CSV": FormatCSV, "ical": FormatICS, "ics": FormatICS,
		"md": FormatMarkdown, "db": FormatSQLite, "sqlite3": FormatSQLite,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)

	got, err := FormatFromPath("out/events.ics")
	require.NoError(t, err)
	assert.Equal(t, FormatICS, got)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleTable(t)))

	var records []event.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Index)
	assert.Equal(t, "Spring Swing", records[0].Name)
	assert.Equal(t, "2024-05-03", records[0].EndDate)
	assert.Equal(t, "wsdc", records[0].Kind)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable(t)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"2", "Spring Swing", "2024-05-01", "2024-05-03", "Lyon", "France",
		"wsdc", "https://springswing.example/", "", ""}, rows[1])
	assert.Equal(t, "Social du jeudi", rows[2][1])
}

func TestWriteICS(t *testing.T) {
	now = func() time.Time { return time.Date(2024, time.April, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	var buf bytes.Buffer
	require.NoError(t, WriteICS(&buf, sampleTable(t)))

	cal, err := ical.ParseCalendar(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	spring := events[0]
	assert.Equal(t, "Spring Swing", spring.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20240501", spring.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240504", spring.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "https://springswing.example/", spring.GetProperty(ical.ComponentPropertyUrl).Value)
	assert.Equal(t, "WSDC", spring.GetProperty(ical.ComponentPropertyCategories).Value)

	social := events[1]
	assert.Nil(t, social.GetProperty(ical.ComponentPropertyUrl))
	assert.NotEqual(t, spring.Id(), social.Id())
}

func TestEventUID_Stable(t *testing.T) {
	table := sampleTable(t)
	e, _ := table.Get(2)
	assert.Equal(t, eventUID(e), eventUID(e))
	assert.True(t, strings.HasSuffix(eventUID(e), "@westie.app"))
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, sampleTable(t)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Events\n"))
	assert.Contains(t, out, "[Spring Swing](https://springswing.example/)")
	assert.Contains(t, out, "2024-05-01 → 2024-05-03")
	assert.Contains(t, out, "Social du jeudi")
	assert.Contains(t, out, "|")
}

func TestSave_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	require.NoError(t, Save(FormatJSON, sampleTable(t), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Spring Swing")

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestSaveSQLite_Accumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	table := sampleTable(t)

	require.NoError(t, Save(FormatSQLite, table, path))
	require.NoError(t, Save(FormatSQLite, table, path))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count))
	assert.Equal(t, 2, count)

	var country sql.NullString
	require.NoError(t, db.QueryRow("SELECT country FROM events WHERE name = ?", "Social du jeudi").Scan(&country))
	assert.False(t, country.Valid)
}
