package output

import (
	"encoding/json"
	"io"

	"github.com/zyniel/westie/internal/event"
)

// WriteJSON writes the table as an indented JSON array ordered by index.
func WriteJSON(w io.Writer, table *event.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(table.Records())
}
