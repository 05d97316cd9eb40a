package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the document as indented JSON.
func WriteJSON(w io.Writer, d *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
