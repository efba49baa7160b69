package formatter

import (
	"encoding/json"
	"io"
)

// WriteJSONL writes each item as one JSON object per line, leaving < > &
// unescaped so log text stays readable.
func WriteJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}
