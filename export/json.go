package export

import (
	"encoding/json"
	"io"

	"periodical_index/models"
)

// EncodeJSON writes h as indented JSON. Non-ASCII text and HTML characters are not escaped.
func EncodeJSON(w io.Writer, h *models.Hierarchy) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(h)
}

// WriteJSON saves the hierarchy to path
func WriteJSON(h *models.Hierarchy, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeJSON(w, h)
	})
}
