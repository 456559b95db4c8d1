package export

import (
	"encoding/json"
	"io"

	"github.com/san-kum/springsim/internal/physics"
	"github.com/san-kum/springsim/internal/storage"
)

type Document struct {
	Run     storage.RunMetadata `json:"run"`
	Steps   int                 `json:"steps"`
	Samples []physics.Sample    `json:"samples"`
}

// JSON writes a run and its samples as one indented document.
func JSON(w io.Writer, meta storage.RunMetadata, samples []physics.Sample) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Run: meta, Steps: len(samples), Samples: samples})
}
