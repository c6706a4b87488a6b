package reporter

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the full report as indented JSON
func WriteJSON(report *Report, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return nil
}
