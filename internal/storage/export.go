package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/mlmd/internal/sim"
)

type ExportData struct {
	Run    RunMetadata     `json:"run"`
	Thermo []sim.ThermoRow `json:"thermo"`
}

// ExportJSON writes a stored run, metadata and thermo rows, as one JSON
// document to w.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadThermo(runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(ExportData{Run: *meta, Thermo: rows})
}

func (s *Store) ExportJSONFile(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.ExportJSON(file, runID)
}
