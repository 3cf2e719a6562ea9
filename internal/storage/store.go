// Package storage persists finished runs and writes trajectories.
//
// Each run lives in its own directory under the data directory:
//
//	<id>/metadata.json   run parameters and summary metrics
//	<id>/thermo.csv      one row per logged step
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/mlmd/internal/sim"
)

const (
	metadataFile = "metadata.json"
	thermoFile   = "thermo.csv"
)

var thermoHeader = []string{
	"step", "time_ps", "atoms", "epot", "ekin", "etot", "temperature", "volume", "pressure_gpa",
	"sxx_gpa", "syy_gpa", "szz_gpa", "syz_gpa", "sxz_gpa", "sxy_gpa", "fmax",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Ensemble    string             `json:"ensemble"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	TimestepFS  float64            `json:"timestep_fs"`
	Steps       int                `json:"steps"`
	Temperature float64            `json:"temperature_k"`
	Atoms       int                `json:"atoms"`
	Structure   string             `json:"structure"`
	Calculator  string             `json:"calculator"`
	Device      string             `json:"device"`
	Trajectory  string             `json:"trajectory,omitempty"`
	Elapsed     float64            `json:"elapsed_s"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes a new run and returns its id, <ensemble>_<8 hex digits>.
func (s *Store) Save(meta RunMetadata, rows []sim.ThermoRow) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Ensemble, uuid.NewString()[:8])
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := writeThermo(filepath.Join(runDir, thermoFile), rows); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeThermo(path string, rows []sim.ThermoRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(thermoHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Step),
			formatFloat(r.Time),
			strconv.Itoa(r.Atoms),
			formatFloat(r.Epot),
			formatFloat(r.Ekin),
			formatFloat(r.Etot),
			formatFloat(r.Temperature),
			formatFloat(r.Volume),
			formatFloat(r.Pressure),
		}
		for _, v := range r.Stress {
			rec = append(rec, formatFloat(v))
		}
		rec = append(rec, formatFloat(r.MaxForce))
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadThermo reads back the rows written by Save. Malformed rows are
// skipped.
func (s *Store) LoadThermo(runID string) ([]sim.ThermoRow, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, thermoFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.ThermoRow{}, nil
	}

	rows := make([]sim.ThermoRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(thermoHeader) {
			continue
		}
		vals := make([]float64, len(rec))
		ok := true
		for i, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		row := sim.ThermoRow{
			Step:        int(vals[0]),
			Time:        vals[1],
			Atoms:       int(vals[2]),
			Epot:        vals[3],
			Ekin:        vals[4],
			Etot:        vals[5],
			Temperature: vals[6],
			Volume:      vals[7],
			Pressure:    vals[8],
			MaxForce:    vals[15],
		}
		copy(row.Stress[:], vals[9:15])
		rows = append(rows, row)
	}
	return rows, nil
}

// RunDir returns the directory holding runID.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}
