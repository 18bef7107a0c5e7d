package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wesleyorama2/timeit/internal/logger"
	"github.com/wesleyorama2/timeit/internal/result"
)

// JSONConfig contains configuration for the JSON exporter.
type JSONConfig struct {
	// Path of the output file; "-" writes to Writer
	Path   string
	Writer io.Writer

	Indent bool

	// DataPoints keeps the per-iteration data points in the document
	DataPoints bool
}

// JSON writes the run result as a JSON document.
type JSON struct {
	cfg JSONConfig
}

// NewJSON creates a JSON exporter.
func NewJSON(cfg JSONConfig) *JSON {
	if cfg.Path == "" {
		cfg.Path = DefaultJSONPath
	}
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}
	return &JSON{cfg: cfg}
}

// Export implements extension.Exporter.
func (j *JSON) Export(run *result.RunResult) error {
	data, err := j.Marshal(run)
	if err != nil {
		return err
	}

	if j.cfg.Path == "-" {
		_, err := j.cfg.Writer.Write(append(data, '\n'))
		return err
	}

	if dir := filepath.Dir(j.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(j.cfg.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	logger.Info("JSON results written", "path", j.cfg.Path)
	return nil
}

// Marshal encodes run with the exporter settings.
func (j *JSON) Marshal(run *result.RunResult) ([]byte, error) {
	if run == nil {
		return nil, fmt.Errorf("result cannot be nil")
	}

	if !j.cfg.DataPoints {
		trimmed := *run
		trimmed.Scenarios = make([]*result.ScenarioResult, len(run.Scenarios))
		for i, res := range run.Scenarios {
			copied := *res
			copied.DataPoints = nil
			trimmed.Scenarios[i] = &copied
		}
		run = &trimmed
	}

	var data []byte
	var err error
	if j.cfg.Indent {
		data, err = json.MarshalIndent(run, "", "  ")
	} else {
		data, err = json.Marshal(run)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return data, nil
}
