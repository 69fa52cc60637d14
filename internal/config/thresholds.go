package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"ran-analytics/internal/models"
)

// ThresholdsFile is the on-disk layout of the threshold table:
//
//	thresholds:
//	  latency:
//	    warning: 40
//	    critical: 90
//	  rsrp:
//	    enabled: false
//
// Only the fields present in an entry replace the defaults.
type ThresholdsFile struct {
	Thresholds map[string]ThresholdOverride `yaml:"thresholds"`
}

type ThresholdOverride struct {
	Warning  *float64 `yaml:"warning"`
	Critical *float64 `yaml:"critical"`
	Min      *float64 `yaml:"min"`
	Max      *float64 `yaml:"max"`
	Enabled  *bool    `yaml:"enabled"`
}

func (o ThresholdOverride) apply(t *models.ThresholdConfig) {
	if o.Warning != nil {
		t.Warning = *o.Warning
	}
	if o.Critical != nil {
		t.Critical = *o.Critical
	}
	if o.Min != nil {
		t.Min = *o.Min
	}
	if o.Max != nil {
		t.Max = *o.Max
	}
	if o.Enabled != nil {
		t.Enabled = *o.Enabled
	}
}

// LoadThresholds returns the default table with the overrides from path
// applied. An empty path yields the defaults.
func LoadThresholds(path string) (models.ThresholdTable, error) {
	if path == "" {
		return models.DefaultThresholds(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ThresholdTable{}, fmt.Errorf("read thresholds: %w", err)
	}
	return ParseThresholds(data)
}

// ParseThresholds decodes a YAML threshold document over the defaults.
func ParseThresholds(data []byte) (models.ThresholdTable, error) {
	table := models.DefaultThresholds()

	var file ThresholdsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return models.ThresholdTable{}, fmt.Errorf("parse thresholds: %w", err)
	}

	for name, override := range file.Thresholds {
		kind, err := models.ParseMetricKind(name)
		if err != nil {
			return models.ThresholdTable{}, fmt.Errorf("parse thresholds: %w", err)
		}
		override.apply(&table[kind])
	}
	return table, nil
}

// MarshalThresholds renders a full table in the layout ParseThresholds reads.
func MarshalThresholds(table models.ThresholdTable) ([]byte, error) {
	out := struct {
		Thresholds map[string]models.ThresholdConfig `yaml:"thresholds"`
	}{Thresholds: make(map[string]models.ThresholdConfig, len(table))}
	for _, kind := range models.AllMetricKinds() {
		out.Thresholds[kind.String()] = table[kind]
	}
	return yaml.Marshal(out)
}
