// Package model holds the record types shared between the experiment driver,
// the artifact writers, and the storage backends.
package model

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunSummary records one completed treatment (a parameter combo driven to
// completion in either mode).
type RunSummary struct {
	VersionedRecord
	RunID        string  `json:"run_id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Mode         string  `json:"mode"` // "multicell" or "evolution"
	Seed         int64   `json:"seed"`
	ComboID      int     `json:"combo_id"`
	Combo        string  `json:"combo"`
	DataCount    int     `json:"data_count"`
	GenCount     int     `json:"gen_count,omitempty"`
	PopSize      int     `json:"pop_size,omitempty"`
	SampleSize   int     `json:"sample_size,omitempty"`
	AveTime      float64 `json:"ave_time,omitempty"`
	FracRestrain float64 `json:"frac_restrain,omitempty"`
}

// SampleSet is a persisted reservoir of observed multicell reproduction
// times for one genome one-count.
type SampleSet struct {
	VersionedRecord
	NumOnes int       `json:"num_ones"`
	Times   []float64 `json:"times"`
}
