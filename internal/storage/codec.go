package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kgskocelas/Primordium/internal/model"
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRunSummary(s model.RunSummary) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeRunSummary(data []byte) (model.RunSummary, error) {
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, err
	}
	if err := checkVersion(summary.VersionedRecord); err != nil {
		return model.RunSummary{}, err
	}
	return summary, nil
}

func EncodeSampleSet(s model.SampleSet) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSampleSet(data []byte) (model.SampleSet, error) {
	var set model.SampleSet
	if err := json.Unmarshal(data, &set); err != nil {
		return model.SampleSet{}, err
	}
	if err := checkVersion(set.VersionedRecord); err != nil {
		return model.SampleSet{}, err
	}
	return set, nil
}

func checkVersion(rec model.VersionedRecord) error {
	if rec.SchemaVersion > model.CurrentSchemaVersion || rec.CodecVersion > model.CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, rec.SchemaVersion, rec.CodecVersion)
	}
	return nil
}

// Stamp fills in the current schema and codec versions on a record.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: model.CurrentSchemaVersion,
		CodecVersion:  model.CurrentCodecVersion,
	}
}
