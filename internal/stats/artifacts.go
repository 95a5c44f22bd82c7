// Package stats writes the run artifacts: the multicell and evolution CSV
// outputs, the config echo, per-run trace file names, and a JSON run index
// that accumulates across invocations.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/kgskocelas/Primordium/internal/model"
)

const runIndexFile = "run_index.json"

// MulticellCSV writes the multicell summary: one row per combo with the
// combo settings, optional per-replicate columns, and the ave_time /
// frac_restrain summary pair.
type MulticellCSV struct {
	w *csv.Writer
}

func NewMulticellCSV(w io.Writer) *MulticellCSV {
	return &MulticellCSV{w: csv.NewWriter(w)}
}

func (m *MulticellCSV) WriteHeader(comboHeaders []string, printReps bool, dataCount int) error {
	row := make([]string, 0, len(comboHeaders)+dataCount+2)
	row = append(row, comboHeaders...)
	if len(row) > 0 {
		row[0] = "#" + row[0]
	}
	if printReps {
		for i := 0; i < dataCount; i++ {
			row = append(row, fmt.Sprintf("run%d", i))
		}
	}
	row = append(row, "ave_time", "frac_restrain")
	return m.writeRow(row)
}

func (m *MulticellCSV) WriteRow(combo []string, repTimes []float64, aveTime, fracRestrain float64) error {
	row := make([]string, 0, len(combo)+len(repTimes)+2)
	row = append(row, combo...)
	for _, t := range repTimes {
		row = append(row, formatFloat(t))
	}
	row = append(row, formatFloat(aveTime), formatFloat(fracRestrain))
	return m.writeRow(row)
}

func (m *MulticellCSV) writeRow(row []string) error {
	if err := m.w.Write(row); err != nil {
		return err
	}
	m.w.Flush()
	return m.w.Error()
}

// WriteEvolutionHeader emits the header of the evolution output; rows are
// `run_id,num_ones,count` triples appended by the population layer.
func WriteEvolutionHeader(w io.Writer) error {
	_, err := fmt.Fprintln(w, "#run_id,num_ones,count")
	return err
}

// WriteConfigEcho records the resolved settings of an invocation as a
// two-line CSV: header then values.
func WriteConfigEcho(w io.Writer, headers, values []string) error {
	cw := csv.NewWriter(w)
	headerRow := make([]string, len(headers))
	copy(headerRow, headers)
	if len(headerRow) > 0 {
		headerRow[0] = "#" + headerRow[0]
	}
	if err := cw.Write(headerRow); err != nil {
		return err
	}
	if err := cw.Write(values); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// TraceFileName names the per-run trace artifact for a combo/run pair.
func TraceFileName(comboID, runID int) string {
	return fmt.Sprintf("t%dr%d.dat", comboID, runID)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// AppendRunIndex adds an entry to <dir>/run_index.json, creating the file
// and directory as needed.
func AppendRunIndex(dir string, entry model.RunSummary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := ListRunIndex(dir)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, runIndexFile), data, 0o644)
}

// ListRunIndex reads the run index, newest first. A missing index is an
// empty list.
func ListRunIndex(dir string) ([]model.RunSummary, error) {
	data, err := os.ReadFile(filepath.Join(dir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []model.RunSummary
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", runIndexFile, err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}
