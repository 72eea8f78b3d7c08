// Package record implements the result recorder (spec.md 4.G): a bounded,
// append-only ring of per-iteration snapshots, exported as the CSV files
// named in spec.md 6. Each entry owns its own tensor snapshots -- no
// references into the optimizer's mutable state survive past Add, per
// spec.md 9 ("Scoped snapshots -> value-typed recorder entries").
package record

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gonum.org/v1/gonum/mat"
)

// Snapshot is one GVI-GH iteration's recorded state.
type Snapshot struct {
	Iter        int
	Mu          *mat.VecDense
	Sigma       *mat.Dense
	Lambda      *mat.Dense
	TotalCost   float64
	FactorCosts []float64
}

// Recorder is a bounded ring of Snapshots. Writes beyond Cap are discarded
// (not overwritten) and logged, per spec.md 4.G.
type Recorder struct {
	Cap       int
	snapshots []Snapshot
	dropped   int
}

// NewRecorder allocates a recorder bounded by the configured iteration cap.
func NewRecorder(cap int) *Recorder {
	return &Recorder{Cap: cap, snapshots: make([]Snapshot, 0, cap)}
}

// Add appends a snapshot, copying tensors so later mutation of the
// optimizer's live state cannot alter a recorded entry.
func (o *Recorder) Add(s Snapshot) {
	if len(o.snapshots) >= o.Cap {
		o.dropped++
		io.Pfyel("record: recorder full at cap=%d, dropping snapshot for iter %d\n", o.Cap, s.Iter)
		return
	}
	cp := Snapshot{
		Iter:        s.Iter,
		Mu:          mat.VecDenseCopyOf(s.Mu),
		Sigma:       mat.DenseCopyOf(s.Sigma),
		Lambda:      mat.DenseCopyOf(s.Lambda),
		TotalCost:   s.TotalCost,
		FactorCosts: append([]float64(nil), s.FactorCosts...),
	}
	o.snapshots = append(o.snapshots, cp)
}

// Len is the number of snapshots actually recorded so far.
func (o *Recorder) Len() int { return len(o.snapshots) }

// Dropped is the number of snapshots discarded after the ring filled up.
func (o *Recorder) Dropped() int { return o.dropped }

// Snapshots returns the recorded entries in iteration order.
func (o *Recorder) Snapshots() []Snapshot { return o.snapshots }

// Export writes mean.csv, cov.csv, precision.csv, cost.csv, and
// factor_costs.csv into dir, each comma-separated with fixed 4-decimal
// precision and no header, per spec.md 6.
func (o *Recorder) Export(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return chk.Err("io_error: cannot create output dir %q: %v", dir, err)
	}
	if err := writeRows(filepath.Join(dir, "mean.csv"), meanRows(o.snapshots)); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(dir, "cov.csv"), matRows(o.snapshots, func(s Snapshot) *mat.Dense { return s.Sigma })); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(dir, "precision.csv"), matRows(o.snapshots, func(s Snapshot) *mat.Dense { return s.Lambda })); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(dir, "cost.csv"), costRows(o.snapshots)); err != nil {
		return err
	}
	if err := writeRows(filepath.Join(dir, "factor_costs.csv"), factorCostRows(o.snapshots)); err != nil {
		return err
	}
	return nil
}

func meanRows(snaps []Snapshot) [][]string {
	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		n := s.Mu.Len()
		row := make([]string, n)
		for k := 0; k < n; k++ {
			row[k] = format4(s.Mu.AtVec(k))
		}
		rows[i] = row
	}
	return rows
}

func costRows(snaps []Snapshot) [][]string {
	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		rows[i] = []string{format4(s.TotalCost)}
	}
	return rows
}

func factorCostRows(snaps []Snapshot) [][]string {
	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		row := make([]string, len(s.FactorCosts))
		for k, c := range s.FactorCosts {
			row[k] = format4(c)
		}
		rows[i] = row
	}
	return rows
}

// matRows flattens each snapshot's matrix, row-major, into a single CSV
// row per iteration, per spec.md 6 ("one row-major block per line").
func matRows(snaps []Snapshot, pick func(Snapshot) *mat.Dense) [][]string {
	rows := make([][]string, len(snaps))
	for i, s := range snaps {
		m := pick(s)
		r, c := m.Dims()
		row := make([]string, 0, r*c)
		for a := 0; a < r; a++ {
			for b := 0; b < c; b++ {
				row = append(row, format4(m.At(a, b)))
			}
		}
		rows[i] = row
	}
	return rows
}

func format4(v float64) string { return fmt.Sprintf("%.4f", v) }

func writeRows(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return chk.Err("io_error: cannot create %q: %v", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return chk.Err("io_error: cannot write %q: %v", path, err)
		}
	}
	w.Flush()
	return w.Error()
}
