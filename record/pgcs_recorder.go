package record

import (
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/ChenZhenY/VIMP/traj"
)

// PGCSSnapshot is one PGCS outer-loop iteration's recorded state: the
// time-varying feedback (K, d) and the propagated closed-loop trajectory
// (z, Sigma), per spec.md 4.F/4.G.
type PGCSSnapshot struct {
	Iter int
	Kt   *traj.Tensor3
	Dt   *traj.Tensor3
	Zk   *traj.Tensor3
	Sk   *traj.Tensor3
	Err  float64
}

// PGCSRecorder is the PGCS analogue of Recorder: same bounded-ring,
// append-only, drop-when-full policy.
type PGCSRecorder struct {
	Cap       int
	snapshots []PGCSSnapshot
	dropped   int
}

func NewPGCSRecorder(cap int) *PGCSRecorder {
	return &PGCSRecorder{Cap: cap, snapshots: make([]PGCSSnapshot, 0, cap)}
}

func (o *PGCSRecorder) Add(s PGCSSnapshot) {
	if len(o.snapshots) >= o.Cap {
		o.dropped++
		io.Pfyel("record: PGCS recorder full at cap=%d, dropping snapshot for iter %d\n", o.Cap, s.Iter)
		return
	}
	o.snapshots = append(o.snapshots, s)
}

func (o *PGCSRecorder) Len() int                    { return len(o.snapshots) }
func (o *PGCSRecorder) Dropped() int                { return o.dropped }
func (o *PGCSRecorder) Snapshots() []PGCSSnapshot    { return o.snapshots }

// Export writes Kt.csv, dt.csv, zk.csv, Sk.csv: one row per iteration, each
// row the row-major flattening of every timestep's tensor slice,
// concatenated in time order, per spec.md 6.
func (o *PGCSRecorder) Export(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return chk.Err("io_error: cannot create output dir %q: %v", dir, err)
	}
	writers := []struct {
		name string
		pick func(PGCSSnapshot) *traj.Tensor3
	}{
		{"Kt.csv", func(s PGCSSnapshot) *traj.Tensor3 { return s.Kt }},
		{"dt.csv", func(s PGCSSnapshot) *traj.Tensor3 { return s.Dt }},
		{"zk.csv", func(s PGCSSnapshot) *traj.Tensor3 { return s.Zk }},
		{"Sk.csv", func(s PGCSSnapshot) *traj.Tensor3 { return s.Sk }},
	}
	for _, w := range writers {
		rows := make([][]string, len(o.snapshots))
		for i, s := range o.snapshots {
			rows[i] = tensorRow(w.pick(s))
		}
		if err := writeRows(filepath.Join(dir, w.name), rows); err != nil {
			return err
		}
	}
	return nil
}

func tensorRow(t *traj.Tensor3) []string {
	row := make([]string, 0, t.R*t.C*t.T)
	for i := 0; i < t.T; i++ {
		m := t.Extract(i)
		r, c := m.Dims()
		for a := 0; a < r; a++ {
			for b := 0; b < c; b++ {
				row = append(row, format4(m.At(a, b)))
			}
		}
	}
	return row
}
