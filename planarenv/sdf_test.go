package planarenv

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/traj"
)

func testGrid() *GridSDF {
	return &GridSDF{
		OriginX:  0,
		OriginY:  0,
		CellSize: 1,
		Data:     mat.NewDense(2, 2, []float64{0, 1, 2, 3}),
	}
}

func Test_gridSDFInterior01(tst *testing.T) {
	chk.PrintTitle("GridSDF.Value bilinearly interpolates an interior point")

	g := testGrid()
	dist, grad, err := g.Value([]float64{0.5, 0.5})
	if err != nil {
		tst.Fatalf("Value failed: %v", err)
	}
	chk.Scalar(tst, "dist", 1e-12, dist, 1.5)
	chk.Vector(tst, "grad", 1e-12, grad, []float64{1.0, 2.0})
}

func Test_gridSDFExactNode01(tst *testing.T) {
	chk.PrintTitle("GridSDF.Value reproduces a grid node exactly")

	g := testGrid()
	dist, _, err := g.Value([]float64{1, 1})
	if err != nil {
		tst.Fatalf("Value failed: %v", err)
	}
	chk.Scalar(tst, "dist", 1e-12, dist, 3.0)
}

func Test_gridSDFClampsOutOfRange01(tst *testing.T) {
	chk.PrintTitle("GridSDF.Value clamps queries outside the grid to the border")

	g := testGrid()
	far, _, err := g.Value([]float64{-5, -5})
	if err != nil {
		tst.Fatalf("Value failed: %v", err)
	}
	corner, _, err := g.Value([]float64{0, 0})
	if err != nil {
		tst.Fatalf("Value failed: %v", err)
	}
	chk.Scalar(tst, "clamped == corner", 1e-12, far, corner)
}

func Test_gridSDFRejectsWrongDimension01(tst *testing.T) {
	chk.PrintTitle("GridSDF.Value rejects a non-2D point")

	g := testGrid()
	if _, _, err := g.Value([]float64{1, 2, 3}); err == nil {
		tst.Fatal("expected an error for a 3-D query point")
	}
}

func Test_pointRobotLinearizePassthrough01(tst *testing.T) {
	chk.PrintTitle("PointRobot.Linearize passes linear dynamics through unchanged")

	g := testGrid()
	r := &PointRobot{
		Field:  g,
		EpsSDF: 0, // hinge never active: obstacle cost contributes nothing
		SigObs: 1,
		B:      mat.NewDense(4, 2, []float64{0, 0, 0, 0, 1, 0, 0, 1}),
	}

	nx, nt := 4, 3
	A0 := mat.NewDense(nx, nx, nil)
	A0.Set(0, 2, 1)
	A0.Set(1, 3, 1)

	zCol := mat.NewDense(nx, 1, []float64{0.5, 0.5, 0, 0})
	zSeed := traj.Replicate(zCol, nt)
	Akt := traj.Replicate(A0, nt)
	Sigkt := traj.Replicate(mat.NewDense(nx, nx, nil), nt)

	hAkt, Bt, hakt, nTrt, err := r.Linearize(zSeed, 1.0, Akt, Sigkt)
	if err != nil {
		tst.Fatalf("Linearize failed: %v", err)
	}

	for i := 0; i < nt; i++ {
		chk.Scalar(tst, "hAkt passthrough", 1e-14, hAkt.Extract(i).At(0, 2), 1.0)
		chk.Vector(tst, "hakt zero", 1e-14, []float64{hakt.ExtractVec(i).AtVec(0)}, []float64{0})
		chk.Vector(tst, "nTrt inactive hinge", 1e-14,
			[]float64{nTrt.ExtractVec(i).AtVec(0), nTrt.ExtractVec(i).AtVec(1)}, []float64{0, 0})
		if Bt.Extract(i).At(2, 0) != 1 {
			tst.Fatalf("Bt not replicated at timestep %d", i)
		}
	}
}
