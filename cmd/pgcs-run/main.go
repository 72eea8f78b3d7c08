// Command pgcs-run drives Proximal-Gradient Covariance Steering over a
// planar point-robot problem, mirroring gvigh-run's panic-recovering
// Start/Run wrapper.
package main

import (
	"flag"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"gonum.org/v1/gonum/mat"

	"github.com/ChenZhenY/VIMP/config"
	"github.com/ChenZhenY/VIMP/pgcs"
	"github.com/ChenZhenY/VIMP/planarenv"
	"github.com/ChenZhenY/VIMP/traj"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			io.PfRed("ERROR: %v\n", err)
			os.Exit(1)
		}
	}()

	flag.Parse()
	if len(flag.Args()) < 1 {
		chk.Panic("usage: pgcs-run <config.json> [output-dir]\n")
	}
	cfgPath := flag.Arg(0)
	outDir := "out"
	if len(flag.Args()) > 1 {
		outDir = flag.Arg(1)
	}

	cfg, err := config.ReadFile(cfgPath)
	if err != nil {
		chk.Panic("%v\n", err)
	}
	cfg.SetDefault()
	cfg.Report()

	io.PfWhite("\npgcs-run -- proximal-gradient covariance steering\n\n")

	var field *planarenv.GridSDF
	if cfg.SDFFile != "" {
		field, err = planarenv.LoadGridSDF(cfg.SDFFile)
		if err != nil {
			chk.Panic("%v\n", err)
		}
	}

	nx, nu, nt := cfg.Nx, cfg.Nu, cfg.Nt
	z0 := mat.NewVecDense(nx, cfg.M0)
	zT := mat.NewVecDense(nx, cfg.MT)
	sig0 := diag(nx, cfg.Sig0)
	sigT := diag(nx, cfg.SigT)

	A0 := doubleIntegratorA(nx)
	a0 := mat.NewVecDense(nx, nil)
	B := doubleIntegratorB(nx, nu)

	Qt := traj.Replicate(mat.NewDense(nx, nx, nil), nt) // no extra fixed state cost beyond the obstacle term

	dyn := &planarenv.PointRobot{
		Field:  field,
		EpsSDF: cfg.EpsSDF,
		SigObs: cfg.SigObs,
		B:      B,
	}

	solver := pgcs.New(pgcs.Params{
		Nx: nx, Nu: nu, Nt: nt,
		Sig:     cfg.TotalTime,
		Eta:     cfg.Eta,
		Eps:     cfg.Eps,
		Z0:      z0,
		ZT:      zT,
		Sig0:    sig0,
		SigT:    sigT,
		StopErr: cfg.StopErr,
		MaxIter: cfg.MaxIter,
		Qt:      Qt,
	}, dyn, A0, a0, B)

	iters, err := solver.Optimize()
	if err != nil {
		chk.Panic("%v\n", err)
	}
	io.Pfgreen("pgcs-run: converged after %d iterations (%d snapshots, %d dropped)\n",
		iters, solver.Recorder.Len(), solver.Recorder.Dropped())

	if err := solver.Recorder.Export(outDir); err != nil {
		chk.Panic("%v\n", err)
	}
	io.Pfcyan("pgcs-run: wrote results to %s\n", outDir)
}

func diag(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, v)
	}
	return m
}

// doubleIntegratorA builds the constant-velocity drift matrix for state
// [x, y, vx, vy] (or its d-dimensional generalization): dx/dt = v, dv/dt = 0.
func doubleIntegratorA(nx int) *mat.Dense {
	d := nx / 2
	A := mat.NewDense(nx, nx, nil)
	for i := 0; i < d; i++ {
		A.Set(i, d+i, 1)
	}
	return A
}

// doubleIntegratorB maps control directly onto the acceleration rows.
func doubleIntegratorB(nx, nu int) *mat.Dense {
	d := nx / 2
	B := mat.NewDense(nx, nu, nil)
	for i := 0; i < d && i < nu; i++ {
		B.Set(d+i, i, 1)
	}
	return B
}
