// Package planarenv supplies the reference environment collaborators used
// by the example drivers: a bilinear-interpolated signed-distance grid and
// point-robot/two-link-arm kinematics satisfying the factor.SDF and
// pgcs.Dynamics contracts.
package planarenv

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// GridSDF is a regularly-spaced signed-distance field sampled on an
// origin-anchored grid, matching the map format the original C++ driver
// reads via its own CSV loader (test_read_sdf.cpp).
type GridSDF struct {
	OriginX, OriginY float64
	CellSize         float64
	Data             *mat.Dense // Data.At(row, col), row indexes y, col indexes x
}

// LoadGridSDF reads a distance grid from a CSV file: the first row holds
// "origin_x,origin_y,cell_size", every following row is one grid row of
// comma-separated distance values.
func LoadGridSDF(path string) (*GridSDF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, chk.Err("io_error: cannot open sdf file %q: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, chk.Err("io_error: cannot parse sdf file %q: %v", path, err)
	}
	if len(rows) < 2 {
		return nil, chk.Err("io_error: sdf file %q has no grid rows", path)
	}

	header := rows[0]
	if len(header) != 3 {
		return nil, chk.Err("io_error: sdf file %q header must be origin_x,origin_y,cell_size", path)
	}
	ox, err := strconv.ParseFloat(header[0], 64)
	if err != nil {
		return nil, chk.Err("io_error: bad origin_x in %q: %v", path, err)
	}
	oy, err := strconv.ParseFloat(header[1], 64)
	if err != nil {
		return nil, chk.Err("io_error: bad origin_y in %q: %v", path, err)
	}
	cell, err := strconv.ParseFloat(header[2], 64)
	if err != nil {
		return nil, chk.Err("io_error: bad cell_size in %q: %v", path, err)
	}

	gridRows := rows[1:]
	ny := len(gridRows)
	nx := len(gridRows[0])
	data := mat.NewDense(ny, nx, nil)
	for i, row := range gridRows {
		if len(row) != nx {
			return nil, chk.Err("io_error: sdf file %q row %d has %d cols, want %d", path, i, len(row), nx)
		}
		for j, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, chk.Err("io_error: bad value at row %d col %d in %q: %v", i, j, path, err)
			}
			data.Set(i, j, v)
		}
	}

	return &GridSDF{OriginX: ox, OriginY: oy, CellSize: cell, Data: data}, nil
}

// Value bilinearly interpolates the distance and its gradient at a 2-D
// query point, satisfying factor.SDF. Points outside the grid are clamped
// to the nearest border cell rather than erroring, matching the original's
// clamp-to-border read.
func (g *GridSDF) Value(x []float64) (float64, []float64, error) {
	if len(x) != 2 {
		return 0, nil, chk.Err("invalid_covariance: GridSDF.Value expects a 2-D point, got %d-D", len(x))
	}
	ny, nx := g.Data.Dims()

	fx := (x[0] - g.OriginX) / g.CellSize
	fy := (x[1] - g.OriginY) / g.CellSize

	cx := clampF(fx, 0, float64(nx-1))
	cy := clampF(fy, 0, float64(ny-1))

	x0 := int(cx)
	y0 := int(cy)
	x1 := clampI(x0+1, 0, nx-1)
	y1 := clampI(y0+1, 0, ny-1)
	tx := cx - float64(x0)
	ty := cy - float64(y0)

	v00 := g.Data.At(y0, x0)
	v10 := g.Data.At(y0, x1)
	v01 := g.Data.At(y1, x0)
	v11 := g.Data.At(y1, x1)

	dist := (1-tx)*(1-ty)*v00 + tx*(1-ty)*v10 + (1-tx)*ty*v01 + tx*ty*v11

	// bilinear-patch gradient, scaled back to world units.
	dDdx := ((1-ty)*(v10-v00) + ty*(v11-v01)) / g.CellSize
	dDdy := ((1-tx)*(v01-v00) + tx*(v11-v10)) / g.CellSize

	return dist, []float64{dDdx, dDdy}, nil
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
