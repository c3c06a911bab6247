// Package mat32 provides dense row-major float32 matrices for embedding batches.
//
// A Matrix holds one embedding batch: each row is a per-sample embedding
// vector. The operations here are the ones contrastive losses are built
// from: L2 row normalization, similarity matrices via MulTransposed, row
// and column concatenation, and row-wise argmax.
package mat32

import (
	"fmt"
	"math"

	"github.com/hupe1980/contrastive/internal/math32"
)

// NormEpsilon is the lower bound applied to row norms in NormalizeRows.
// Rows with a norm below this (in particular exact zero rows) are divided
// by NormEpsilon instead, so they never produce NaN.
const NormEpsilon = 1e-12

// ErrDimensionMismatch indicates incompatible matrix dimensions.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	rows int
	cols int
	data []float32
}

// New creates a zero-initialized rows x cols matrix.
func New(rows, cols int) *Matrix {
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]float32, rows*cols),
	}
}

// FromData wraps data as a rows x cols matrix without copying.
// The length of data must be exactly rows*cols.
func FromData(rows, cols int, data []float32) (*Matrix, error) {
	if len(data) != rows*cols {
		return nil, &ErrDimensionMismatch{Expected: rows * cols, Actual: len(data)}
	}

	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// FromRows copies rows into a new matrix backed by a single array.
// All rows must have the same length.
func FromRows(rows [][]float32) (*Matrix, error) {
	if len(rows) == 0 {
		return &Matrix{}, nil
	}

	cols := len(rows[0])
	m := New(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, &ErrDimensionMismatch{Expected: cols, Actual: len(row)}
		}
		copy(m.Row(i), row)
	}

	return m, nil
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Data returns the backing array in row-major order.
func (m *Matrix) Data() []float32 { return m.data }

// Row returns row i as a slice into the backing array.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float32 {
	return m.data[i*m.cols+j]
}

// Set assigns the element at row i, column j.
func (m *Matrix) Set(i, j int, v float32) {
	m.data[i*m.cols+j] = v
}

// Clone returns a deep copy of m.
func (m *Matrix) Clone() *Matrix {
	c := New(m.rows, m.cols)
	copy(c.data, m.data)

	return c
}

// RowRange returns the row interval [from, to) as a view sharing the
// backing array. Mutating the view mutates m.
func (m *Matrix) RowRange(from, to int) *Matrix {
	return &Matrix{
		rows: to - from,
		cols: m.cols,
		data: m.data[from*m.cols : to*m.cols],
	}
}

// NormalizeRows returns a copy of m with every row scaled to unit L2 norm.
// Row norms are clamped from below by NormEpsilon, so zero rows stay zero
// instead of becoming NaN. The operation is idempotent: normalizing an
// already normalized matrix returns the same values.
func (m *Matrix) NormalizeRows() *Matrix {
	out := m.Clone()
	for i := 0; i < out.rows; i++ {
		row := out.Row(i)
		norm := math.Sqrt(float64(math32.Dot(row, row)))
		if norm < NormEpsilon {
			norm = NormEpsilon
		}
		math32.ScaleInPlace(row, float32(1/norm))
	}

	return out
}

// MulTransposed computes m @ b^T: the (m.rows x b.rows) matrix of dot
// products between every row of m and every row of b. Both matrices must
// have the same number of columns. For L2-normalized inputs this is the
// cosine similarity matrix.
func (m *Matrix) MulTransposed(b *Matrix) (*Matrix, error) {
	if m.cols != b.cols {
		return nil, &ErrDimensionMismatch{Expected: m.cols, Actual: b.cols}
	}

	out := New(m.rows, b.rows)
	for i := 0; i < m.rows; i++ {
		mi := m.Row(i)
		oi := out.Row(i)
		for j := 0; j < b.rows; j++ {
			oi[j] = math32.Dot(mi, b.Row(j))
		}
	}

	return out, nil
}

// ScaleInPlace multiplies every element by scalar.
func (m *Matrix) ScaleInPlace(scalar float32) {
	math32.ScaleInPlace(m.data, scalar)
}

// SubInPlace subtracts b from m element-wise. Shapes must match.
func (m *Matrix) SubInPlace(b *Matrix) error {
	if m.rows != b.rows || m.cols != b.cols {
		return &ErrDimensionMismatch{Expected: m.rows * m.cols, Actual: b.rows * b.cols}
	}

	for i, v := range b.data {
		m.data[i] -= v
	}

	return nil
}

// ConcatCols concatenates a and b along columns into a new
// (a.rows x a.cols+b.cols) matrix. Row counts must match.
func ConcatCols(a, b *Matrix) (*Matrix, error) {
	if a.rows != b.rows {
		return nil, &ErrDimensionMismatch{Expected: a.rows, Actual: b.rows}
	}

	out := New(a.rows, a.cols+b.cols)
	for i := 0; i < a.rows; i++ {
		row := out.Row(i)
		copy(row, a.Row(i))
		copy(row[a.cols:], b.Row(i))
	}

	return out, nil
}

// ConcatRows stacks a on top of b into a new (a.rows+b.rows x a.cols)
// matrix. Column counts must match.
func ConcatRows(a, b *Matrix) (*Matrix, error) {
	if a.cols != b.cols {
		return nil, &ErrDimensionMismatch{Expected: a.cols, Actual: b.cols}
	}

	out := New(a.rows+b.rows, a.cols)
	copy(out.data, a.data)
	copy(out.data[len(a.data):], b.data)

	return out, nil
}

// ArgmaxRows returns, for each row, the column index of its largest
// element. The first index wins ties.
func (m *Matrix) ArgmaxRows() []int {
	out := make([]int, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = math32.Argmax(m.Row(i))
	}

	return out
}
