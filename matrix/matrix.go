// Package matrix is a small single-precision matrix kernel for fixed-size
// filters. Every matrix owns (or wraps) a flat row-major buffer whose size is
// fixed at creation. Operations write into caller-supplied destinations and
// never allocate on success.
package matrix

import "fmt"

// Matrix is a rows x cols grid of float32 values stored row-major.
type Matrix struct {
	rows, cols int
	data       []float32
}

// New creates a zeroed matrix of the given size.
func New(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("matrix: invalid dimensions %dx%d", rows, cols))
	}
	return &Matrix{
		rows: rows,
		cols: cols,
		data: make([]float32, rows*cols),
	}
}

// Wrap uses data as the backing buffer of a rows x cols matrix.
// The length of data must be exactly rows*cols. Operations reject a
// destination whose buffer overlaps an operand it cannot be computed in place
// with, including sub-slices of one buffer at different offsets.
func Wrap(rows, cols int, data []float32) (*Matrix, error) {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return nil, &ShapeError{Op: "wrap", Dst: Shape{rows, cols}, Left: Shape{len(data), 1}}
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// Identity returns a new n x n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// Shape returns the dimensions of m.
func (m *Matrix) Shape() Shape { return Shape{m.rows, m.cols} }

// index maps (r, c) into the row-major buffer.
func (m *Matrix) index(r, c int) int {
	return r*m.cols + c
}

// At returns the value at a specific row and column.
func (m *Matrix) At(r, c int) float32 {
	return m.data[m.index(r, c)]
}

// Set sets the value at a specific row and column.
func (m *Matrix) Set(r, c int, val float32) {
	m.data[m.index(r, c)] = val
}

// Vector is a fixed-length column of float32 values. It is stored as an n x 1
// matrix so that every kernel operation applies to it directly.
type Vector struct {
	m Matrix
}

// NewVector creates a zeroed vector of length n.
func NewVector(n int) *Vector {
	return &Vector{m: *New(n, 1)}
}

// Len returns the number of elements.
func (v *Vector) Len() int { return v.m.rows }

// AtVec returns element i.
func (v *Vector) AtVec(i int) float32 { return v.m.At(i, 0) }

// SetVec sets element i.
func (v *Vector) SetVec(i int, val float32) { v.m.Set(i, 0, val) }

// Matrix returns the n x 1 matrix view of v. It shares storage with v.
func (v *Vector) Matrix() *Matrix { return &v.m }
