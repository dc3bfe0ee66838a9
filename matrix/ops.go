package matrix

import (
	"math"
	"unsafe"
)

// SingularThreshold is the smallest determinant magnitude Invert3x3 accepts.
const SingularThreshold = 1e-5

// shared reports whether a and b have any element of storage in common.
func shared(a, b *Matrix) bool {
	a0, a1 := uintptr(unsafe.Pointer(&a.data[0])), uintptr(unsafe.Pointer(&a.data[len(a.data)-1]))
	b0, b1 := uintptr(unsafe.Pointer(&b.data[0])), uintptr(unsafe.Pointer(&b.data[len(b.data)-1]))
	return a0 <= b1 && b0 <= a1
}

// misaligned reports storage shared at different offsets. Element-wise
// operations run in place only when dst and the operand start together.
func misaligned(a, b *Matrix) bool {
	return shared(a, b) && &a.data[0] != &b.data[0]
}

// Multiply stores left * right into dst.
// left.Cols must equal right.Rows and dst must be left.Rows x right.Cols.
// dst must not share storage with either operand.
func Multiply(dst, left, right *Matrix) error {
	if left.cols != right.rows || dst.rows != left.rows || dst.cols != right.cols {
		return &ShapeError{Op: "multiply", Left: left.Shape(), Right: right.Shape(), Dst: dst.Shape()}
	}
	if shared(dst, left) || shared(dst, right) {
		return ErrAlias
	}
	for r := 0; r < dst.rows; r++ {
		for c := 0; c < dst.cols; c++ {
			var sum float32
			for k := 0; k < left.cols; k++ {
				sum += left.At(r, k) * right.At(k, c)
			}
			dst.Set(r, c, sum)
		}
	}
	return nil
}

func sameShape(op string, dst, a, b *Matrix) error {
	if a.rows != b.rows || a.cols != b.cols || dst.rows != a.rows || dst.cols != a.cols {
		return &ShapeError{Op: op, Left: a.Shape(), Right: b.Shape(), Dst: dst.Shape()}
	}
	return nil
}

// Add stores a + b into dst. All three must have the same shape. dst may be
// a or b but must not partially overlap either.
func Add(dst, a, b *Matrix) error {
	if err := sameShape("add", dst, a, b); err != nil {
		return err
	}
	if misaligned(dst, a) || misaligned(dst, b) {
		return ErrAlias
	}
	for r := 0; r < dst.rows; r++ {
		for c := 0; c < dst.cols; c++ {
			dst.Set(r, c, a.At(r, c)+b.At(r, c))
		}
	}
	return nil
}

// Subtract stores a - b into dst. All three must have the same shape. dst
// may be a or b but must not partially overlap either.
func Subtract(dst, a, b *Matrix) error {
	if err := sameShape("subtract", dst, a, b); err != nil {
		return err
	}
	if misaligned(dst, a) || misaligned(dst, b) {
		return ErrAlias
	}
	for r := 0; r < dst.rows; r++ {
		for c := 0; c < dst.cols; c++ {
			dst.Set(r, c, a.At(r, c)-b.At(r, c))
		}
	}
	return nil
}

// Scale multiplies every element of m by k in place.
func Scale(m *Matrix, k float32) {
	for i := range m.data {
		m.data[i] *= k
	}
}

// SwapRows exchanges rows i and j of m in place.
func SwapRows(m *Matrix, i, j int) error {
	if i < 0 || j < 0 || i >= m.rows || j >= m.rows {
		return &ShapeError{Op: "swap rows", Left: Shape{i, j}, Dst: m.Shape()}
	}
	for c := 0; c < m.cols; c++ {
		a, b := m.At(i, c), m.At(j, c)
		m.Set(i, c, b)
		m.Set(j, c, a)
	}
	return nil
}

// SwapColumns exchanges columns i and j of m in place.
func SwapColumns(m *Matrix, i, j int) error {
	if i < 0 || j < 0 || i >= m.cols || j >= m.cols {
		return &ShapeError{Op: "swap columns", Left: Shape{i, j}, Dst: m.Shape()}
	}
	for r := 0; r < m.rows; r++ {
		a, b := m.At(r, i), m.At(r, j)
		m.Set(r, i, b)
		m.Set(r, j, a)
	}
	return nil
}

// Copy copies src into dst. Shapes must match.
func Copy(dst, src *Matrix) error {
	if dst.rows != src.rows || dst.cols != src.cols {
		return &ShapeError{Op: "copy", Left: src.Shape(), Dst: dst.Shape()}
	}
	copy(dst.data, src.data)
	return nil
}

// Clear zeroes every element of m.
func Clear(m *Matrix) {
	for i := range m.data {
		m.data[i] = 0
	}
}

// SetIdentity overwrites the square matrix m with the identity.
func SetIdentity(m *Matrix) error {
	if m.rows != m.cols {
		return &ShapeError{Op: "identity", Left: m.Shape(), Dst: m.Shape()}
	}
	Clear(m)
	for i := 0; i < m.rows; i++ {
		m.Set(i, i, 1)
	}
	return nil
}

// Transpose stores the transpose of src into dst, which must be
// src.Cols x src.Rows and must not share storage with src.
func Transpose(dst, src *Matrix) error {
	if dst.rows != src.cols || dst.cols != src.rows {
		return &ShapeError{Op: "transpose", Left: src.Shape(), Dst: dst.Shape()}
	}
	if shared(dst, src) {
		return ErrAlias
	}
	for r := 0; r < src.rows; r++ {
		for c := 0; c < src.cols; c++ {
			dst.Set(c, r, src.At(r, c))
		}
	}
	return nil
}

// Trace returns the sum of the diagonal of the square matrix m.
func Trace(m *Matrix) (float32, error) {
	if m.rows != m.cols {
		return 0, &ShapeError{Op: "trace", Left: m.Shape(), Dst: m.Shape()}
	}
	var t float32
	for i := 0; i < m.rows; i++ {
		t += m.At(i, i)
	}
	return t, nil
}

// Equal reports whether a and b have the same shape and every pair of
// elements differs by at most tol.
func Equal(a, b *Matrix, tol float32) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	for i := range a.data {
		if math.Abs(float64(a.data[i]-b.data[i])) > float64(tol) {
			return false
		}
	}
	return true
}

// Invert3x3 stores the inverse of the 3x3 matrix a into dst using the
// cofactor expansion. When |det(a)| < SingularThreshold, or det(a) is not
// finite, it returns ErrSingular and leaves dst untouched. dst may be a itself.
func Invert3x3(dst, a *Matrix) error {
	if a.rows != 3 || a.cols != 3 || dst.rows != 3 || dst.cols != 3 {
		return &ShapeError{Op: "invert", Left: a.Shape(), Dst: dst.Shape()}
	}

	a11, a12, a13 := a.At(0, 0), a.At(0, 1), a.At(0, 2)
	a21, a22, a23 := a.At(1, 0), a.At(1, 1), a.At(1, 2)
	a31, a32, a33 := a.At(2, 0), a.At(2, 1), a.At(2, 2)

	// minors
	m11, m12, m13 := a22*a33-a23*a32, a21*a33-a23*a31, a21*a32-a22*a31
	m21, m22, m23 := a12*a33-a13*a32, a11*a33-a13*a31, a11*a32-a12*a31
	m31, m32, m33 := a12*a23-a13*a22, a11*a23-a13*a21, a11*a22-a12*a21

	// cofactors c_ij = (-1)^(i+j) m_ij
	c11, c12, c13 := m11, -m12, m13
	c21, c22, c23 := -m21, m22, -m23
	c31, c32, c33 := m31, -m32, m33

	det := a11*c11 + a12*c12 + a13*c13
	if d := math.Abs(float64(det)); !(d >= SingularThreshold) || math.IsInf(d, 0) {
		return ErrSingular
	}

	inv := 1 / det
	dst.Set(0, 0, c11*inv)
	dst.Set(0, 1, c21*inv)
	dst.Set(0, 2, c31*inv)
	dst.Set(1, 0, c12*inv)
	dst.Set(1, 1, c22*inv)
	dst.Set(1, 2, c32*inv)
	dst.Set(2, 0, c13*inv)
	dst.Set(2, 1, c23*inv)
	dst.Set(2, 2, c33*inv)
	return nil
}
