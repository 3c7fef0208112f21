package geometry

// Matrix is a PDF affine transform [a b c d e f], mapping a row vector
// [x y 1] to [a*x+c*y+e  b*x+d*y+f].
type Matrix [6]float64

// Identity is the transform that maps every point onto itself.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Multiply returns m × n. With row vectors this applies m first and then n, so a
// content-stream "cm" operand m is folded into the current transform as m.Multiply(ctm).
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

// Apply maps p through the transform.
func (m Matrix) Apply(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Translation returns a pure translation.
func Translation(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// MatrixFrom builds a matrix from a six element slice, reporting false on any other length.
func MatrixFrom(v []float64) (Matrix, bool) {
	if len(v) != 6 {
		return Matrix{}, false
	}
	var m Matrix
	copy(m[:], v)
	return m, true
}
