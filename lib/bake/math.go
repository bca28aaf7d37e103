// Copyright 2026 The Pak Authors
// SPDX-License-Identifier: Apache-2.0

package bake

import (
	"math"

	"github.com/pak-forge/pak/lib/content"
)

// vec3 helpers over [3]float32. Kept local to the pipeline; the baked
// forms store plain arrays.

func vec3Add(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func vec3Sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func vec3Scale(a [3]float32, s float32) [3]float32 {
	return [3]float32{a[0] * s, a[1] * s, a[2] * s}
}

func vec3Dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func vec3Cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func vec3Length(a [3]float32) float32 {
	return float32(math.Sqrt(float64(vec3Dot(a, a))))
}

func vec3Normalize(a [3]float32) [3]float32 {
	length := vec3Length(a)
	if length == 0 {
		return a
	}
	return vec3Scale(a, 1/length)
}

// mat3 is a row-major 3x3 matrix, the linear part of a transform.
type mat3 [9]float32

func mat3Identity() mat3 {
	return mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func mat3Multiply(a, b mat3) mat3 {
	var out mat3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += a[row*3+k] * b[k*3+col]
			}
			out[row*3+col] = sum
		}
	}
	return out
}

func (m mat3) apply(v [3]float32) [3]float32 {
	return [3]float32{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

func (m mat3) determinant() float32 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// inverseTranspose returns the matrix that transforms normals under
// m, or false when m is singular.
func (m mat3) inverseTranspose() (mat3, bool) {
	det := m.determinant()
	if det == 0 {
		return mat3Identity(), false
	}
	inv := 1 / det
	// Cofactor matrix scaled by 1/det is the inverse transpose.
	return mat3{
		(m[4]*m[8] - m[5]*m[7]) * inv,
		(m[5]*m[6] - m[3]*m[8]) * inv,
		(m[3]*m[7] - m[4]*m[6]) * inv,
		(m[2]*m[7] - m[1]*m[8]) * inv,
		(m[0]*m[8] - m[2]*m[6]) * inv,
		(m[1]*m[6] - m[0]*m[7]) * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv,
		(m[2]*m[3] - m[0]*m[5]) * inv,
		(m[0]*m[4] - m[1]*m[3]) * inv,
	}, true
}

// quatMultiply composes two xyzw quaternions (a then... a*b applies b
// first under column-vector convention).
func quatMultiply(a, b [4]float32) [4]float32 {
	ax, ay, az, aw := a[0], a[1], a[2], a[3]
	bx, by, bz, bw := b[0], b[1], b[2], b[3]
	return [4]float32{
		aw*bx + ax*bw + ay*bz - az*by,
		aw*by - ax*bz + ay*bw + az*bx,
		aw*bz + ax*by - ay*bx + az*bw,
		aw*bw - ax*bx - ay*by - az*bz,
	}
}

func quatToMat3(q [4]float32) mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return mat3{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

func axisQuat(axis byte, degrees float32) [4]float32 {
	radians := float64(degrees) * math.Pi / 180
	s := float32(math.Sin(radians / 2))
	c := float32(math.Cos(radians / 2))
	switch axis {
	case 'x':
		return [4]float32{s, 0, 0, c}
	case 'y':
		return [4]float32{0, s, 0, c}
	default:
		return [4]float32{0, 0, s, c}
	}
}

// rotationQuat resolves a document rotation to an xyzw quaternion.
// Euler angles are degrees; the order string names the axes with the
// rightmost applied first.
func rotationQuat(rotation content.Rotation, eulerOrder string) [4]float32 {
	switch rotation.Kind {
	case content.RotationQuaternion:
		q := rotation.Values
		length := float32(math.Sqrt(float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])))
		if length == 0 {
			return [4]float32{0, 0, 0, 1}
		}
		return [4]float32{q[0] / length, q[1] / length, q[2] / length, q[3] / length}
	case content.RotationEuler:
		angles := map[byte]float32{
			'x': rotation.Values[0],
			'y': rotation.Values[1],
			'z': rotation.Values[2],
		}
		q := [4]float32{0, 0, 0, 1}
		for i := 0; i < len(eulerOrder); i++ {
			q = quatMultiply(q, axisQuat(eulerOrder[i], angles[eulerOrder[i]]))
		}
		return q
	default:
		return [4]float32{0, 0, 0, 1}
	}
}

// mat4 is a row-major 4x4 matrix used for node transforms.
type mat4 [16]float32

func (m mat4) applyPoint(v [3]float32) [3]float32 {
	return [3]float32{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2] + m[3],
		m[4]*v[0] + m[5]*v[1] + m[6]*v[2] + m[7],
		m[8]*v[0] + m[9]*v[1] + m[10]*v[2] + m[11],
	}
}

func (m mat4) linear() mat3 {
	return mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

func mat4IsIdentity(m mat4) bool {
	for i := 0; i < 16; i++ {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if m[i] != want {
			return false
		}
	}
	return true
}
