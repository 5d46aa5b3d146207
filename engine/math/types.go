package math

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// Elements returns the components in x, y, z, w order.
func (v Vec4) Elements() [4]float32 {
	return [4]float32{v.X, v.Y, v.Z, v.W}
}

// Vec4FromSlice builds a Vec4 out of exactly four values.
func Vec4FromSlice(values []float32) (Vec4, bool) {
	if len(values) != 4 {
		return Vec4{}, false
	}
	return Vec4{X: values[0], Y: values[1], Z: values[2], W: values[3]}, true
}
