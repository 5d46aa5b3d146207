package containers

// SwapRemove removes the element at index i by moving the last element into
// its place and shrinking the slice by one. Order is not preserved.
// It returns the shrunk slice and whether an element was moved into i, in
// which case the caller must refresh any index it keeps for data[i].
func SwapRemove[T any](data []T, i int) ([]T, bool) {
	last := len(data) - 1
	moved := i != last
	if moved {
		data[i] = data[last]
	}
	var zero T
	data[last] = zero
	return data[:last], moved
}

// IndexOf returns the position of the first element equal to v, or -1.
func IndexOf[T comparable](data []T, v T) int {
	for i := range data {
		if data[i] == v {
			return i
		}
	}
	return -1
}
