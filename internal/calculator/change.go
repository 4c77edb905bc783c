package calculator

// Ratio divides a by b, returning 0 when b is not positive.
func Ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}

// PctChange returns the percentage change from prev to cur, 0 when prev is 0.
func PctChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}
