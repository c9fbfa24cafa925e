package matching

import "math"

// Similarity is the cosine of two term vectors. It returns 0 when either side
// has no terms, and Similarity(a, b) == Similarity(b, a) bit for bit because
// both vectors are walked in sorted order.
func Similarity(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Word == b[j].Word:
			x, y := float64(a[i].Count), float64(b[j].Count)
			dot += x * y
			normA += x * x
			normB += y * y
			i++
			j++
		case a[i].Word < b[j].Word:
			x := float64(a[i].Count)
			normA += x * x
			i++
		default:
			y := float64(b[j].Count)
			normB += y * y
			j++
		}
	}
	for ; i < len(a); i++ {
		x := float64(a[i].Count)
		normA += x * x
	}
	for ; j < len(b); j++ {
		y := float64(b[j].Count)
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	s := dot / denom
	if s > 1 {
		s = 1
	}
	return s
}
