package resolve

import "math"

const normEpsilon = 1e-10

// CosineSimilarity of a and b clamped to [0, 1]. Vectors of different or
// zero length have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	sim := dot / ((math.Sqrt(na) + normEpsilon) * (math.Sqrt(nb) + normEpsilon))
	switch {
	case math.IsNaN(sim) || sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}
