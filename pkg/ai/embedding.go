package ai

// FitDimension truncates or zero-pads vec to dim. dim <= 0 returns vec
// unchanged.
func FitDimension(vec []float32, dim int) []float32 {
	if dim <= 0 || len(vec) == dim {
		return vec
	}
	out := make([]float32, dim)
	copy(out, vec)
	return out
}

// FirstVector accepts the shapes providers return for a single input, a
// flat vector or a list holding one vector, and returns the vector.
func FirstVector[F float32 | float64](shapes ...[]F) []float32 {
	for _, v := range shapes {
		if len(v) == 0 {
			continue
		}
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out
	}
	return nil
}
