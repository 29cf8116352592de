package scoring

// Normalize rescales a raw score from its native [scaleMin, scaleMax] range
// to [0, 1]. A degenerate scale (scaleMax == scaleMin) yields the neutral
// midpoint 0.5 rather than an error; callers never see a division by zero.
func Normalize(score, scaleMin, scaleMax int) float64 {
	if scaleMax == scaleMin {
		return 0.5
	}
	return float64(score-scaleMin) / float64(scaleMax-scaleMin)
}
