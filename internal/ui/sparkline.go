package ui

import "slices"

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders speed samples as Unicode block characters, exactly
// width runes wide. The newest samples are on the right; fewer samples than
// width are padded on the left with the lowest block. Values are scaled to
// the largest visible sample.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}

	samples := make([]float64, width)
	if len(data) >= width {
		copy(samples, data[len(data)-width:])
	} else {
		copy(samples[width-len(data):], data)
	}

	top := slices.Max(samples)
	out := make([]rune, width)
	for i, v := range samples {
		if top <= 0 || v <= 0 {
			out[i] = sparkBlocks[0]
			continue
		}
		idx := min(int(v/top*float64(len(sparkBlocks)-1)), len(sparkBlocks)-1)
		out[i] = sparkBlocks[idx]
	}
	return string(out)
}
