package engine

// downmixInterleaved averages interleaved frames down to mono. Mono input is
// copied so the result never aliases the capture buffer.
func downmixInterleaved(in []float32, channels, frames int) []float32 {
	if channels <= 1 {
		out := make([]float32, frames)
		copy(out, in)
		return out
	}

	out := make([]float32, frames)
	scale := 1 / float32(channels)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += in[base+c]
		}
		out[f] = sum * scale
	}
	return out
}
