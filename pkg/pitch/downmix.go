package pitch

// Downmix appends to dst one sample per complete frame of interleaved input,
// the mean of the frame's channels, and returns the extended slice.
//
// A trailing partial frame is dropped. channels must be positive; a
// non-positive count appends nothing. dst is never truncated, so several
// deliveries may accumulate before the caller resets it.
func Downmix(dst []float32, frame []float32, channels int) []float32 {
	if channels < 1 {
		return dst
	}
	if channels == 1 {
		return append(dst, frame...)
	}

	scale := float32(channels)
	frames := len(frame) / channels
	for i := 0; i < frames; i++ {
		var sum float32
		for _, v := range frame[i*channels : (i+1)*channels] {
			sum += v
		}
		dst = append(dst, sum/scale)
	}
	return dst
}
