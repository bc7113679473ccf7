// Package render hosts the audio render graph: an ordered list of synthesis
// nodes that share a MIDI feed and sum their output into one stereo block.
package render

// MaxBufferSize bounds the per-block sample count a node must tolerate.
const MaxBufferSize = 192000

// Amplify scales every sample in place. Gain 1 is a no-op.
func Amplify(buffer []float32, gain float32) {
	if gain == 1 {
		return
	}
	for i := range buffer {
		buffer[i] *= gain
	}
}

// Clear zeroes the buffer.
func Clear(buffer []float32) {
	for i := range buffer {
		buffer[i] = 0
	}
}

// AddTo adds src into dst sample by sample, stopping at the shorter length.
func AddTo(dst []float32, src []float32) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] += src[i]
	}
}
