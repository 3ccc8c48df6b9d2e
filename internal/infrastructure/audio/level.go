package audio

import (
	"encoding/binary"
	"math"
)

// Level returns the RMS of a little-endian s16 PCM frame normalized to [0,1]
func Level(pcm []byte) float64 {
	count := len(pcm) / 2
	if count == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i+1 < len(pcm); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i : i+2])))
		sumSquares += v * v
	}

	rms := math.Sqrt(sumSquares/float64(count)) / 32768.0
	if rms > 1 {
		return 1
	}
	return rms
}
