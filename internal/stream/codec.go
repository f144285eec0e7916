package stream

import (
	"encoding/binary"
	"fmt"
	"math"

	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/waveform"
)

// EncodeFrame packs samples as little-endian float32, four bytes each.
func EncodeFrame(buf waveform.Buffer) []byte {
	out := make([]byte, len(buf)*4)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}

	return out
}

func DecodeFrame(data []byte) (waveform.Buffer, error) {
	if len(data)%4 != 0 {
		return nil, errors.New().WithData(ErrInvalidFrame, fmt.Sprintf("%d bytes", len(data)))
	}

	buf := make(waveform.Buffer, len(data)/4)
	for i := range buf {
		buf[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}

	return buf, nil
}
