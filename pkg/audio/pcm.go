// ABOUTME: Normalized-float64 PCM codec shared by every filter and the cross-fade mixer
// ABOUTME: Converts raw wire bytes to and from normalized float64 samples for any supported SampleFormat
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeFrames unpacks interleaved PCM bytes into normalized float64 samples
// in [-1, 1], one entry per sample (not per frame) in interleaved order.
func DecodeFrames(format Format, data []byte) ([]float64, error) {
	size := format.Format.Size()
	if size == 0 {
		return nil, fmt.Errorf("audio: decode: undefined sample format")
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("audio: decode: %d bytes not a multiple of sample size %d", len(data), size)
	}

	n := len(data) / size
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		chunk := data[i*size : (i+1)*size]
		switch format.Format {
		case SampleFormatS16:
			v := int16(binary.LittleEndian.Uint16(chunk))
			out[i] = float64(v) / 32768.0
		case SampleFormatS24:
			v := SampleFrom24Bit([3]byte{chunk[0], chunk[1], chunk[2]})
			out[i] = float64(v) / float64(Max24Bit+1)
		case SampleFormatS32:
			v := int32(binary.LittleEndian.Uint32(chunk))
			out[i] = float64(v) / 2147483648.0
		case SampleFormatF32:
			bits := binary.LittleEndian.Uint32(chunk)
			out[i] = float64(math.Float32frombits(bits))
		default:
			return nil, fmt.Errorf("audio: decode: unsupported sample format %s", format.Format)
		}
	}
	return out, nil
}

// EncodeFrames packs normalized float64 samples in [-1, 1] into interleaved
// PCM bytes of the given format, clamping out-of-range values.
func EncodeFrames(format Format, samples []float64) ([]byte, error) {
	size := format.Format.Size()
	if size == 0 {
		return nil, fmt.Errorf("audio: encode: undefined sample format")
	}

	out := make([]byte, len(samples)*size)
	for i, s := range samples {
		s = ClampSample(s)
		chunk := out[i*size : (i+1)*size]
		switch format.Format {
		case SampleFormatS16:
			binary.LittleEndian.PutUint16(chunk, uint16(int16(s*32767.0)))
		case SampleFormatS24:
			b := SampleTo24Bit(int32(s * float64(Max24Bit)))
			chunk[0], chunk[1], chunk[2] = b[0], b[1], b[2]
		case SampleFormatS32:
			binary.LittleEndian.PutUint32(chunk, uint32(int32(s*2147483647.0)))
		case SampleFormatF32:
			binary.LittleEndian.PutUint32(chunk, math.Float32bits(float32(s)))
		default:
			return nil, fmt.Errorf("audio: encode: unsupported sample format %s", format.Format)
		}
	}
	return out, nil
}

// ClampSample bounds a normalized sample to [-1, 1].
func ClampSample(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
