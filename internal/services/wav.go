package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	wavSampleRate    = 16000
	wavBitsPerSample = 16
	wavChannels      = 1
)

// silentWAV returns a 16 kHz mono PCM WAV of the given length.
func silentWAV(durationMs int) []byte {
	samples := wavSampleRate * max(0, durationMs) / 1000
	dataSize := samples * wavChannels * wavBitsPerSample / 8
	byteRate := wavSampleRate * wavChannels * wavBitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + dataSize)
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(wavSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(wavChannels*wavBitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(wavBitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

// wavDurationMs reads the length of a PCM WAV. Streamed WAVs carry a bogus
// data size, so the bytes actually present win.
func wavDurationMs(data []byte) (int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE payload")
	}

	var byteRate uint32
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, errors.New("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, errors.New("data chunk before fmt chunk")
			}
			n := len(data) - body
			if size >= 0 && size < n {
				n = size
			}
			return int(math.Round(float64(n) / float64(byteRate) * 1000)), nil
		}
		if size < 0 || body+size > len(data) {
			break
		}
		off = body + size + size%2
	}
	return 0, errors.New("no data chunk")
}
