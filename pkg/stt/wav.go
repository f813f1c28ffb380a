package stt

import (
	"bytes"
	"encoding/binary"

	"github.com/openclaw/voicehub/pkg/audioio"
)

// EncodeWAV wraps mono PCM16 samples in a RIFF/WAVE container, the
// format transcription endpoints expect for uploads.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	data := audioio.SamplesToBytes(samples)

	var buf bytes.Buffer
	buf.Grow(44 + len(data))

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")

	// fmt chunk: PCM, mono, 16-bit
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)

	return buf.Bytes()
}
