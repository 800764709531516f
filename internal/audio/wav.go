package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// StreamDataSize is the data chunk length written for streams of unknown
// length. Players treat it as "until end of stream".
const StreamDataSize = math.MaxUint32 - 36

// WriteWAVHeader writes a 44-byte 16-bit PCM WAV header for dataBytes of
// sample data.
func WriteWAVHeader(w io.Writer, sampleRate, channels int, dataBytes uint32) error {
	const bytesPerSample = 2
	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, 36+dataBytes)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(channels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                   // bits per sample
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataBytes)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteWAV writes planar audio as a complete 16-bit WAV file.
func WriteWAV(w io.Writer, planar [][]float32, sampleRate int) error {
	if len(planar) == 0 {
		return fmt.Errorf("write wav: no channels")
	}
	pcm := make([]int16, len(planar)*len(planar[0]))
	var c Converter
	c.Int16(pcm, planar)
	if err := WriteWAVHeader(w, sampleRate, len(planar), uint32(len(pcm)*2)); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(SamplesToBytes(pcm)); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}
