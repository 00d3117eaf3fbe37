// Package audio wraps the raw PCM buffers the call transport produces into
// WAV files and parses WAV headers back for inspection.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Call audio format: mono 16-bit signed little-endian at 48kHz
const (
	SampleRate    = 48000
	NumChannels   = 1
	BitsPerSample = 16
)

const pcmFormat = 1

// ErrNotWAV is returned when parsed data does not carry a RIFF/WAVE header
var ErrNotWAV = errors.New("not a valid WAV file")

// Header represents the parsed WAV file header
type Header struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Duration returns the duration of the audio in seconds
func (h *Header) Duration() float64 {
	if h.ByteRate == 0 {
		return 0
	}
	return float64(h.DataSize) / float64(h.ByteRate)
}

// WriteWAV writes a WAV file wrapping dataSize bytes of raw call-format PCM
// read from pcm.
func WriteWAV(w io.Writer, pcm io.Reader, dataSize uint32) error {
	if err := writeHeader(w, dataSize); err != nil {
		return err
	}
	if _, err := io.CopyN(w, pcm, int64(dataSize)); err != nil {
		return fmt.Errorf("writing PCM data: %w", err)
	}
	return nil
}

// WrapRawFile wraps a raw call-format PCM file into a WAV file at wavPath
func WrapRawFile(rawPath, wavPath string) error {
	in, err := os.Open(rawPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return errors.New("raw PCM file is empty")
	}
	if info.Size() > 0xFFFFFFFF-44 {
		return errors.New("raw PCM file too large for WAV")
	}

	out, err := os.Create(wavPath)
	if err != nil {
		return err
	}

	if err := WriteWAV(out, in, uint32(info.Size())); err != nil {
		out.Close()
		os.Remove(wavPath)
		return err
	}
	return out.Close()
}

func writeHeader(w io.Writer, dataSize uint32) error {
	const headerLen = 44
	blockAlign := uint16(NumChannels * BitsPerSample / 8)
	byteRate := uint32(SampleRate) * uint32(blockAlign)

	buf := make([]byte, headerLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], 36+dataSize)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(buf[22:24], NumChannels)
	binary.LittleEndian.PutUint32(buf[24:28], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], dataSize)

	_, err := w.Write(buf)
	return err
}

// ParseHeader reads a WAV header from r, scanning chunks until both the fmt
// and data chunks are found.
func ParseHeader(r io.Reader) (*Header, error) {
	riff := make([]byte, 12)
	if _, err := io.ReadFull(r, riff); err != nil {
		return nil, fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	header := &Header{}
	foundFmt := false

	for {
		chunk := make([]byte, 8)
		if _, err := io.ReadFull(r, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, fmt.Errorf("reading chunk header: %w", err)
		}

		chunkID := string(chunk[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunk[4:8])

		switch chunkID {
		case "fmt ":
			if err := parseFmtChunk(r, chunkSize, header); err != nil {
				return nil, err
			}
			foundFmt = true

		case "data":
			header.DataSize = chunkSize
			if foundFmt {
				return header, nil
			}
			// Data precedes fmt; skip over it and keep scanning
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, fmt.Errorf("skipping data chunk: %w", err)
			}

		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunkSize)); err != nil {
				return nil, fmt.Errorf("skipping %q chunk: %w", chunkID, err)
			}
		}

		// Chunks are word-aligned
		if chunkSize%2 == 1 {
			io.CopyN(io.Discard, r, 1)
		}
	}

	if !foundFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrNotWAV)
	}
	return header, nil
}

func parseFmtChunk(r io.Reader, size uint32, header *Header) error {
	if size < 16 {
		return fmt.Errorf("fmt chunk too small: %d bytes", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("reading fmt chunk: %w", err)
	}

	header.AudioFormat = binary.LittleEndian.Uint16(data[0:2])
	header.NumChannels = binary.LittleEndian.Uint16(data[2:4])
	header.SampleRate = binary.LittleEndian.Uint32(data[4:8])
	header.ByteRate = binary.LittleEndian.Uint32(data[8:12])
	header.BlockAlign = binary.LittleEndian.Uint16(data[12:14])
	header.BitsPerSample = binary.LittleEndian.Uint16(data[14:16])

	return nil
}
