package engine

import (
	"bufio"
	"fmt"
	"io"
)

// The engine control socket frames every JSON payload as a netstring:
// <length>:<payload>,

const maxFrameSize = 1 << 20

// frameWriter writes netstring frames
type frameWriter struct {
	w io.Writer
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w}
}

func (fw *frameWriter) WriteFrame(payload []byte) error {
	if _, err := fmt.Fprintf(fw.w, "%d:", len(payload)); err != nil {
		return err
	}
	if _, err := fw.w.Write(payload); err != nil {
		return err
	}
	_, err := fw.w.Write([]byte{','})
	return err
}

// frameReader reads netstring frames
type frameReader struct {
	r *bufio.Reader
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: bufio.NewReader(r)}
}

func (fr *frameReader) ReadFrame() ([]byte, error) {
	length, err := fr.readLength()
	if err != nil {
		return nil, err
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		return nil, err
	}

	sep, err := fr.r.ReadByte()
	if err != nil {
		return nil, err
	}
	if sep != ',' {
		return nil, fmt.Errorf("malformed frame: expected ',' terminator, got %q", sep)
	}
	return payload, nil
}

func (fr *frameReader) readLength() (int, error) {
	length := 0
	digits := 0
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ':' {
			if digits == 0 {
				return 0, fmt.Errorf("malformed frame: empty length")
			}
			return length, nil
		}
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("malformed frame: unexpected byte %q in length", b)
		}
		length = length*10 + int(b-'0')
		digits++
		if digits > 7 {
			return 0, fmt.Errorf("malformed frame: length too long")
		}
	}
}
