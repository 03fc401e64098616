// Package iff reads and writes IFF FORM containers: a big-endian chunked
// format used by saved games and blorb archives.
package iff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotForm   = errors.New("iff: not a FORM container")
	ErrTruncated = errors.New("iff: truncated chunk")
)

// Chunk is a single tagged block of data.
type Chunk struct {
	ID     string // four characters
	Offset uint32 // position of the chunk header within the file, when parsed
	Data   []byte
}

// Form is a FORM container: a type tag followed by chunks.
type Form struct {
	Type   string
	Chunks []Chunk
}

// NewForm returns an empty form of the given type.
func NewForm(typ string) *Form {
	return &Form{Type: typ}
}

// Add appends a chunk.
func (f *Form) Add(id string, data []byte) {
	f.Chunks = append(f.Chunks, Chunk{ID: id, Data: data})
}

// Chunk returns the first chunk with the given id, or nil.
func (f *Form) Chunk(id string) *Chunk {
	for i := range f.Chunks {
		if f.Chunks[i].ID == id {
			return &f.Chunks[i]
		}
	}
	return nil
}

// ChunkAt returns the chunk whose header starts at offset.
func (f *Form) ChunkAt(offset uint32) *Chunk {
	for i := range f.Chunks {
		if f.Chunks[i].Offset == offset {
			return &f.Chunks[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func tag(id string) []byte {
	b := []byte(id + "    ")
	return b[:4]
}

// Bytes serializes the form. Odd-length chunks are padded to even length.
func (f *Form) Bytes() []byte {
	var body bytes.Buffer
	body.Write(tag(f.Type))
	for _, c := range f.Chunks {
		body.Write(tag(c.ID))
		binary.Write(&body, binary.BigEndian, uint32(len(c.Data)))
		body.Write(c.Data)
		if len(c.Data)%2 == 1 {
			body.WriteByte(0)
		}
	}

	out := make([]byte, 8, 8+body.Len())
	copy(out, "FORM")
	binary.BigEndian.PutUint32(out[4:], uint32(body.Len()))
	return append(out, body.Bytes()...)
}

// WriteTo writes the serialized form to w.
func (f *Form) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Read parses a form from r.
func Read(r io.Reader) (*Form, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("iff: %w", err)
	}
	return Parse(data)
}

// Parse decodes a form held in memory. Chunk data aliases data.
func Parse(data []byte) (*Form, error) {
	if len(data) < 12 || string(data[:4]) != "FORM" {
		return nil, ErrNotForm
	}
	size := binary.BigEndian.Uint32(data[4:])
	if uint64(size)+8 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: FORM declares %d bytes, have %d", ErrTruncated, size, len(data)-8)
	}
	end := 8 + int(size)
	f := &Form{Type: string(data[8:12])}

	pos := 12
	for pos+8 <= end {
		id := string(data[pos : pos+4])
		n := int(binary.BigEndian.Uint32(data[pos+4:]))
		start := pos + 8
		if n < 0 || start+n > end {
			return nil, fmt.Errorf("%w: %q at %d declares %d bytes", ErrTruncated, id, pos, n)
		}
		f.Chunks = append(f.Chunks, Chunk{ID: id, Offset: uint32(pos), Data: data[start : start+n]})
		pos = start + n
		if n%2 == 1 {
			pos++
		}
	}
	return f, nil
}
