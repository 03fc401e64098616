// Package blorb reads blorb archives: IFF files that bundle a Glulx game
// with its pictures, sounds and data resources.
package blorb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/glulx/iff"
)

var (
	ErrNotBlorb     = errors.New("blorb: not a blorb archive")
	ErrNoExecutable = errors.New("blorb: no Glulx executable")
	ErrBadIndex     = errors.New("blorb: malformed resource index")
)

// Resource usages.
const (
	Pict = "Pict"
	Snd  = "Snd "
	Data = "Data"
	Exec = "Exec"
)

// Resource is one entry of the resource index.
type Resource struct {
	Usage  string
	Number uint32
	Offset uint32 // position of the resource chunk in the file
}

// Archive is a parsed blorb file.
type Archive struct {
	form  *iff.Form
	index []Resource
}

// Parse decodes a blorb archive held in memory. Chunk data aliases data.
func Parse(data []byte) (*Archive, error) {
	form, err := iff.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotBlorb, err)
	}
	if form.Type != "IFRS" {
		return nil, fmt.Errorf("%w: form type %q", ErrNotBlorb, form.Type)
	}

	a := &Archive{form: form}
	if ridx := form.Chunk("RIdx"); ridx != nil {
		if a.index, err = parseIndex(ridx.Data); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func parseIndex(b []byte) ([]Resource, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadIndex, len(b))
	}
	n := binary.BigEndian.Uint32(b)
	if uint64(n)*12 != uint64(len(b)-4) {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrBadIndex, n, len(b))
	}
	index := make([]Resource, n)
	for i := range index {
		e := b[4+12*i:]
		index[i] = Resource{
			Usage:  string(e[:4]),
			Number: binary.BigEndian.Uint32(e[4:]),
			Offset: binary.BigEndian.Uint32(e[8:]),
		}
	}
	return index, nil
}

// Resources returns the resource index sorted by usage and number.
func (a *Archive) Resources() []Resource {
	out := append([]Resource(nil), a.index...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Usage != out[j].Usage {
			return out[i].Usage < out[j].Usage
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// Chunk returns the chunk holding resource num of the given usage.
func (a *Archive) Chunk(usage string, num uint32) (*iff.Chunk, bool) {
	for _, r := range a.index {
		if r.Usage == usage && r.Number == num {
			c := a.form.ChunkAt(r.Offset)
			return c, c != nil
		}
	}
	return nil, false
}

// Executable returns the Glulx game file. Archives without an index entry
// for it fall back to the first GLUL chunk.
func (a *Archive) Executable() ([]byte, error) {
	if c, ok := a.Chunk(Exec, 0); ok {
		if c.ID != "GLUL" {
			return nil, fmt.Errorf("%w: executable chunk is %q", ErrNoExecutable, c.ID)
		}
		return c.Data, nil
	}
	if c := a.form.Chunk("GLUL"); c != nil {
		return c.Data, nil
	}
	return nil, ErrNoExecutable
}

// DataResource returns data resource num and whether it is text. It serves
// resource streams.
func (a *Archive) DataResource(num uint32) (data []byte, text bool, ok bool) {
	c, ok := a.Chunk(Data, num)
	if !ok {
		return nil, false, false
	}
	return c.Data, c.ID == "TEXT", true
}

// FindExecutable accepts either a bare Glulx game file or a blorb archive
// and returns the game file. The archive is nil for a bare game.
func FindExecutable(data []byte) ([]byte, *Archive, error) {
	if len(data) >= 4 && string(data[:4]) == "Glul" {
		return data, nil, nil
	}
	a, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	exec, err := a.Executable()
	if err != nil {
		return nil, nil, err
	}
	return exec, a, nil
}
