// Package glktest provides a scripted Capability for exercising the VM
// without a terminal.
package glktest

import (
	"io"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/chazu/glulx/glk"
)

// Window and stream ids handed out by Recorder.
const (
	RootWindow glk.WindowID = 1
	RootStream glk.StreamID = 1
)

// Recorder is a single-window capability. Everything printed to the root
// window is appended to Output; line and character requests are satisfied
// from Input in order. When Input runs dry Select returns io.EOF.
type Recorder struct {
	glk.Unsupported

	Output strings.Builder
	Input  []string
	Ticks  int
	Exited bool

	// Streams holds bytes written to explicit non-root streams. A key
	// present here counts as an open stream.
	Streams map[glk.StreamID][]byte

	rootOpen  bool
	current   glk.StreamID
	style     uint32
	nextID    uint32
	pending   *pendingLine
	wantChar  bool
	memory    map[glk.StreamID]*glk.Buffer
	memoryPos map[glk.StreamID]int
	readPos   map[glk.StreamID]int
}

type pendingLine struct {
	win glk.WindowID
	buf *glk.Buffer
}

// New returns a Recorder that will answer line input with the given lines.
func New(input ...string) *Recorder {
	return &Recorder{
		Input:     input,
		Streams:   make(map[glk.StreamID][]byte),
		nextID:    100,
		memory:    make(map[glk.StreamID]*glk.Buffer),
		memoryPos: make(map[glk.StreamID]int),
		readPos:   make(map[glk.StreamID]int),
	}
}

// Text returns everything printed so far.
func (r *Recorder) Text() string {
	return r.Output.String()
}

func (r *Recorder) Exit() { r.Exited = true }
func (r *Recorder) Tick() { r.Ticks++ }

func (r *Recorder) Gestalt(sel, val uint32, arr []uint32) uint32 {
	switch sel {
	case glk.GestaltVersion:
		return 0x00070600
	case glk.GestaltLineInput, glk.GestaltUnicode:
		return 1
	case glk.GestaltCharInput:
		return 1
	case glk.GestaltCharOutput:
		return glk.CharOutputExactPrint
	}
	return 0
}

func (r *Recorder) WindowOpen(split glk.WindowID, method, size, winType, rock uint32) glk.WindowID {
	if split != 0 || r.rootOpen {
		return 0
	}
	r.rootOpen = true
	return RootWindow
}

func (r *Recorder) WindowGetRoot() glk.WindowID {
	if r.rootOpen {
		return RootWindow
	}
	return 0
}

func (r *Recorder) WindowGetStream(win glk.WindowID) glk.StreamID {
	if win == RootWindow {
		return RootStream
	}
	return 0
}

func (r *Recorder) WindowGetType(win glk.WindowID) uint32 {
	if win == RootWindow {
		return glk.WinTypeTextBuffer
	}
	return 0
}

func (r *Recorder) SetWindow(win glk.WindowID) {
	r.current = r.WindowGetStream(win)
}

// CharToLower and CharToUpper map within Latin-1 only.
func (r *Recorder) CharToLower(ch uint32) uint32 { return latin1Case(ch, unicode.ToLower) }
func (r *Recorder) CharToUpper(ch uint32) uint32 { return latin1Case(ch, unicode.ToUpper) }

func latin1Case(ch uint32, fn func(rune) rune) uint32 {
	if c := uint32(fn(rune(ch))); c <= 0xFF {
		return c
	}
	return ch
}

func (r *Recorder) StreamSetCurrent(str glk.StreamID) { r.current = str }
func (r *Recorder) StreamGetCurrent() glk.StreamID    { return r.current }
func (r *Recorder) SetStyle(style uint32)             { r.style = style }

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func (r *Recorder) write(str glk.StreamID, s string) {
	switch {
	case str == RootStream:
		r.Output.WriteString(s)
	case r.memory[str] != nil:
		buf := r.memory[str]
		for _, ch := range s {
			pos := r.memoryPos[str]
			if pos >= buf.Len() {
				break
			}
			if buf.Runes != nil {
				buf.Runes[pos] = uint32(ch)
			} else {
				buf.Bytes[pos] = byte(ch)
			}
			r.memoryPos[str] = pos + 1
		}
	case str != 0:
		r.Streams[str] = append(r.Streams[str], s...)
	}
}

func latin1(buf []byte) string {
	rs := make([]rune, len(buf))
	for i, b := range buf {
		rs[i] = rune(b)
	}
	return string(rs)
}

func runes(buf []uint32) string {
	rs := make([]rune, len(buf))
	for i, c := range buf {
		rs[i] = rune(c)
	}
	return string(rs)
}

func (r *Recorder) PutChar(ch byte)                              { r.write(r.current, latin1([]byte{ch})) }
func (r *Recorder) PutCharStream(str glk.StreamID, ch byte)      { r.write(str, latin1([]byte{ch})) }
func (r *Recorder) PutBuffer(buf []byte)                         { r.write(r.current, latin1(buf)) }
func (r *Recorder) PutCharUni(ch uint32)                         { r.write(r.current, runes([]uint32{ch})) }
func (r *Recorder) PutCharStreamUni(str glk.StreamID, ch uint32) { r.write(str, runes([]uint32{ch})) }
func (r *Recorder) PutBufferUni(buf []uint32)                    { r.write(r.current, runes(buf)) }

func (r *Recorder) PutBufferStream(str glk.StreamID, buf []byte) {
	// Explicit streams keep raw bytes; save data is binary.
	if str != 0 && str != RootStream && r.memory[str] == nil {
		r.Streams[str] = append(r.Streams[str], buf...)
		return
	}
	r.write(str, latin1(buf))
}

func (r *Recorder) PutBufferStreamUni(str glk.StreamID, buf []uint32) {
	r.write(str, runes(buf))
}

// ---------------------------------------------------------------------------
// Memory streams
// ---------------------------------------------------------------------------

func (r *Recorder) StreamOpenMemory(buf *glk.Buffer, fmode, rock uint32) glk.StreamID {
	r.nextID++
	id := glk.StreamID(r.nextID)
	r.memory[id] = buf
	r.memoryPos[id] = 0
	return id
}

func (r *Recorder) StreamClose(str glk.StreamID) glk.StreamResult {
	if _, ok := r.memory[str]; ok {
		n := r.memoryPos[str]
		delete(r.memory, str)
		delete(r.memoryPos, str)
		if r.current == str {
			r.current = 0
		}
		return glk.StreamResult{WriteCount: uint32(n)}
	}
	if data, ok := r.Streams[str]; ok {
		return glk.StreamResult{WriteCount: uint32(len(data))}
	}
	return glk.StreamResult{}
}

// OpenStream registers str as an open, empty file stream.
func (r *Recorder) OpenStream(str glk.StreamID) {
	if _, ok := r.Streams[str]; !ok {
		r.Streams[str] = nil
	}
}

// StreamIterate walks the root stream, memory streams and file streams in
// id order.
func (r *Recorder) StreamIterate(str glk.StreamID) (glk.StreamID, uint32) {
	var ids []glk.StreamID
	if r.rootOpen {
		ids = append(ids, RootStream)
	}
	ids = append(ids, slices.Collect(maps.Keys(r.memory))...)
	ids = append(ids, slices.Collect(maps.Keys(r.Streams))...)
	slices.Sort(ids)
	for _, id := range ids {
		if id > str {
			return id, 0
		}
	}
	return 0, 0
}

// GetBufferStream reads back what was written to an explicit stream, so a
// save written to stream N can be restored from stream N.
func (r *Recorder) GetBufferStream(str glk.StreamID, buf []byte) uint32 {
	data := r.Streams[str]
	n := copy(buf, data[r.readPos[str]:])
	r.readPos[str] += n
	return uint32(n)
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

func (r *Recorder) RequestLineEvent(win glk.WindowID, buf *glk.Buffer, initLen uint32) {
	r.pending = &pendingLine{win: win, buf: buf}
}

func (r *Recorder) RequestLineEventUni(win glk.WindowID, buf *glk.Buffer, initLen uint32) {
	r.pending = &pendingLine{win: win, buf: buf}
}

func (r *Recorder) CancelLineEvent(win glk.WindowID) glk.Event {
	if r.pending == nil || r.pending.win != win {
		return glk.Event{}
	}
	r.pending = nil
	return glk.Event{Type: glk.EvtLineInput, Win: win}
}

func (r *Recorder) RequestCharEvent(win glk.WindowID)    { r.wantChar = true }
func (r *Recorder) RequestCharEventUni(win glk.WindowID) { r.wantChar = true }
func (r *Recorder) CancelCharEvent(win glk.WindowID)     { r.wantChar = false }

func (r *Recorder) Select() (glk.Event, error) {
	if r.pending == nil && !r.wantChar {
		return glk.Event{}, io.EOF
	}
	if len(r.Input) == 0 {
		return glk.Event{}, io.EOF
	}
	line := r.Input[0]
	r.Input = r.Input[1:]

	if r.pending != nil {
		p := r.pending
		r.pending = nil
		n := 0
		for _, ch := range line {
			if n >= p.buf.Len() {
				break
			}
			if p.buf.Runes != nil {
				p.buf.Runes[n] = uint32(ch)
			} else {
				p.buf.Bytes[n] = byte(ch)
			}
			n++
		}
		r.Output.WriteString(line + "\n")
		return glk.Event{Type: glk.EvtLineInput, Win: p.win, Val1: uint32(n)}, nil
	}

	r.wantChar = false
	ch := glk.KeycodeReturn
	if line != "" {
		ch = uint32([]rune(line)[0])
	}
	return glk.Event{Type: glk.EvtCharInput, Win: RootWindow, Val1: ch}, nil
}
