package stdio

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"unicode/utf8"

	"github.com/chazu/glulx/glk"
)

// ---------------------------------------------------------------------------
// Streams
//
// Every character passes through a stream as a code point. Memory streams
// store into the lent buffer; file streams keep their contents in memory
// and write them to storage on close. Resource streams read blorb data. Binary Unicode files hold big-endian
// four-byte characters, text files hold UTF-8, and the rest hold Latin-1.
// ---------------------------------------------------------------------------

type streamKind int

const (
	windowStream streamKind = iota
	memoryStream
	fileStream
	resourceStream
)

type stream struct {
	id      glk.StreamID
	kind    streamKind
	rock    uint32
	mode    uint32
	unicode bool
	text    bool
	win     glk.WindowID
	buf     *glk.Buffer
	fref    *fileRef
	data    []byte
	pos     int

	readCount, writeCount uint32
}

func (s *stream) readable() bool {
	return s.mode == glk.FileModeRead || s.mode == glk.FileModeReadWrite
}

func (s *stream) writable() bool {
	return s.mode != glk.FileModeRead
}

func (t *Terminal) addStream(s *stream) glk.StreamID {
	s.id = glk.StreamID(t.newID())
	t.streams[s.id] = s
	return s.id
}

// destroyStream unregisters a stream, writing file contents back.
func (t *Terminal) destroyStream(id glk.StreamID) glk.StreamResult {
	s := t.streams[id]
	if s == nil {
		return glk.StreamResult{}
	}
	if s.kind == fileStream && s.writable() {
		if err := t.storage.Store(s.fref.name, s.fref.usage, s.data); err != nil {
			t.log.Warningf("writing %q: %s", s.fref.name, err)
		}
	}
	delete(t.streams, id)
	if t.current == id {
		t.current = 0
	}
	for _, w := range t.windows {
		if w.echo == id {
			w.echo = 0
		}
	}
	return glk.StreamResult{ReadCount: s.readCount, WriteCount: s.writeCount}
}

func (t *Terminal) StreamOpenMemory(buf *glk.Buffer, fmode, rock uint32) glk.StreamID {
	return t.addStream(&stream{kind: memoryStream, buf: buf, mode: fmode, rock: rock})
}

func (t *Terminal) StreamOpenFile(fref glk.FileRefID, fmode, rock uint32, unicode bool) glk.StreamID {
	fr := t.frefs[fref]
	if fr == nil {
		return 0
	}
	s := &stream{
		kind:    fileStream,
		mode:    fmode,
		rock:    rock,
		unicode: unicode,
		text:    fr.usage&glk.FileUsageTextMode != 0,
		fref:    fr,
	}
	if fmode != glk.FileModeWrite {
		data, err := t.storage.Load(fr.name, fr.usage)
		switch {
		case err == nil:
			s.data = data
		case errors.Is(err, fs.ErrNotExist) && fmode != glk.FileModeRead:
		default:
			t.log.Infof("opening %q: %s", fr.name, err)
			return 0
		}
	}
	if fmode == glk.FileModeWriteAppend {
		s.pos = len(s.data)
	}
	return t.addStream(s)
}

// StreamOpenResource opens data resource fileNum for reading. TEXT
// resources read as UTF-8 when unicode is set.
func (t *Terminal) StreamOpenResource(fileNum, rock uint32, unicode bool) glk.StreamID {
	if t.res == nil {
		return 0
	}
	data, text, ok := t.res.DataResource(fileNum)
	if !ok {
		return 0
	}
	return t.addStream(&stream{
		kind:    resourceStream,
		mode:    glk.FileModeRead,
		rock:    rock,
		unicode: unicode,
		text:    text && unicode,
		data:    data,
	})
}

func (t *Terminal) StreamClose(str glk.StreamID) glk.StreamResult {
	if s := t.streams[str]; s == nil || s.kind == windowStream {
		return glk.StreamResult{}
	}
	return t.destroyStream(str)
}

func (t *Terminal) StreamIterate(str glk.StreamID) (glk.StreamID, uint32) {
	next := nextKey(t.streams, str)
	if next == 0 {
		return 0, 0
	}
	return next, t.streams[next].rock
}

func (t *Terminal) StreamGetRock(str glk.StreamID) uint32 {
	if s := t.streams[str]; s != nil {
		return s.rock
	}
	return 0
}

func (t *Terminal) StreamSetCurrent(str glk.StreamID) {
	if str == 0 || t.streams[str] != nil {
		t.current = str
	}
}

func (t *Terminal) StreamGetCurrent() glk.StreamID { return t.current }

func (s *stream) length() int {
	switch s.kind {
	case memoryStream:
		return s.buf.Len()
	case fileStream, resourceStream:
		return len(s.data)
	}
	return 0
}

func (t *Terminal) StreamSetPosition(str glk.StreamID, pos int32, seekMode uint32) {
	s := t.streams[str]
	if s == nil || s.kind == windowStream {
		return
	}
	p := int(pos)
	switch seekMode {
	case glk.SeekModeCurrent:
		p += s.pos
	case glk.SeekModeEnd:
		p += s.length()
	}
	s.pos = min(max(p, 0), s.length())
}

func (t *Terminal) StreamGetPosition(str glk.StreamID) uint32 {
	if s := t.streams[str]; s != nil {
		return uint32(s.pos)
	}
	return 0
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

func (t *Terminal) putString(s *stream, text string) {
	for _, r := range text {
		t.putChar(s, uint32(r))
	}
}

func (t *Terminal) putChars(str glk.StreamID, chars []uint32) {
	s := t.streams[str]
	if s == nil || !s.writable() {
		return
	}
	if s.kind == windowStream {
		s.writeCount += uint32(len(chars))
		if w := t.windows[s.win]; w != nil {
			t.windowWrite(w, runeString(chars))
		}
		return
	}
	for _, ch := range chars {
		t.putChar(s, ch)
	}
}

func (t *Terminal) putChar(s *stream, ch uint32) {
	if !s.writable() {
		return
	}
	s.writeCount++
	switch s.kind {
	case windowStream:
		if w := t.windows[s.win]; w != nil {
			t.windowWrite(w, string(rune(ch)))
		}
	case memoryStream:
		if s.pos < s.buf.Len() {
			if s.buf.Runes != nil {
				s.buf.Runes[s.pos] = ch
			} else {
				s.buf.Bytes[s.pos] = latin1Byte(ch)
			}
			s.pos++
		}
	case fileStream:
		s.writeBytes(s.encode(ch))
	}
}

func (s *stream) encode(ch uint32) []byte {
	switch {
	case s.text:
		return utf8.AppendRune(nil, rune(ch))
	case s.unicode:
		return binary.BigEndian.AppendUint32(nil, ch)
	}
	return []byte{latin1Byte(ch)}
}

func (s *stream) writeBytes(b []byte) {
	if end := s.pos + len(b); end > len(s.data) {
		s.data = append(s.data, make([]byte, end-len(s.data))...)
	}
	copy(s.data[s.pos:], b)
	s.pos += len(b)
}

func latin1Byte(ch uint32) byte {
	if ch > 0xFF {
		return '?'
	}
	return byte(ch)
}

func bytesToChars(buf []byte) []uint32 {
	chars := make([]uint32, len(buf))
	for i, b := range buf {
		chars[i] = uint32(b)
	}
	return chars
}

func runeString(chars []uint32) string {
	rs := make([]rune, len(chars))
	for i, c := range chars {
		rs[i] = rune(c)
	}
	return string(rs)
}

func (t *Terminal) PutChar(ch byte)                         { t.putChars(t.current, []uint32{uint32(ch)}) }
func (t *Terminal) PutCharStream(str glk.StreamID, ch byte) { t.putChars(str, []uint32{uint32(ch)}) }
func (t *Terminal) PutBuffer(buf []byte)                    { t.putChars(t.current, bytesToChars(buf)) }
func (t *Terminal) PutBufferStream(str glk.StreamID, buf []byte) {
	t.putChars(str, bytesToChars(buf))
}
func (t *Terminal) PutCharUni(ch uint32)                         { t.putChars(t.current, []uint32{ch}) }
func (t *Terminal) PutCharStreamUni(str glk.StreamID, ch uint32) { t.putChars(str, []uint32{ch}) }
func (t *Terminal) PutBufferUni(buf []uint32)                    { t.putChars(t.current, buf) }
func (t *Terminal) PutBufferStreamUni(str glk.StreamID, buf []uint32) {
	t.putChars(str, buf)
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// getChar reads one character, or returns -1 at the end of the stream.
func (t *Terminal) getChar(str glk.StreamID) int32 {
	s := t.streams[str]
	if s == nil || !s.readable() {
		return -1
	}
	var ch uint32
	switch s.kind {
	case memoryStream:
		if s.pos >= s.buf.Len() {
			return -1
		}
		if s.buf.Runes != nil {
			ch = s.buf.Runes[s.pos]
		} else {
			ch = uint32(s.buf.Bytes[s.pos])
		}
		s.pos++
	case fileStream, resourceStream:
		rest := s.data[s.pos:]
		switch {
		case len(rest) == 0:
			return -1
		case s.text:
			r, n := utf8.DecodeRune(rest)
			ch = uint32(r)
			s.pos += n
		case s.unicode:
			if len(rest) < 4 {
				s.pos = len(s.data)
				return -1
			}
			ch = binary.BigEndian.Uint32(rest)
			s.pos += 4
		default:
			ch = uint32(rest[0])
			s.pos++
		}
	default:
		return -1
	}
	s.readCount++
	return int32(ch)
}

func (t *Terminal) GetCharStream(str glk.StreamID) int32 {
	ch := t.getChar(str)
	if ch > 0xFF {
		return '?'
	}
	return ch
}

func (t *Terminal) GetCharStreamUni(str glk.StreamID) int32 {
	return t.getChar(str)
}

// readChars fills up to n characters, stopping after a newline when line
// is set.
func (t *Terminal) readChars(str glk.StreamID, n int, line bool, store func(i int, ch uint32)) uint32 {
	i := 0
	for i < n {
		ch := t.getChar(str)
		if ch < 0 {
			break
		}
		store(i, uint32(ch))
		i++
		if line && ch == '\n' {
			break
		}
	}
	return uint32(i)
}

// GetLineStream leaves room for the terminator the caller appends.
func (t *Terminal) GetLineStream(str glk.StreamID, buf []byte) uint32 {
	return t.readChars(str, len(buf)-1, true, func(i int, ch uint32) { buf[i] = latin1Byte(ch) })
}

func (t *Terminal) GetBufferStream(str glk.StreamID, buf []byte) uint32 {
	return t.readChars(str, len(buf), false, func(i int, ch uint32) { buf[i] = latin1Byte(ch) })
}

func (t *Terminal) GetLineStreamUni(str glk.StreamID, buf []uint32) uint32 {
	return t.readChars(str, len(buf)-1, true, func(i int, ch uint32) { buf[i] = ch })
}

func (t *Terminal) GetBufferStreamUni(str glk.StreamID, buf []uint32) uint32 {
	return t.readChars(str, len(buf), false, func(i int, ch uint32) { buf[i] = ch })
}
