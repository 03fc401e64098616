package stdio

import (
	"io"
	"strings"

	"github.com/chazu/glulx/glk"
)

// ---------------------------------------------------------------------------
// Input events
//
// One line or character request is outstanding at a time. Select prints
// pending output, then reads a whole line from the input; a character
// request takes the first character of that line.
// ---------------------------------------------------------------------------

type lineRequest struct {
	win     glk.WindowID
	buf     *glk.Buffer
	initLen uint32
}

type charRequest struct {
	win glk.WindowID
	uni bool
}

func (t *Terminal) RequestLineEvent(win glk.WindowID, buf *glk.Buffer, initLen uint32) {
	if t.windows[win] != nil {
		t.line = &lineRequest{win: win, buf: buf, initLen: initLen}
	}
}

func (t *Terminal) RequestLineEventUni(win glk.WindowID, buf *glk.Buffer, initLen uint32) {
	t.RequestLineEvent(win, buf, initLen)
}

func (t *Terminal) CancelLineEvent(win glk.WindowID) glk.Event {
	if t.line == nil || t.line.win != win {
		return glk.Event{}
	}
	req := t.line
	t.line = nil
	return glk.Event{Type: glk.EvtLineInput, Win: win, Val1: min(req.initLen, uint32(req.buf.Len()))}
}

func (t *Terminal) RequestCharEvent(win glk.WindowID) {
	if t.windows[win] != nil {
		t.char = &charRequest{win: win}
	}
}

func (t *Terminal) RequestCharEventUni(win glk.WindowID) {
	if t.windows[win] != nil {
		t.char = &charRequest{win: win, uni: true}
	}
}

func (t *Terminal) CancelCharEvent(win glk.WindowID) {
	if t.char != nil && t.char.win == win {
		t.char = nil
	}
}

// readLine returns the next input line without its terminator. A final
// line without a newline is returned before io.EOF.
func (t *Terminal) readLine() (string, error) {
	s, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (t *Terminal) Select() (glk.Event, error) {
	t.flush()
	switch {
	case t.line != nil:
		s, err := t.readLine()
		if err != nil {
			return glk.Event{}, err
		}
		req := t.line
		t.line = nil
		n := fillLine(req.buf, min(req.initLen, uint32(req.buf.Len())), s)
		if w := t.windows[req.win]; w != nil && !w.noEcho {
			if t.echo {
				t.write(s + "\n")
			}
			if es := t.streams[w.echo]; es != nil {
				t.putString(es, s+"\n")
			}
		}
		return glk.Event{Type: glk.EvtLineInput, Win: req.win, Val1: n}, nil

	case t.char != nil:
		s, err := t.readLine()
		if err != nil {
			return glk.Event{}, err
		}
		req := t.char
		t.char = nil
		return glk.Event{Type: glk.EvtCharInput, Win: req.win, Val1: keycode(s, req.uni)}, nil
	}
	t.log.Warning("select called with no input request")
	return glk.Event{}, ErrNoInputRequest
}

// SelectPoll reports no events; this terminal has no timers and input
// only arrives through Select.
func (t *Terminal) SelectPoll() glk.Event {
	return glk.Event{}
}

// fillLine stores s after the first start characters of buf and returns
// the resulting length.
func fillLine(buf *glk.Buffer, start uint32, s string) uint32 {
	n := int(start)
	for _, r := range s {
		if n >= buf.Len() {
			break
		}
		if buf.Runes != nil {
			buf.Runes[n] = uint32(r)
		} else {
			buf.Bytes[n] = latin1Byte(uint32(r))
		}
		n++
	}
	return uint32(n)
}

func keycode(line string, uni bool) uint32 {
	if line == "" {
		return glk.KeycodeReturn
	}
	r := []rune(line)[0]
	switch r {
	case '\t':
		return glk.KeycodeTab
	case 0x1B:
		return glk.KeycodeEscape
	case 0x08, 0x7F:
		return glk.KeycodeDelete
	}
	if !uni && r > 0xFF {
		return glk.KeycodeUnknown
	}
	return uint32(r)
}
