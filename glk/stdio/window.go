package stdio

import (
	"maps"
	"slices"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/go-wordwrap"

	"github.com/chazu/glulx/glk"
)

// ---------------------------------------------------------------------------
// Windows
//
// Splitting a window replaces it in the tree with a pair window whose
// children are the original and the new window. Text buffers share the
// terminal; text grids keep a cell matrix printed before each input.
// ---------------------------------------------------------------------------

type window struct {
	id     glk.WindowID
	typ    uint32
	rock   uint32
	parent glk.WindowID
	str    glk.StreamID
	echo   glk.StreamID
	noEcho bool // line input is not echoed

	// Pair windows
	children [2]glk.WindowID
	method   uint32
	size     uint32
	key      glk.WindowID

	// Text buffers
	pending strings.Builder

	// Text grids
	grid  [][]rune
	x, y  int
	dirty bool
}

func (t *Terminal) WindowOpen(split glk.WindowID, method, size, winType, rock uint32) glk.WindowID {
	switch winType {
	case glk.WinTypeTextBuffer, glk.WinTypeTextGrid, glk.WinTypeBlank:
	default:
		t.log.Debugf("window type %d not supported", winType)
		return 0
	}

	var sp *window
	if split == 0 {
		if t.root != 0 {
			return 0
		}
	} else if sp = t.windows[split]; sp == nil {
		return 0
	}

	w := &window{id: glk.WindowID(t.newID()), typ: winType, rock: rock}
	t.windows[w.id] = w
	w.str = t.addStream(&stream{kind: windowStream, win: w.id, mode: glk.FileModeWrite})

	if winType == glk.WinTypeTextGrid {
		rows := t.height
		if sp != nil {
			rows = t.splitRows(method, size)
		}
		w.resize(t.width, rows)
	}

	if sp == nil {
		t.root = w.id
		return w.id
	}

	pair := &window{
		id:       glk.WindowID(t.newID()),
		typ:      glk.WinTypePair,
		parent:   sp.parent,
		children: [2]glk.WindowID{sp.id, w.id},
		method:   method,
		size:     size,
		key:      w.id,
	}
	t.windows[pair.id] = pair
	t.replaceChild(sp.parent, sp.id, pair.id)
	sp.parent = pair.id
	w.parent = pair.id
	return w.id
}

func (t *Terminal) splitRows(method, size uint32) int {
	if method&glk.WinMethodDivisionMask == glk.WinMethodProportional {
		return int(size) * t.height / 100
	}
	return int(size)
}

// replaceChild points parent's link at old to repl; a zero parent means
// the root.
func (t *Terminal) replaceChild(parent, old, repl glk.WindowID) {
	if parent == 0 {
		t.root = repl
		return
	}
	p := t.windows[parent]
	for i, c := range p.children {
		if c == old {
			p.children[i] = repl
		}
	}
	if p.key == old {
		p.key = 0
	}
}

func (t *Terminal) WindowClose(win glk.WindowID) glk.StreamResult {
	w := t.windows[win]
	if w == nil {
		return glk.StreamResult{}
	}
	if w.parent == 0 {
		t.root = 0
	} else {
		pair := t.windows[w.parent]
		sib := t.windows[sibling(pair, w.id)]
		if sib != nil {
			sib.parent = pair.parent
			t.replaceChild(pair.parent, pair.id, sib.id)
		} else {
			t.replaceChild(pair.parent, pair.id, 0)
		}
		t.destroyStream(pair.str)
		delete(t.windows, pair.id)
	}
	return t.destroyWindow(w)
}

// destroyWindow removes w and everything below it, returning the counts of
// w's own stream.
func (t *Terminal) destroyWindow(w *window) glk.StreamResult {
	if w.typ == glk.WinTypePair {
		for _, c := range w.children {
			if cw := t.windows[c]; cw != nil {
				t.destroyWindow(cw)
			}
		}
	}
	t.flushWindow(w)
	if t.line != nil && t.line.win == w.id {
		t.line = nil
	}
	if t.char != nil && t.char.win == w.id {
		t.char = nil
	}
	res := t.destroyStream(w.str)
	delete(t.windows, w.id)
	return res
}

func sibling(pair *window, win glk.WindowID) glk.WindowID {
	if pair == nil {
		return 0
	}
	if pair.children[0] == win {
		return pair.children[1]
	}
	return pair.children[0]
}

func (t *Terminal) WindowIterate(win glk.WindowID) (glk.WindowID, uint32) {
	next := nextKey(t.windows, win)
	if next == 0 {
		return 0, 0
	}
	return next, t.windows[next].rock
}

func (t *Terminal) WindowGetRock(win glk.WindowID) uint32 {
	if w := t.windows[win]; w != nil {
		return w.rock
	}
	return 0
}

func (t *Terminal) WindowGetRoot() glk.WindowID { return t.root }

func (t *Terminal) WindowGetType(win glk.WindowID) uint32 {
	if w := t.windows[win]; w != nil {
		return w.typ
	}
	return 0
}

func (t *Terminal) WindowGetParent(win glk.WindowID) glk.WindowID {
	if w := t.windows[win]; w != nil {
		return w.parent
	}
	return 0
}

func (t *Terminal) WindowGetSibling(win glk.WindowID) glk.WindowID {
	if w := t.windows[win]; w != nil && w.parent != 0 {
		return sibling(t.windows[w.parent], win)
	}
	return 0
}

func (t *Terminal) WindowGetSize(win glk.WindowID) (uint32, uint32) {
	w := t.windows[win]
	if w == nil {
		return 0, 0
	}
	switch w.typ {
	case glk.WinTypeTextBuffer:
		return uint32(t.width), uint32(t.height)
	case glk.WinTypeTextGrid:
		if len(w.grid) == 0 {
			return 0, 0
		}
		return uint32(len(w.grid[0])), uint32(len(w.grid))
	}
	return 0, 0
}

func (t *Terminal) WindowSetArrangement(win glk.WindowID, method, size uint32, keyWin glk.WindowID) {
	w := t.windows[win]
	if w == nil || w.typ != glk.WinTypePair {
		return
	}
	w.method, w.size = method, size
	if keyWin != 0 {
		w.key = keyWin
	}
	if k := t.windows[w.key]; k != nil && k.typ == glk.WinTypeTextGrid {
		k.resize(t.width, t.splitRows(method, size))
	}
}

func (t *Terminal) WindowGetArrangement(win glk.WindowID) (uint32, uint32, glk.WindowID) {
	w := t.windows[win]
	if w == nil || w.typ != glk.WinTypePair {
		return 0, 0, 0
	}
	return w.method, w.size, w.key
}

func (t *Terminal) WindowGetStream(win glk.WindowID) glk.StreamID {
	if w := t.windows[win]; w != nil {
		return w.str
	}
	return 0
}

func (t *Terminal) WindowSetEchoStream(win glk.WindowID, str glk.StreamID) {
	if w := t.windows[win]; w != nil {
		w.echo = str
	}
}

func (t *Terminal) WindowGetEchoStream(win glk.WindowID) glk.StreamID {
	if w := t.windows[win]; w != nil {
		return w.echo
	}
	return 0
}

func (t *Terminal) SetWindow(win glk.WindowID) {
	t.current = t.WindowGetStream(win)
}

func (t *Terminal) WindowClear(win glk.WindowID) {
	w := t.windows[win]
	if w == nil {
		return
	}
	if w.typ == glk.WinTypeTextGrid {
		w.resize(len(w.grid0()), len(w.grid))
		w.dirty = true
	}
}

func (t *Terminal) WindowMoveCursor(win glk.WindowID, x, y uint32) {
	if w := t.windows[win]; w != nil && w.typ == glk.WinTypeTextGrid {
		w.x, w.y = int(x), int(y)
	}
}

func (t *Terminal) SetEchoLineEvent(win glk.WindowID, echo bool) {
	if w := t.windows[win]; w != nil {
		w.noEcho = !echo
	}
}

// ---------------------------------------------------------------------------
// Text output
// ---------------------------------------------------------------------------

// windowWrite prints s in w and copies it to w's echo stream.
func (t *Terminal) windowWrite(w *window, s string) {
	switch w.typ {
	case glk.WinTypeTextBuffer:
		for {
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				w.pending.WriteString(s)
				break
			}
			w.pending.WriteString(s[:i])
			t.write(t.wrapText(w.pending.String()) + "\n")
			w.pending.Reset()
			s = s[i+1:]
		}
	case glk.WinTypeTextGrid:
		w.put(s)
	}
	if w.echo != 0 && w.echo != w.str {
		if es := t.streams[w.echo]; es != nil {
			t.putString(es, s)
		}
	}
}

func (t *Terminal) wrapText(s string) string {
	if !t.wrap || runewidth.StringWidth(s) <= t.width {
		return s
	}
	return wordwrap.WrapString(s, uint(t.width))
}

// flushWindow prints a text buffer's unterminated line.
func (t *Terminal) flushWindow(w *window) {
	if w.typ == glk.WinTypeTextBuffer && w.pending.Len() > 0 {
		t.write(t.wrapText(w.pending.String()))
		w.pending.Reset()
	}
}

// flush prints every pending partial line, then every changed text grid.
func (t *Terminal) flush() {
	for _, id := range sortedWindows(t.windows) {
		t.flushWindow(t.windows[id])
	}
	for _, id := range sortedWindows(t.windows) {
		if w := t.windows[id]; w.typ == glk.WinTypeTextGrid && w.dirty {
			t.write(w.render(t.width))
			w.dirty = false
		}
	}
}

func sortedWindows(m map[glk.WindowID]*window) []glk.WindowID {
	return slices.Sorted(maps.Keys(m))
}

// ---------------------------------------------------------------------------
// Text grids
// ---------------------------------------------------------------------------

func (w *window) grid0() []rune {
	if len(w.grid) == 0 {
		return nil
	}
	return w.grid[0]
}

func (w *window) resize(cols, rows int) {
	w.grid = make([][]rune, max(rows, 0))
	for i := range w.grid {
		w.grid[i] = []rune(strings.Repeat(" ", cols))
	}
	w.x, w.y = 0, 0
}

func (w *window) put(s string) {
	for _, r := range s {
		if r == '\n' {
			w.x, w.y = 0, w.y+1
			continue
		}
		if w.y < len(w.grid) && w.x >= len(w.grid[w.y]) {
			w.x, w.y = 0, w.y+1
		}
		if w.y >= len(w.grid) {
			return
		}
		w.grid[w.y][w.x] = r
		w.x++
		w.dirty = true
	}
}

// render returns the grid as text lines no wider than width columns.
func (w *window) render(width int) string {
	var sb strings.Builder
	for _, row := range w.grid {
		line := strings.TrimRight(string(row), " ")
		if runewidth.StringWidth(line) > width {
			line = runewidth.Truncate(line, width, "")
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
