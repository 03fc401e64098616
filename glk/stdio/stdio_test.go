package stdio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/chazu/glulx/glk"
)

func newTerminal(input string, opts Options) (*Terminal, *bytes.Buffer) {
	var out bytes.Buffer
	if opts.Width == 0 {
		opts.Width = 40
	}
	return New(strings.NewReader(input), &out, opts), &out
}

// openRoot opens a text-buffer root window and makes it current.
func openRoot(t *testing.T, term *Terminal) glk.WindowID {
	t.Helper()
	root := term.WindowOpen(0, 0, 0, glk.WinTypeTextBuffer, 1)
	if root == 0 {
		t.Fatal("WindowOpen(root) failed")
	}
	term.SetWindow(root)
	return root
}

func printTo(term *Terminal, s string) {
	term.PutBufferUni(codePoints(s))
}

func codePoints(s string) []uint32 {
	var out []uint32
	for _, r := range s {
		out = append(out, uint32(r))
	}
	return out
}

func TestTextBufferOutputAndLineInput(t *testing.T) {
	term, out := newTerminal("look\n", Options{})
	root := openRoot(t, term)

	term.PutBuffer([]byte("Hello\n"))
	term.PutCharUni(0x263A)
	term.PutChar('>')
	if got := out.String(); got != "Hello\n" {
		t.Errorf("output before input = %q, want only complete lines", got)
	}

	buf := &glk.Buffer{Bytes: make([]byte, 16)}
	term.RequestLineEvent(root, buf, 0)
	ev, err := term.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ev.Type != glk.EvtLineInput || ev.Win != root || ev.Val1 != 4 {
		t.Errorf("event = %+v", ev)
	}
	if got := string(buf.Bytes[:ev.Val1]); got != "look" {
		t.Errorf("line = %q", got)
	}
	if got := out.String(); got != "Hello\n☺>" {
		t.Errorf("output = %q", got)
	}
}

func TestWordWrap(t *testing.T) {
	term, out := newTerminal("", Options{Width: 10, Wrap: true})
	openRoot(t, term)
	printTo(term, "the quick brown fox\nshort\n")
	if got, want := out.String(), "the quick\nbrown fox\nshort\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestStatusWindow(t *testing.T) {
	term, out := newTerminal("\n", Options{Width: 20})
	root := openRoot(t, term)
	status := term.WindowOpen(root, glk.WinMethodAbove|glk.WinMethodFixed, 1, glk.WinTypeTextGrid, 2)
	if status == 0 {
		t.Fatal("WindowOpen(grid) failed")
	}
	if w, h := term.WindowGetSize(status); w != 20 || h != 1 {
		t.Errorf("grid size = %dx%d", w, h)
	}

	pair := term.WindowGetParent(status)
	if term.WindowGetType(pair) != glk.WinTypePair || term.WindowGetRoot() != pair {
		t.Fatalf("split did not install a pair window at the root")
	}
	if term.WindowGetSibling(status) != root || term.WindowGetParent(root) != pair {
		t.Error("pair children are wrong")
	}
	if method, size, key := term.WindowGetArrangement(pair); method != glk.WinMethodAbove|glk.WinMethodFixed || size != 1 || key != status {
		t.Errorf("arrangement = %d %d %d", method, size, key)
	}

	term.SetWindow(status)
	printTo(term, "Kitchen   Score: 5 and more text")
	term.SetWindow(root)
	term.RequestLineEvent(root, &glk.Buffer{Bytes: make([]byte, 8)}, 0)
	if _, err := term.Select(); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got, want := out.String(), "Kitchen   Score: 5 a\n"; got != want {
		t.Errorf("status output = %q, want %q", got, want)
	}

	term.WindowClose(status)
	if term.WindowGetRoot() != root || term.WindowGetParent(root) != 0 {
		t.Error("closing the split did not restore the original root")
	}
	if term.WindowGetType(pair) != 0 {
		t.Error("pair window survived")
	}
}

func TestGridCursor(t *testing.T) {
	term, _ := newTerminal("", Options{Width: 8})
	root := openRoot(t, term)
	grid := term.WindowOpen(root, glk.WinMethodAbove|glk.WinMethodFixed, 2, glk.WinTypeTextGrid, 0)
	term.SetWindow(grid)
	term.WindowMoveCursor(grid, 6, 0)
	printTo(term, "abc")
	w := term.windows[grid]
	if got := w.render(8); got != "      ab\nc\n" {
		t.Errorf("grid = %q", got)
	}
	term.WindowClear(grid)
	if got := w.render(8); got != "\n\n" {
		t.Errorf("cleared grid = %q", got)
	}
}

func TestSelectErrors(t *testing.T) {
	term, _ := newTerminal("", Options{})
	root := openRoot(t, term)
	if _, err := term.Select(); !errors.Is(err, ErrNoInputRequest) {
		t.Errorf("Select without request = %v", err)
	}
	term.RequestLineEvent(root, &glk.Buffer{Bytes: make([]byte, 8)}, 0)
	if _, err := term.Select(); err != io.EOF {
		t.Errorf("Select at end of input = %v, want io.EOF", err)
	}
}

func TestFinalLineWithoutNewline(t *testing.T) {
	term, _ := newTerminal("quit", Options{})
	root := openRoot(t, term)
	buf := &glk.Buffer{Runes: make([]uint32, 8)}
	term.RequestLineEventUni(root, buf, 0)
	ev, err := term.Select()
	if err != nil || ev.Val1 != 4 {
		t.Fatalf("Select = %+v, %v", ev, err)
	}
}

func TestCharInput(t *testing.T) {
	term, _ := newTerminal("xyz\n\n☺\n☺\n", Options{})
	root := openRoot(t, term)
	want := []struct {
		uni bool
		ch  uint32
	}{
		{false, 'x'},
		{false, glk.KeycodeReturn},
		{false, glk.KeycodeUnknown},
		{true, 0x263A},
	}
	for i, w := range want {
		if w.uni {
			term.RequestCharEventUni(root)
		} else {
			term.RequestCharEvent(root)
		}
		ev, err := term.Select()
		if err != nil {
			t.Fatalf("Select %d: %v", i, err)
		}
		if ev.Type != glk.EvtCharInput || ev.Val1 != w.ch {
			t.Errorf("event %d = %+v, want char $%X", i, ev, w.ch)
		}
	}
}

func TestLineEchoAndEchoStream(t *testing.T) {
	term, out := newTerminal("north\n", Options{EchoInput: true})
	root := openRoot(t, term)

	transcript := &glk.Buffer{Bytes: make([]byte, 32)}
	echo := term.StreamOpenMemory(transcript, glk.FileModeWrite, 0)
	term.WindowSetEchoStream(root, echo)
	if term.WindowGetEchoStream(root) != echo {
		t.Fatal("echo stream not recorded")
	}

	printTo(term, ">")
	term.RequestLineEvent(root, &glk.Buffer{Bytes: make([]byte, 8)}, 0)
	if _, err := term.Select(); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := out.String(); got != ">north\n" {
		t.Errorf("output = %q", got)
	}
	res := term.StreamClose(echo)
	if got := string(transcript.Bytes[:res.WriteCount]); got != ">north\n" {
		t.Errorf("echo stream = %q", got)
	}
	if term.WindowGetEchoStream(root) != 0 {
		t.Error("closed echo stream still attached")
	}
}

func TestCancelLineKeepsInitialText(t *testing.T) {
	term, _ := newTerminal("", Options{})
	root := openRoot(t, term)
	buf := &glk.Buffer{Bytes: []byte("ab      ")}
	term.RequestLineEvent(root, buf, 2)
	ev := term.CancelLineEvent(root)
	if ev.Type != glk.EvtLineInput || ev.Val1 != 2 {
		t.Errorf("cancel event = %+v", ev)
	}
	if ev := term.CancelLineEvent(root); ev.Type != glk.EvtNone {
		t.Errorf("second cancel = %+v", ev)
	}
}

func TestInitialTextPrefixesInput(t *testing.T) {
	term, _ := newTerminal("cd\n", Options{})
	root := openRoot(t, term)
	buf := &glk.Buffer{Bytes: []byte("ab      ")}
	term.RequestLineEvent(root, buf, 2)
	ev, _ := term.Select()
	if got := string(buf.Bytes[:ev.Val1]); got != "abcd" {
		t.Errorf("line = %q", got)
	}
}

func TestIteration(t *testing.T) {
	term, _ := newTerminal("", Options{})
	root := openRoot(t, term)
	mem := term.StreamOpenMemory(&glk.Buffer{Bytes: make([]byte, 4)}, glk.FileModeWrite, 9)

	if w, rock := term.WindowIterate(0); w != root || rock != 1 {
		t.Errorf("WindowIterate(0) = %d, %d", w, rock)
	}
	if w, _ := term.WindowIterate(root); w != 0 {
		t.Errorf("WindowIterate(root) = %d", w)
	}
	first, _ := term.StreamIterate(0)
	if first != term.WindowGetStream(root) {
		t.Errorf("first stream = %d", first)
	}
	if s, rock := term.StreamIterate(first); s != mem || rock != 9 {
		t.Errorf("second stream = %d, %d", s, rock)
	}
	if term.StreamGetRock(mem) != 9 || term.WindowGetRock(root) != 1 {
		t.Error("rocks not kept")
	}
}

func TestGestalt(t *testing.T) {
	term, _ := newTerminal("", Options{})
	arr := make([]uint32, 1)
	tests := []struct {
		sel, val uint32
		want     uint32
	}{
		{glk.GestaltVersion, 0, 0x00070600},
		{glk.GestaltUnicode, 0, 1},
		{glk.GestaltUnicodeNorm, 0, 1},
		{glk.GestaltDateTime, 0, 1},
		{glk.GestaltLineInput, 'a', 1},
		{glk.GestaltLineInput, 7, 0},
		{glk.GestaltCharOutput, 0x263A, glk.CharOutputExactPrint},
		{glk.GestaltCharOutput, 1, glk.CharOutputCannotPrint},
		{glk.GestaltTimer, 0, 0},
		{glk.GestaltGraphics, 0, 0},
	}
	for _, tt := range tests {
		if got := term.Gestalt(tt.sel, tt.val, arr); got != tt.want {
			t.Errorf("Gestalt(%d, %d) = %d, want %d", tt.sel, tt.val, got, tt.want)
		}
	}
}

func TestUnsupportedWindowTypes(t *testing.T) {
	term, _ := newTerminal("", Options{})
	if term.WindowOpen(0, 0, 0, glk.WinTypeGraphics, 0) != 0 {
		t.Error("graphics window opened")
	}
	root := openRoot(t, term)
	if term.WindowOpen(0, 0, 0, glk.WinTypeTextBuffer, 0) != 0 {
		t.Error("second root opened")
	}
	if term.WindowOpen(root+100, 0, 0, glk.WinTypeTextBuffer, 0) != 0 {
		t.Error("split of unknown window opened")
	}
}

func TestExitFlushes(t *testing.T) {
	term, out := newTerminal("", Options{})
	openRoot(t, term)
	printTo(term, "bye")
	term.Exit()
	if out.String() != "bye" || !term.Exited() {
		t.Errorf("after Exit output = %q, exited = %v", out.String(), term.Exited())
	}
}
