// Package stdio is a line-oriented Capability for a plain terminal.
//
// It provides a single text-buffer root window on an io.Writer, text-grid
// windows rendered as status lines before each input, memory and file
// streams, file references backed by a Storage, and line or character
// input read from an io.Reader. Graphics, sound, timers and hyperlinks
// report unsupported.
package stdio

import (
	"bufio"
	"errors"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/tliron/commonlog"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/chazu/glulx/glk"
)

// ErrNoInputRequest is returned by Select when the program waits without
// any pending input request. Nothing could ever arrive.
var ErrNoInputRequest = errors.New("stdio: select with no input request")

const (
	defaultWidth  = 80
	defaultHeight = 25
)

// Resources supplies the data resources read by resource streams.
type Resources interface {
	DataResource(num uint32) (data []byte, text bool, ok bool)
}

// Options configures a Terminal.
type Options struct {
	Width     int            // columns; 0 detects the terminal width, falling back to 80
	Height    int            // rows reported for the root window; 0 means 25
	Wrap      bool           // word-wrap text-buffer output at Width
	EchoInput bool           // print input lines back, for input that is not a terminal
	Storage   Storage        // backing store for named files; nil keeps them in memory
	Resources Resources      // data resources for resource streams; may be nil
	Location  *time.Location // zone for local date conversions; nil means time.Local
	Clock     func() time.Time
}

// Terminal implements glk.Capability on a reader and a writer.
type Terminal struct {
	glk.Unsupported

	in      *bufio.Reader
	out     io.Writer
	width   int
	height  int
	wrap    bool
	echo    bool
	storage Storage
	res     Resources
	loc     *time.Location
	now     func() time.Time
	log     commonlog.Logger

	nextID  uint32
	windows map[glk.WindowID]*window
	streams map[glk.StreamID]*stream
	frefs   map[glk.FileRefID]*fileRef
	root    glk.WindowID
	current glk.StreamID

	line   *lineRequest
	char   *charRequest
	exited bool
	werr   error

	upper, lower, title cases.Caser
}

var _ glk.Capability = (*Terminal)(nil)

// New creates a Terminal reading input from in and writing to out.
func New(in io.Reader, out io.Writer, opts Options) *Terminal {
	t := &Terminal{
		in:      bufio.NewReader(in),
		out:     out,
		width:   opts.Width,
		height:  opts.Height,
		wrap:    opts.Wrap,
		echo:    opts.EchoInput,
		storage: opts.Storage,
		res:     opts.Resources,
		loc:     opts.Location,
		now:     opts.Clock,
		log:     commonlog.GetLogger("glulx.stdio"),
		windows: make(map[glk.WindowID]*window),
		streams: make(map[glk.StreamID]*stream),
		frefs:   make(map[glk.FileRefID]*fileRef),
		upper:   cases.Upper(language.Und),
		lower:   cases.Lower(language.Und),
		title:   cases.Title(language.Und, cases.NoLower),
	}
	if t.width <= 0 {
		if f, ok := out.(*os.File); ok {
			t.width = TerminalWidth(f)
		}
		if t.width <= 0 {
			t.width = defaultWidth
		}
	}
	if t.height <= 0 {
		t.height = defaultHeight
	}
	if t.storage == nil {
		t.storage = NewMemoryStorage()
	}
	if t.loc == nil {
		t.loc = time.Local
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the column count of f, or 0 when f is not a
// terminal.
func TerminalWidth(f *os.File) int {
	if !IsTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// Close flushes pending output and writes back every open file stream.
// It returns the first write error seen.
func (t *Terminal) Close() error {
	t.flush()
	for _, id := range slices.Sorted(maps.Keys(t.streams)) {
		if s := t.streams[id]; s.kind == fileStream {
			t.StreamClose(id)
		}
	}
	return t.werr
}

// Exited reports whether the program called glk_exit.
func (t *Terminal) Exited() bool {
	return t.exited
}

func (t *Terminal) Exit() {
	t.flush()
	t.exited = true
}

func (t *Terminal) Tick() {}

func (t *Terminal) Gestalt(sel, val uint32, arr []uint32) uint32 {
	switch sel {
	case glk.GestaltVersion:
		return 0x00070600
	case glk.GestaltCharInput:
		return b2u(val <= 0x10FFFF || val == glk.KeycodeReturn)
	case glk.GestaltLineInput:
		return b2u(printable(val))
	case glk.GestaltCharOutput:
		if printable(val) {
			if len(arr) > 0 {
				arr[0] = 1
			}
			return glk.CharOutputExactPrint
		}
		if len(arr) > 0 {
			arr[0] = 0
		}
		return glk.CharOutputCannotPrint
	case glk.GestaltUnicode, glk.GestaltUnicodeNorm, glk.GestaltLineInputEcho, glk.GestaltDateTime:
		return 1
	}
	return 0
}

func printable(ch uint32) bool {
	return (ch >= 0x20 && ch < 0x7F) || (ch >= 0xA0 && ch <= 0x10FFFF)
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (t *Terminal) newID() uint32 {
	t.nextID++
	return t.nextID
}

// nextKey returns the smallest key of m greater than after, or zero.
func nextKey[K ~uint32, V any](m map[K]V, after K) K {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		if k > after {
			return k
		}
	}
	return 0
}

// write sends raw text to the output, remembering the first error.
func (t *Terminal) write(s string) {
	if s == "" || t.werr != nil {
		return
	}
	if _, err := io.WriteString(t.out, s); err != nil {
		t.werr = err
		t.log.Errorf("output: %s", err)
	}
}
