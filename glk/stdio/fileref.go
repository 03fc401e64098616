package stdio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/glulx/glk"
)

// Storage holds the contents of named files. Load reports a missing file
// with an error wrapping fs.ErrNotExist.
type Storage interface {
	Load(name string, usage uint32) ([]byte, error)
	Store(name string, usage uint32, data []byte) error
	Exists(name string, usage uint32) bool
	Remove(name string, usage uint32) error
}

// Extension returns the file suffix conventionally used for usage.
func Extension(usage uint32) string {
	switch usage & glk.FileUsageTypeMask {
	case glk.FileUsageSavedGame:
		return ".glksave"
	case glk.FileUsageTranscript, glk.FileUsageInputRecord:
		return ".txt"
	}
	return ".glkdata"
}

// DirStorage keeps files in a directory, named after the file reference
// plus a per-usage extension.
type DirStorage struct {
	Dir string
}

func (d DirStorage) path(name string, usage uint32) string {
	return filepath.Join(d.Dir, name+Extension(usage))
}

func (d DirStorage) Load(name string, usage uint32) ([]byte, error) {
	return os.ReadFile(d.path(name, usage))
}

func (d DirStorage) Store(name string, usage uint32, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.path(name, usage), data, 0o644)
}

func (d DirStorage) Exists(name string, usage uint32) bool {
	_, err := os.Stat(d.path(name, usage))
	return err == nil
}

func (d DirStorage) Remove(name string, usage uint32) error {
	return os.Remove(d.path(name, usage))
}

// MemoryStorage keeps files in a map. It is the default when no storage is
// configured.
type MemoryStorage struct {
	files map[string][]byte
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(name string, usage uint32) ([]byte, error) {
	data, ok := m.files[name+Extension(usage)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Store(name string, usage uint32, data []byte) error {
	m.files[name+Extension(usage)] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Exists(name string, usage uint32) bool {
	_, ok := m.files[name+Extension(usage)]
	return ok
}

func (m *MemoryStorage) Remove(name string, usage uint32) error {
	delete(m.files, name+Extension(usage))
	return nil
}

// ---------------------------------------------------------------------------
// File references
// ---------------------------------------------------------------------------

type fileRef struct {
	name  string
	usage uint32
	rock  uint32
	temp  bool
}

// CleanFileName strips characters that are unsafe in a file name and
// everything from the first period. An empty result becomes "null".
func CleanFileName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\<>:|?*"`, r) || r < 0x20 {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "null"
	}
	return name
}

func (t *Terminal) addFileRef(fr *fileRef) glk.FileRefID {
	id := glk.FileRefID(t.newID())
	t.frefs[id] = fr
	return id
}

func (t *Terminal) FileRefCreateTemp(usage, rock uint32) glk.FileRefID {
	return t.addFileRef(&fileRef{name: fmt.Sprintf("glulx-temp-%d", t.nextID+1), usage: usage, rock: rock, temp: true})
}

func (t *Terminal) FileRefCreateByName(usage uint32, name string, rock uint32) glk.FileRefID {
	return t.addFileRef(&fileRef{name: CleanFileName(name), usage: usage, rock: rock})
}

// FileRefCreateByPrompt asks for a name on the terminal. An empty answer,
// the end of input, or reading a file that does not exist cancels.
func (t *Terminal) FileRefCreateByPrompt(usage, fmode, rock uint32) glk.FileRefID {
	kind := "data file"
	switch usage & glk.FileUsageTypeMask {
	case glk.FileUsageSavedGame:
		kind = "saved game"
	case glk.FileUsageTranscript:
		kind = "transcript"
	case glk.FileUsageInputRecord:
		kind = "command record"
	}
	t.flush()
	t.write(fmt.Sprintf("Enter a file name for the %s: ", kind))
	answer, err := t.readLine()
	if err != nil || strings.TrimSpace(answer) == "" {
		t.write("\n")
		return 0
	}
	if t.echo {
		t.write(answer + "\n")
	}
	name := CleanFileName(answer)
	if fmode == glk.FileModeRead && !t.storage.Exists(name, usage) {
		t.write("No such file.\n")
		return 0
	}
	return t.addFileRef(&fileRef{name: name, usage: usage, rock: rock})
}

func (t *Terminal) FileRefCreateFromFileRef(usage uint32, fref glk.FileRefID, rock uint32) glk.FileRefID {
	fr := t.frefs[fref]
	if fr == nil {
		return 0
	}
	return t.addFileRef(&fileRef{name: fr.name, usage: usage, rock: rock})
}

func (t *Terminal) FileRefDestroy(fref glk.FileRefID) {
	fr := t.frefs[fref]
	if fr == nil {
		return
	}
	if fr.temp {
		t.storage.Remove(fr.name, fr.usage)
	}
	delete(t.frefs, fref)
}

func (t *Terminal) FileRefIterate(fref glk.FileRefID) (glk.FileRefID, uint32) {
	next := nextKey(t.frefs, fref)
	if next == 0 {
		return 0, 0
	}
	return next, t.frefs[next].rock
}

func (t *Terminal) FileRefGetRock(fref glk.FileRefID) uint32 {
	if fr := t.frefs[fref]; fr != nil {
		return fr.rock
	}
	return 0
}

func (t *Terminal) FileRefDeleteFile(fref glk.FileRefID) {
	if fr := t.frefs[fref]; fr != nil {
		if err := t.storage.Remove(fr.name, fr.usage); err != nil {
			t.log.Debugf("deleting %q: %s", fr.name, err)
		}
	}
}

func (t *Terminal) FileRefDoesFileExist(fref glk.FileRefID) bool {
	fr := t.frefs[fref]
	return fr != nil && t.storage.Exists(fr.name, fr.usage)
}
