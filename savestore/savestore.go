// Package savestore keeps saved games, transcripts and data files in a
// SQLite database, keyed by game, file name and usage.
package savestore

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/glulx/glk"
)

// ErrNotFound is returned for a missing file. It matches fs.ErrNotExist.
var ErrNotFound = fmt.Errorf("savestore: %w", fs.ErrNotExist)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("savestore: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Meta describes a stored file. It is kept as a CBOR blob beside the data.
type Meta struct {
	Size   int    `cbor:"1,keyasint"`
	Format string `cbor:"2,keyasint,omitempty"` // IFF form type, when the data is one
	Title  string `cbor:"3,keyasint,omitempty"` // free text supplied by the caller
}

// Slot is one stored file.
type Slot struct {
	ID      uuid.UUID
	Game    string
	Name    string
	Usage   uint32
	Created time.Time
	Meta    Meta
}

// Store is a handle on a save database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log commonlog.Logger
	now func() time.Time
}

const schema = `CREATE TABLE IF NOT EXISTS saves (
	id TEXT PRIMARY KEY,
	game TEXT NOT NULL,
	name TEXT NOT NULL,
	usage INTEGER NOT NULL,
	data BLOB NOT NULL,
	meta BLOB NOT NULL,
	created INTEGER NOT NULL,
	UNIQUE (game, name, usage)
)`

// Open opens or creates the database at path. The path ":memory:" gives a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite has a single writer, and each connection to
	// ":memory:" would see its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, log: commonlog.GetLogger("glulx.savestore"), now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// describe builds the metadata recorded for data.
func describe(data []byte, title string) Meta {
	m := Meta{Size: len(data), Title: title}
	if len(data) >= 12 && string(data[:4]) == "FORM" {
		m.Format = string(data[8:12])
	}
	return m
}

// Put stores data, replacing any file with the same game, name and usage.
// A replaced file keeps its id.
func (s *Store) Put(game, name string, usage uint32, data []byte) (uuid.UUID, error) {
	return s.PutTitled(game, name, usage, data, "")
}

// PutTitled is Put with a description recorded in the metadata.
func (s *Store) PutTitled(game, name string, usage uint32, data []byte, title string) (uuid.UUID, error) {
	meta, err := cborEncMode.Marshal(describe(data, title))
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`INSERT INTO saves (id, game, name, usage, data, meta, created)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game, name, usage) DO UPDATE SET
			data = excluded.data, meta = excluded.meta, created = excluded.created`,
		uuid.New().String(), game, name, usage, data, meta, s.now().UnixNano())
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving %q: %w", name, err)
	}

	var id string
	err = s.db.QueryRow("SELECT id FROM saves WHERE game = ? AND name = ? AND usage = ?",
		game, name, usage).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading back %q: %w", name, err)
	}
	s.log.Infof("stored %s %q (%d bytes)", game, name, len(data))
	return uuid.Parse(id)
}

// Get returns the contents of a file, or ErrNotFound.
func (s *Store) Get(game, name string, usage uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow("SELECT data FROM saves WHERE game = ? AND name = ? AND usage = ?",
		game, name, usage).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("loading %q: %w", name, err)
	}
	return data, nil
}

// Exists reports whether a file is stored.
func (s *Store) Exists(game, name string, usage uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM saves WHERE game = ? AND name = ? AND usage = ?",
		game, name, usage).Scan(&n)
	if err != nil {
		s.log.Warningf("checking %q: %s", name, err)
		return false
	}
	return n > 0
}

// Delete removes a file. Deleting a missing file returns ErrNotFound.
func (s *Store) Delete(game, name string, usage uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM saves WHERE game = ? AND name = ? AND usage = ?", game, name, usage)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return nil
}

// List returns the files stored for game, newest first.
func (s *Store) List(game string) ([]Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, name, usage, meta, created FROM saves
		WHERE game = ? ORDER BY created DESC, name`, game)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		var (
			id, name string
			usage    uint32
			meta     []byte
			created  int64
		)
		if err := rows.Scan(&id, &name, &usage, &meta, &created); err != nil {
			return nil, fmt.Errorf("listing saves: %w", err)
		}
		slot := Slot{Game: game, Name: name, Usage: usage, Created: time.Unix(0, created)}
		if slot.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("slot %q: %w", name, err)
		}
		if err := cbor.Unmarshal(meta, &slot.Meta); err != nil {
			return nil, fmt.Errorf("slot %q metadata: %w", name, err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// ---------------------------------------------------------------------------
// Storage adapter
// ---------------------------------------------------------------------------

// GameStorage is the view of a Store for one game. It satisfies the
// terminal's Storage interface. Text and binary files of the same usage
// share a slot.
type GameStorage struct {
	store *Store
	game  string
}

// Storage returns the files of game.
func (s *Store) Storage(game string) *GameStorage {
	return &GameStorage{store: s, game: game}
}

func (g *GameStorage) Load(name string, usage uint32) ([]byte, error) {
	return g.store.Get(g.game, name, usage&glk.FileUsageTypeMask)
}

func (g *GameStorage) Store(name string, usage uint32, data []byte) error {
	_, err := g.store.Put(g.game, name, usage&glk.FileUsageTypeMask, data)
	return err
}

func (g *GameStorage) Exists(name string, usage uint32) bool {
	return g.store.Exists(g.game, name, usage&glk.FileUsageTypeMask)
}

func (g *GameStorage) Remove(name string, usage uint32) error {
	return g.store.Delete(g.game, name, usage&glk.FileUsageTypeMask)
}
