// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Main workspace logic

package workspace

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/moby/sys/atomicwriter"
)

var (
	// mutex ensures thread-safe run ID generation
	idMutex sync.Mutex
	// lastTimestamp prevents duplicate IDs in the same minute
	lastTimestamp string
	lastCounter   int

	// one path segment, starting with a letter or digit so "." and ".." never match
	validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// GenerateRunID creates a unique run ID with format: run-YYYYMMDD-HHMM-3hexchars
// or run-YYYYMMDD-HHMM-NNN (counter format) for rapid successive calls
func GenerateRunID() (string, error) {
	idMutex.Lock()
	defer idMutex.Unlock()

	timestamp := time.Now().Format("20060102-1504")

	if timestamp == lastTimestamp {
		lastCounter++
		return fmt.Sprintf("%s-%s-%03d", RunIDPrefix, timestamp, lastCounter), nil
	}

	randomBytes := make([]byte, 2)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	randomHex := hex.EncodeToString(randomBytes)[:3]

	lastTimestamp = timestamp
	lastCounter = 0

	return fmt.Sprintf("%s-%s-%s", RunIDPrefix, timestamp, randomHex), nil
}

// ValidateID checks that id can be used verbatim as a directory name under the root.
// Identifiers are rejected rather than rewritten.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidID, MaxIDLength)
	}
	if !validID.MatchString(id) {
		return fmt.Errorf("%w: %q (use letters, digits, '.', '_' or '-', starting with a letter or digit)", ErrInvalidID, id)
	}
	return nil
}

// Store maps workspace identifiers to directories under a root
type Store struct {
	root    string
	history bool
	author  string
	email   string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore creates the root directory if needed and returns a store over it
func NewStore(config *StoreConfig) (*Store, error) {
	if config == nil || config.Root == "" {
		return nil, fmt.Errorf("workspace root is required")
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root %s: %w", config.Root, err)
	}
	if err := os.MkdirAll(root, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
	}

	author, email := config.Author, config.Email
	if author == "" {
		author = DefaultAuthor
	}
	if email == "" {
		email = DefaultEmail
	}

	return &Store{
		root:    root,
		history: config.History,
		author:  author,
		email:   email,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// Root returns the absolute workspace root
func (s *Store) Root() string {
	return s.root
}

// HistoryEnabled reports whether generations are committed to git
func (s *Store) HistoryEnabled() bool {
	return s.history
}

// Path returns the directory for id without touching the filesystem
func (s *Store) Path(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, id)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel != id {
		return "", fmt.Errorf("%w: %q escapes the workspace root", ErrInvalidID, id)
	}
	return path, nil
}

// Ensure returns the workspace for id, creating its directory if absent.
// Calling it repeatedly is safe.
func (s *Store) Ensure(id string) (*Workspace, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		created = true
	}

	if err := os.MkdirAll(path, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory %s: %w", path, err)
	}

	return &Workspace{ID: id, Path: path, Created: created}, nil
}

// Open returns an existing workspace
func (s *Store) Open(id string) (*Workspace, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat workspace %s: %w", path, err)
	}

	return &Workspace{ID: id, Path: path}, nil
}

// WriteFile atomically replaces one file inside the workspace
func (s *Store) WriteFile(ws *Workspace, name string, content []byte) error {
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid file name %q", name)
	}

	target := filepath.Join(ws.Path, name)
	if err := atomicwriter.WriteFile(target, content, FilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

// List returns the workspaces under the root, sorted by identifier.
// Entries that are not valid identifiers are skipped.
func (s *Store) List(generated []string) ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace root: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		if !entry.IsDir() || ValidateID(entry.Name()) != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		ws := Workspace{ID: entry.Name(), Path: filepath.Join(s.root, entry.Name())}
		item := Info{
			ID:       ws.ID,
			Path:     ws.Path,
			ModTime:  info.ModTime(),
			HasState: ws.exists(StateFile),
		}
		for _, name := range generated {
			if ws.exists(name) {
				item.Files = append(item.Files, name)
			}
		}
		out = append(out, item)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TryLock takes the run lock for a workspace without waiting.
// The lock is held both in process and as a file lock under the root, so
// separate tfpanel processes sharing a root exclude each other too.
// The returned function releases it.
func (s *Store) TryLock(id string) (func(), error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	s.mu.Unlock()

	if !lock.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrLocked, id)
	}

	fileLock, err := s.lockFile(id)
	if err != nil {
		lock.Unlock()
		return nil, err
	}

	return func() {
		_ = fileLock.Unlock()
		lock.Unlock()
	}, nil
}

// lockFile takes <root>/.locks/<id>.lock for the duration of a run
func (s *Store) lockFile(id string) (*flock.Flock, error) {
	dir := filepath.Join(s.root, LockDir)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fileLock := flock.New(filepath.Join(dir, id+".lock"))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock workspace %s: %w", id, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s is in use by another process", ErrLocked, id)
	}
	return fileLock, nil
}

// FilePath returns the path of a file inside the workspace
func (w *Workspace) FilePath(name string) string {
	return filepath.Join(w.Path, name)
}

// StatePath returns the path of the local terraform state file
func (w *Workspace) StatePath() string {
	return w.FilePath(StateFile)
}

func (w *Workspace) exists(name string) bool {
	info, err := os.Stat(w.FilePath(name))
	return err == nil && !info.IsDir()
}

// String returns a string representation of the workspace
func (w *Workspace) String() string {
	return fmt.Sprintf("Workspace{ID: %s, Path: %s}", w.ID, w.Path)
}
