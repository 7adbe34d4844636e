package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/csvinsight/internal/utils"
)

const fileExt = ".json"

// document is the on-disk form of one session.
type document struct {
	ID        string            `json:"id"`
	Values    map[string]string `json:"values"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// FileManager persists each session as <dir>/<id>.json. Expiry is judged by
// file modification time, so sessions survive restarts.
type FileManager struct {
	mu  sync.Mutex
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileManager creates dir if needed. A non-positive ttl uses DefaultTTL.
func NewFileManager(dir string, ttl time.Duration) (*FileManager, error) {
	if dir == "" {
		return nil, errors.New("session dir not set")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure session dir: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &FileManager{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (m *FileManager) path(id string) string { return filepath.Join(m.dir, id+fileExt) }

func (m *FileManager) Load(id string) (Store, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.path(id)
	info, err := os.Stat(p)
	switch {
	case err == nil && m.expired(info.ModTime()):
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove expired session: %w", err)
		}
	case err == nil:
		now := m.now()
		if err := os.Chtimes(p, now, now); err != nil {
			return nil, fmt.Errorf("touch session: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("stat session: %w", err)
	}
	return &fileStore{m: m, id: id}, nil
}

func (m *FileManager) Destroy(id string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.Remove(m.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Sweep removes session files idle longer than the ttl. Errors are ignored;
// the next sweep retries.
func (m *FileManager) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil || !m.expired(info.ModTime()) {
			continue
		}
		_ = os.Remove(filepath.Join(m.dir, e.Name()))
	}
}

func (m *FileManager) expired(mod time.Time) bool { return m.now().Sub(mod) > m.ttl }

// read returns the stored document, or an empty one when the file is absent.
func (m *FileManager) read(id string) (*document, error) {
	b, err := os.ReadFile(m.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &document{ID: id, Values: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var d document
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if d.Values == nil {
		d.Values = map[string]string{}
	}
	return &d, nil
}

func (m *FileManager) write(d *document) error {
	d.UpdatedAt = m.now()
	data, err := utils.PrettyJSON(d)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.path(d.ID), data)
}

type fileStore struct {
	m  *FileManager
	id string
}

func (s *fileStore) Get(key string) (string, bool) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	d, err := s.m.read(s.id)
	if err != nil {
		return "", false
	}
	v, ok := d.Values[key]
	return v, ok
}

func (s *fileStore) update(fn func(values map[string]string)) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	d, err := s.m.read(s.id)
	if err != nil {
		return err
	}
	fn(d.Values)
	return s.m.write(d)
}

func (s *fileStore) Set(key, value string) error {
	return s.update(func(v map[string]string) { v[key] = value })
}

func (s *fileStore) Delete(key string) error {
	return s.update(func(v map[string]string) { delete(v, key) })
}

func (s *fileStore) Clear() error {
	return s.update(func(v map[string]string) {
		for k := range v {
			delete(v, k)
		}
	})
}
