package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	dirPrefix    = "MiniStudio_"
	dirTime      = "2006-01-02 15:04:05"
	ManifestName = "session.yaml"
	framePattern = "frame_%06d.png"
)

// Manifest describes one recording session.
type Manifest struct {
	ID       string    `yaml:"id"`
	Project  string    `yaml:"project,omitempty"`
	Title    string    `yaml:"title,omitempty"`
	Subtitle string    `yaml:"subtitle,omitempty"`
	Size     [2]int    `yaml:"size"`
	FPS      float64   `yaml:"fps"`
	Started  time.Time `yaml:"started"`
	Stopped  time.Time `yaml:"stopped,omitempty"`
	Frames   uint64    `yaml:"frames"`
}

// DirName is MiniStudio_<date time>[_project].
func DirName(project string, t time.Time) string {
	name := dirPrefix + t.Format(dirTime)
	if project != "" {
		name += "_" + project
	}
	return name
}

// Session is a directory receiving a PNG sequence.
type Session struct {
	dir    string
	mu     sync.Mutex
	m      Manifest
	frames atomic.Uint64
	// pending считает кадры, которые ещё рендерятся в эту сессию.
	pending int
	ending  bool
	closed  bool
}

// Create makes the session directory under base and writes its manifest.
func Create(base string, m Manifest) (*Session, error) {
	if m.Started.IsZero() {
		m.Started = time.Now()
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	dir := filepath.Join(base, DirName(m.Project, m.Started))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	s := &Session{dir: dir, m: m}
	if err := WriteManifest(dir, &s.m); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Dir() string { return s.dir }

func (s *Session) ID() string { return s.m.ID }

func (s *Session) FramePath(id uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf(framePattern, id))
}

func (s *Session) Frames() uint64 { return s.frames.Load() }

// Hold registers a frame that is being rendered into the session.
func (s *Session) Hold() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

// Done settles a held frame. After End the manifest is written by the call
// that settles the last held frame; closed reports that.
func (s *Session) Done(written bool) (closed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if written {
		s.frames.Add(1)
	}
	if s.pending > 0 {
		s.pending--
	}
	if s.ending && s.pending == 0 && !s.closed {
		return true, s.closeLocked()
	}
	return false, nil
}

// End closes the session as soon as no held frame is outstanding.
func (s *Session) End() (closed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ending = true
	if s.pending > 0 || s.closed {
		return false, nil
	}
	return true, s.closeLocked()
}

// Close stamps the stop time and frame count into the manifest.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Session) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.m.Stopped = time.Now()
	s.m.Frames = s.frames.Load()
	return WriteManifest(s.dir, &s.m)
}

func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644)
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}
	return &m, nil
}

// FramePattern is the ffmpeg image2 pattern for a session's frames.
func FramePattern(dir string) string {
	return filepath.Join(dir, framePattern)
}

// FindLatest returns the most recently modified session directory under base.
func FindLatest(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", err
	}

	var latest string
	var latestTime time.Time
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latest = filepath.Join(base, e.Name())
		}
	}
	if latest == "" {
		return "", fmt.Errorf("в папке %s не найдено сессий", base)
	}
	return latest, nil
}
