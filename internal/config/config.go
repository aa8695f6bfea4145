// Package config loads and watches the engine configuration.
//
// Configuration is read from codestream.json, codestream.jsonc, or
// codestream.yaml in the global config directory (~/.config/codestream/)
// and the project directory, project values overriding global ones, with
// environment variables taking final priority. The Service also watches the
// loaded files and notifies subscribers on change, so options like diff
// decoration visibility can be toggled live.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/codestream-ai/codestream/internal/event"
	"github.com/codestream-ai/codestream/internal/logging"
	"github.com/codestream-ai/codestream/pkg/types"
)

var fileNames = []string{"codestream.json", "codestream.jsonc", "codestream.yaml"}

// Service holds the current options and fans out change notifications.
type Service struct {
	mu     sync.RWMutex
	opts   types.Options
	loaded []string

	subMu   sync.Mutex
	subs    map[uint64]func(types.Options)
	nextSub uint64

	watcher *fsnotify.Watcher
}

// Load reads configuration for the given project directory.
func Load(directory string) (*Service, error) {
	s := &Service{subs: make(map[uint64]func(types.Options))}
	s.opts, s.loaded = load(directory)
	return s, nil
}

func load(directory string) (types.Options, []string) {
	var opts types.Options
	var loaded []string

	dirs := []string{}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "codestream"))
	}
	if directory != "" {
		dirs = append(dirs, directory)
	}

	for _, dir := range dirs {
		for _, name := range fileNames {
			path := filepath.Join(dir, name)
			if err := loadFile(path, &opts); err == nil {
				loaded = append(loaded, path)
			}
		}
	}

	applyEnvOverrides(&opts)
	return opts, loaded
}

// loadFile merges one config file into opts. Missing files are skipped.
func loadFile(path string, opts *types.Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return yaml.Unmarshal(data, opts)
	}
	return json.Unmarshal(jsonc.ToJSON(data), opts)
}

func applyEnvOverrides(opts *types.Options) {
	if v := os.Getenv("CODESTREAM_LOG_LEVEL"); v != "" {
		opts.LogLevel = v
	}
	if v := os.Getenv("CODESTREAM_AGENT_URL"); v != "" {
		opts.Agent.BaseURL = v
	}
}

// Options returns a copy of the current options.
func (s *Service) Options() types.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// SetOptions replaces the current options and notifies subscribers. Used by
// the config API and by tests.
func (s *Service) SetOptions(opts types.Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
	s.notify(opts)
}

// DecorationsVisible reports whether diff decorations should be shown for
// the named document under the current options.
func (s *Service) DecorationsVisible(document string) bool {
	opts := s.Options()
	if opts.Decorations.Enabled != nil && !*opts.Decorations.Enabled {
		return false
	}
	for _, pattern := range opts.Decorations.Exclude {
		if ok, err := doublestar.Match(pattern, document); err == nil && ok {
			return false
		}
	}
	return true
}

// DiffBudget returns the configured diff computation budget.
func (s *Service) DiffBudget() time.Duration {
	opts := s.Options()
	if opts.Diff.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(opts.Diff.TimeoutMS) * time.Millisecond
}

// Subscribe registers a change listener. The returned function unsubscribes.
func (s *Service) Subscribe(fn func(types.Options)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) notify(opts types.Options) {
	s.subMu.Lock()
	subs := make([]func(types.Options), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(opts)
	}
	event.Publish(event.Event{
		Type: event.ConfigUpdated,
		Data: event.ConfigUpdatedData{Options: opts},
	})
}

// Watch starts watching the loaded config files for changes, reloading and
// notifying subscribers on write. No-op when no config file was found.
func (s *Service) Watch(directory string) error {
	s.mu.RLock()
	loaded := append([]string(nil), s.loaded...)
	s.mu.RUnlock()
	if len(loaded) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	watched := make(map[string]bool)
	for _, path := range loaded {
		dir := filepath.Dir(path)
		if !watched[dir] {
			if err := watcher.Add(dir); err != nil {
				logging.Warn().Err(err).Str("dir", dir).Msg("config watch failed")
				continue
			}
			watched[dir] = true
		}
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if !isConfigFile(ev.Name) {
					continue
				}
				opts, files := load(directory)
				s.mu.Lock()
				s.opts = opts
				s.loaded = files
				s.mu.Unlock()
				logging.Debug().Str("file", ev.Name).Msg("config reloaded")
				s.notify(opts)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return nil
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range fileNames {
		if base == name {
			return true
		}
	}
	return false
}

// Close stops the config watcher.
func (s *Service) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
