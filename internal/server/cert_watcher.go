package server

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"resumelens/internal/errors"
)

const defaultDebounceDelay = time.Second

// CertWatcher calls onChange once a burst of writes to the watched files settles.
// Parent directories are watched so atomic rename-style replacements are seen.
type CertWatcher struct {
	mu      sync.Mutex
	running bool

	files    []string
	debounce time.Duration
	onChange func()
	logger   *errors.Logger

	fs   *fsnotify.Watcher
	stop chan struct{}
	done chan struct{}
}

// NewCertWatcher prepares a watcher for files; it does not touch the filesystem until Start
func NewCertWatcher(files []string, debounce time.Duration, onChange func(), logger *errors.Logger) (*CertWatcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no certificate files to watch")
	}
	if debounce <= 0 {
		debounce = defaultDebounceDelay
	}

	abs := make([]string, 0, len(files))
	for _, f := range files {
		p, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f, err)
		}
		if !slices.Contains(abs, p) {
			abs = append(abs, p)
		}
	}

	return &CertWatcher{
		files:    abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Start begins watching
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	var dirs []string
	for _, f := range cw.files {
		if dir := filepath.Dir(f); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	cw.fs = fsw
	cw.stop = make(chan struct{})
	cw.done = make(chan struct{})
	cw.running = true
	go cw.loop()

	cw.logger.Info("Certificate watcher started",
		"files", cw.files,
		"debounce", cw.debounce.String())
	return nil
}

// Stop ends watching and waits for the event loop to exit; it is safe to call twice
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	if !cw.running {
		cw.mu.Unlock()
		return nil
	}
	cw.running = false
	close(cw.stop)
	done := cw.done
	cw.mu.Unlock()

	<-done
	return cw.fs.Close()
}

// IsRunning reports whether the event loop is active
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// Files returns the absolute paths being watched
func (cw *CertWatcher) Files() []string {
	return slices.Clone(cw.files)
}

func (cw *CertWatcher) loop() {
	defer close(cw.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-cw.fs.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			cw.logger.Debug("Certificate file event", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
			} else {
				timer.Reset(cw.debounce)
			}
			fire = timer.C

		case err, ok := <-cw.fs.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "Certificate watcher error")

		case <-fire:
			fire = nil
			cw.onChange()

		case <-cw.stop:
			return
		}
	}
}

func (cw *CertWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	return slices.Contains(cw.files, filepath.Clean(event.Name))
}
