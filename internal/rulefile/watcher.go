package rulefile

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event is one reload of a watched rule file.
type Event struct {
	File *File
	Err  error
}

// Watcher reloads a rule file whenever it changes on disk.
type Watcher struct {
	Path     string
	Events   <-chan Event
	Debounce time.Duration

	events  chan Event
	done    chan struct{}
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher creates a watcher for path. Start must be called to begin.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	ch := make(chan Event, 4)
	return &Watcher{
		Path:     abs,
		Events:   ch,
		Debounce: 100 * time.Millisecond,
		events:   ch,
		done:     make(chan struct{}),
		watcher:  fw,
		logger:   logger,
	}, nil
}

// Start watches the file's directory; editors often replace files by rename.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher, waits for the loop to exit, then closes Events.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.events)
}

func (w *Watcher) loop() {
	defer close(w.done)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				w.emit()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("rule file watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) emit() {
	f, err := Load(w.Path)
	if err != nil {
		w.logger.Warn("rule file reload failed", zap.String("path", w.Path), zap.Error(err))
	} else {
		w.logger.Info("rule file reloaded", zap.String("path", w.Path), zap.Int("rules", len(f.Rules)))
	}
	select {
	case w.events <- Event{File: f, Err: err}:
	default:
		w.logger.Warn("dropping rule file reload; consumer is behind", zap.String("path", w.Path))
	}
}
