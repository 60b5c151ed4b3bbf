// Package watch re-runs an action when source files change.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Op is a set of change kinds.
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// Event reports a change to one watched file.
type Event struct {
	Path string
	Op   Op
}

// Watcher watches individual files. The parent directories are watched so
// that files replaced by rename are still seen.
type Watcher struct {
	w        *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
}

// New watches the given files.
func New(files ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &Watcher{w: w, files: make(map[string]bool), debounce: DefaultDebounce}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.Close()
			return nil, err
		}
		fw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			w.Close()
			return nil, err
		}
	}

	return fw, nil
}

// SetDebounce changes the quiet period before a change is delivered.
func (fw *Watcher) SetDebounce(d time.Duration) { fw.debounce = d }

// Close stops watching.
func (fw *Watcher) Close() error { return fw.w.Close() }

func convert(op fsnotify.Op) Op {
	var out Op
	if op&fsnotify.Create != 0 {
		out |= OpCreate
	}
	if op&fsnotify.Write != 0 {
		out |= OpWrite
	}
	if op&fsnotify.Remove != 0 {
		out |= OpRemove
	}
	if op&fsnotify.Rename != 0 {
		out |= OpRename
	}
	return out
}

// Run calls onChange once per quiet burst of changes to a watched file
// until ctx is cancelled or the watcher fails. Removals alone do not
// trigger onChange.
func (fw *Watcher) Run(ctx context.Context, onChange func(Event)) error {
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending Event
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case ev, ok := <-fw.w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !fw.files[abs] {
				continue
			}
			op := convert(ev.Op)
			if op&(OpCreate|OpWrite) == 0 {
				continue
			}
			if pending.Path != abs {
				pending = Event{Path: abs}
			}
			pending.Op |= op

			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(fw.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(pending)
			pending = Event{}

		case err, ok := <-fw.w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
