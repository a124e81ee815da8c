package vault

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// debounceDefault coalesces editor write bursts into one notification.
const debounceDefault = 500 * time.Millisecond

// Watcher watches a set of files and invokes a callback after changes
// settle. Used to re-refresh the trust store when a watched trust note
// or external trust file is edited.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	paths    []string
}

// NewWatcher creates a watcher for the given file paths. Paths that do
// not exist yet are skipped with a warning; the trust store treats the
// corresponding source as contributing nothing until it appears.
func NewWatcher(paths []string, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	var watched []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			logrus.WithField("path", p).Warn("trust source absent, not watching")
			continue
		}
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, err
		}
		watched = append(watched, p)
	}

	return &Watcher{
		watcher:  fw,
		onChange: onChange,
		debounce: debounceDefault,
		paths:    watched,
	}, nil
}

// Paths returns the files actually under watch.
func (w *Watcher) Paths() []string { return w.paths }

// Watch returns a Watcher covering the given note references, resolved
// against the vault root.
func (v *Vault) Watch(refs []string, onChange func()) (*Watcher, error) {
	var paths []string
	for _, ref := range refs {
		p, err := v.Resolve(ref)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return NewWatcher(paths, onChange)
}

// Run delivers change notifications until ctx is cancelled. A single
// debounce timer resets on each event; the callback fires only after
// writes settle.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			w.onChange()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logrus.WithError(err).Warn("trust source watcher error")
		}
	}
}
