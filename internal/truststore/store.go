// Package truststore aggregates authorized content digests from manual
// configuration, notes inside the document vault, and external files.
// The materialized set is replaced wholesale on Refresh; readers always
// see either the previous complete snapshot or the new one, never a
// partially built set.
package truststore

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/fencegate/fencegate/internal/digest"
)

// SourceKind distinguishes where a trust source's body comes from.
type SourceKind string

const (
	// KindNote references a document inside the vault, read through
	// the DocumentStore collaborator.
	KindNote SourceKind = "note"
	// KindExternal references a file outside the document corpus,
	// read directly from the filesystem.
	KindExternal SourceKind = "external"
)

// Source is one note or external-file trust source.
type Source struct {
	Kind SourceKind `yaml:"kind"`
	Ref  string     `yaml:"ref"`
}

// DocumentStore is the vault collaborator used to resolve note sources.
type DocumentStore interface {
	ReadText(ref string) (string, error)
}

// Snapshot is an immutable materialized trust set. Once published it is
// never mutated; Refresh builds a new one and swaps the reference.
type Snapshot map[digest.Entry]struct{}

// Contains reports membership of a single entry.
func (s Snapshot) Contains(e digest.Entry) bool {
	_, ok := s[e]
	return ok
}

// Store holds the trust configuration and the current snapshot.
// Configuration mutators take effect on the next Refresh.
type Store struct {
	docs DocumentStore

	mu      sync.Mutex // guards manual and sources
	manual  map[digest.Entry]struct{}
	sources []Source

	snap atomic.Value // Snapshot
}

// New creates a Store with the given manual entries and sources.
// The snapshot starts empty; call Refresh to materialize it.
func New(docs DocumentStore, manual []digest.Entry, sources []Source) *Store {
	s := &Store{
		docs:    docs,
		manual:  make(map[digest.Entry]struct{}, len(manual)),
		sources: append([]Source(nil), sources...),
	}
	for _, e := range manual {
		s.manual[digest.Normalize(string(e))] = struct{}{}
	}
	s.snap.Store(Snapshot{})
	return s
}

// Refresh re-reads every configured source and atomically replaces the
// snapshot. A source that cannot be read contributes nothing: the
// failure is logged and the refresh continues with the other sources.
// Callers holding the previous snapshot are unaffected until the swap.
func (s *Store) Refresh(ctx context.Context) Snapshot {
	s.mu.Lock()
	manual := make([]digest.Entry, 0, len(s.manual))
	for e := range s.manual {
		manual = append(manual, e)
	}
	sources := append([]Source(nil), s.sources...)
	s.mu.Unlock()

	next := make(Snapshot, len(manual))
	for _, e := range manual {
		next[e] = struct{}{}
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			// Cancelled mid-refresh: keep the previous snapshot
			// rather than publishing a partial union.
			return s.Snapshot()
		}
		body, err := s.readSource(src)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"kind": src.Kind,
				"ref":  src.Ref,
			}).Warn("trust source unreadable, contributing no entries")
			continue
		}
		for _, e := range ParseEntries(body) {
			next[e] = struct{}{}
		}
	}

	s.snap.Store(next)
	return next
}

func (s *Store) readSource(src Source) (string, error) {
	switch src.Kind {
	case KindNote:
		if s.docs == nil {
			return "", errors.New("no document store configured")
		}
		return s.docs.ReadText(src.Ref)
	default:
		data, err := os.ReadFile(src.Ref)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// Snapshot returns the current materialized trust set.
func (s *Store) Snapshot() Snapshot {
	return s.snap.Load().(Snapshot)
}

// Contains reports whether the current snapshot holds the entry.
func (s *Store) Contains(e digest.Entry) bool {
	return s.Snapshot().Contains(e)
}

// AddManual adds a directly configured digest. Effective on next Refresh.
func (s *Store) AddManual(e digest.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manual[digest.Normalize(string(e))] = struct{}{}
}

// RemoveManual removes a directly configured digest. Effective on next Refresh.
func (s *Store) RemoveManual(e digest.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.manual, digest.Normalize(string(e)))
}

// AddSource appends a note or external-file source. Effective on next Refresh.
func (s *Store) AddSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, src)
}

// RemoveSource removes every source matching kind and ref. Effective on
// next Refresh.
func (s *Store) RemoveSource(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.sources[:0]
	for _, have := range s.sources {
		if have != src {
			kept = append(kept, have)
		}
	}
	s.sources = kept
}

// Sources returns a copy of the configured sources.
func (s *Store) Sources() []Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Source(nil), s.sources...)
}

// Manual returns a copy of the directly configured entries.
func (s *Store) Manual() []digest.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]digest.Entry, 0, len(s.manual))
	for e := range s.manual {
		out = append(out, e)
	}
	return out
}
