package logging

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// writerEntry pairs a writer added to a Logger with the writer log events are actually sent to.
type writerEntry struct {
	source io.Writer
	output io.Writer
}

// writerSet is the list of structured log writers shared by a Logger and every sub-logger derived from it, so a writer
// added to or removed from one of them applies to all.
type writerSet struct {
	lock    sync.RWMutex
	entries []writerEntry
}

// newWriterSet creates a writerSet holding the provided writers.
func newWriterSet(writers ...io.Writer) *writerSet {
	s := &writerSet{}
	for _, writer := range writers {
		s.add(writer, writer)
	}
	return s
}

// add stores output under source. Returns false if source was added before.
func (s *writerSet) add(source io.Writer, output io.Writer) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, entry := range s.entries {
		if entry.source == source {
			return false
		}
	}
	s.entries = append(s.entries, writerEntry{source: source, output: output})
	return true
}

// remove drops the writer added as source. Returns false if it was never added.
func (s *writerSet) remove(source io.Writer) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	for i, entry := range s.entries {
		if entry.source == source {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// len returns the amount of writers in the set.
func (s *writerSet) len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.entries)
}

// Write sends p to every writer in the set.
func (s *writerSet) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel sends p to every writer in the set, keeping on after a failing writer.
// Returns the first error encountered.
func (s *writerSet) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var firstErr error
	for _, entry := range s.entries {
		var err error
		if levelWriter, ok := entry.output.(zerolog.LevelWriter); ok {
			_, err = levelWriter.WriteLevel(level, p)
		} else {
			_, err = entry.output.Write(p)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}
