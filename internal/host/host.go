// Package host defines the services the editor host provides to the browser
// components, with terminal implementations.
package host

import (
	"fmt"
	"io"
	"sync"
)

// Notifier shows messages to the developer.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// CredentialStore is a small persistent key/value store.
type CredentialStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Clear() error
}

// WriterNotifier prints notifications as prefixed lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a Notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) print(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s: %s\n", level, msg)
}

func (n *WriterNotifier) Info(msg string)  { n.print("info", msg) }
func (n *WriterNotifier) Warn(msg string)  { n.print("warning", msg) }
func (n *WriterNotifier) Error(msg string) { n.print("error", msg) }

// Message is one notification captured by a Recorder.
type Message struct {
	Level string
	Text  string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	r.messages = append(r.messages, Message{Level: level, Text: msg})
	r.mu.Unlock()
}

func (r *Recorder) Info(msg string)  { r.add("info", msg) }
func (r *Recorder) Warn(msg string)  { r.add("warning", msg) }
func (r *Recorder) Error(msg string) { r.add("error", msg) }

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Warnings returns the text of recorded warnings.
func (r *Recorder) Warnings() []string {
	var out []string
	for _, m := range r.Messages() {
		if m.Level == "warning" {
			out = append(out, m.Text)
		}
	}
	return out
}

// MemoryStore is a CredentialStore that lives in memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return nil
}
