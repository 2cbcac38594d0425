package docs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"lukechampine.com/blake3"

	"github.com/guillermoamaral/VSCside/internal/remote"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrUnsupported  = errors.New("operation not supported")
)

// Placeholder texts shown when the backend has no text for an element.
const (
	MissingDefinition = "Definition not found"
	MissingSource     = "Source not found"
)

// Backend is the part of the client documents read from and save to.
type Backend interface {
	Class(ctx context.Context, name string) (*remote.Class, error)
	Method(ctx context.Context, class, selector string, q remote.MethodQuery) (*remote.Method, error)
	DefineClass(ctx context.Context, pkg, class, definition string) error
	CompileMethod(ctx context.Context, class, selector, source, category string) error
}

// FileInfo describes a registered document.
type FileInfo struct {
	Size    int
	ModTime time.Time
}

type document struct {
	ref      Ref
	pkg      string
	category string
	content  []byte
	digest   [32]byte
	modTime  time.Time
}

// FileSystem holds the documents opened from the image. Only opened
// documents exist; writing one saves it to the backend.
type FileSystem struct {
	logger *slog.Logger

	mu      sync.Mutex
	backend Backend
	files   map[string]*document
}

// New creates an empty file system over backend.
func New(backend Backend) *FileSystem {
	return &FileSystem{
		logger:  slog.Default(),
		backend: backend,
		files:   make(map[string]*document),
	}
}

// SetLogger replaces the logger.
func (fs *FileSystem) SetLogger(l *slog.Logger) {
	fs.logger = l
}

// SetBackend replaces the backend. Opened documents stay registered.
func (fs *FileSystem) SetBackend(b Backend) {
	fs.mu.Lock()
	fs.backend = b
	fs.mu.Unlock()
}

func (fs *FileSystem) client() Backend {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.backend
}

// OpenClass fetches a class definition and registers it. It returns the
// document URI.
func (fs *FileSystem) OpenClass(ctx context.Context, name string) (string, error) {
	cls, err := fs.client().Class(ctx, name)
	if err != nil {
		return "", err
	}
	text := cls.Definition
	if text == "" {
		text = MissingDefinition
	}
	ref := Ref{Class: name}
	fs.register(&document{ref: ref, pkg: cls.Package, content: []byte(text)})
	return ref.URI(), nil
}

// OpenMethod fetches a method source and registers it. It returns the
// document URI.
func (fs *FileSystem) OpenMethod(ctx context.Context, class, selector string) (string, error) {
	m, err := fs.client().Method(ctx, class, selector, remote.MethodQuery{})
	if err != nil {
		return "", err
	}
	text := m.Source
	if text == "" {
		text = MissingSource
	}
	ref := Ref{Class: class, Selector: selector}
	fs.register(&document{ref: ref, pkg: m.Package, category: m.Category, content: []byte(text)})
	return ref.URI(), nil
}

func (fs *FileSystem) register(doc *document) {
	doc.digest = blake3.Sum256(doc.content)
	doc.modTime = time.Now()
	fs.mu.Lock()
	fs.files[doc.ref.URI()] = doc
	fs.mu.Unlock()
}

func (fs *FileSystem) lookup(uri string) (*document, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, ok := fs.files[uri]
	if !ok {
		return nil, ErrFileNotFound
	}
	return doc, nil
}

// Stat describes a registered document.
func (fs *FileSystem) Stat(uri string) (FileInfo, error) {
	doc, err := fs.lookup(uri)
	if err != nil {
		return FileInfo{}, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return FileInfo{Size: len(doc.content), ModTime: doc.modTime}, nil
}

// ReadFile returns the content of a registered document.
func (fs *FileSystem) ReadFile(uri string) ([]byte, error) {
	doc, err := fs.lookup(uri)
	if err != nil {
		return nil, err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return bytes.Clone(doc.content), nil
}

// WriteFile saves content to the backend: a class document redefines the
// class and a method document compiles the method. The stored content only
// changes once the backend accepted it. Writing unchanged content is a no-op.
func (fs *FileSystem) WriteFile(ctx context.Context, uri string, content []byte) error {
	doc, err := fs.lookup(uri)
	if err != nil {
		return err
	}

	digest := blake3.Sum256(content)
	fs.mu.Lock()
	unchanged := digest == doc.digest
	ref, pkg, category := doc.ref, doc.pkg, doc.category
	fs.mu.Unlock()
	if unchanged {
		fs.logger.Debug("document unchanged", slog.String("uri", uri))
		return nil
	}

	b := fs.client()
	if ref.IsMethod() {
		err = b.CompileMethod(ctx, ref.Class, ref.Selector, string(content), category)
	} else {
		err = b.DefineClass(ctx, pkg, ref.Class, string(content))
	}
	if err != nil {
		return err
	}

	fs.mu.Lock()
	doc.content = bytes.Clone(content)
	doc.digest = digest
	doc.modTime = time.Now()
	fs.mu.Unlock()
	fs.logger.Info("document saved", slog.String("uri", uri))
	return nil
}

// Diff renders a line diff between the registered content of uri and
// content. Lines are prefixed with "-", "+" or " ".
func (fs *FileSystem) Diff(uri string, content []byte) (string, error) {
	before, err := fs.ReadFile(uri)
	if err != nil {
		return "", err
	}
	return lineDiff(string(before), string(content)), nil
}

func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Delete is not supported.
func (fs *FileSystem) Delete(uri string) error {
	return errors.Join(ErrUnsupported, errors.New("delete"))
}

// Rename is not supported.
func (fs *FileSystem) Rename(oldURI, newURI string) error {
	return errors.Join(ErrUnsupported, errors.New("rename"))
}

// ReadDirectory is not supported.
func (fs *FileSystem) ReadDirectory(uri string) ([]string, error) {
	return nil, errors.Join(ErrUnsupported, errors.New("directory reading"))
}

// CreateDirectory is not supported.
func (fs *FileSystem) CreateDirectory(uri string) error {
	return errors.Join(ErrUnsupported, errors.New("directory creation"))
}

// Documents lists the URIs of the registered documents.
func (fs *FileSystem) Documents() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	uris := make([]string, 0, len(fs.files))
	for uri := range fs.files {
		uris = append(uris, uri)
	}
	return uris
}
