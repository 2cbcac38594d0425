// Package links finds class names in source text and turns them into links
// to the class documents.
package links

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/guillermoamaral/VSCside/internal/docs"
	"github.com/guillermoamaral/VSCside/internal/remote"
)

// DefaultConcurrency bounds the class lookups in flight.
const DefaultConcurrency = 8

var identRe = regexp.MustCompile(`\b[A-Z][A-Za-z0-9_]*\b`)

// Link is a range of text naming a class.
type Link struct {
	Start  int // byte offset
	End    int
	Class  string
	Target string
}

// ClassLookup resolves a class by name.
type ClassLookup interface {
	Class(ctx context.Context, name string) (*remote.Class, error)
}

// Provider computes document links.
type Provider struct {
	concurrency int
	logger      *slog.Logger

	mu     sync.Mutex
	lookup ClassLookup
}

// Option configures a Provider.
type Option func(*Provider)

// WithConcurrency sets the lookup limit. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a provider resolving names through lookup.
func New(lookup ClassLookup, opts ...Option) *Provider {
	p := &Provider{
		lookup:      lookup,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetBackend replaces the class lookup.
func (p *Provider) SetBackend(lookup ClassLookup) {
	p.mu.Lock()
	p.lookup = lookup
	p.mu.Unlock()
}

// Links returns a link for every occurrence of an existing class name in
// text, ordered by offset. Names that fail to resolve get no link.
func (p *Provider) Links(ctx context.Context, text string) ([]Link, error) {
	matches := identRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	var names []string
	seen := make(map[string]bool)
	for _, m := range matches {
		name := text[m[0]:m[1]]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	p.mu.Lock()
	lookup := p.lookup
	p.mu.Unlock()

	found := make([]bool, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, name := range names {
		g.Go(func() error {
			if _, err := lookup.Class(gctx, name); err != nil {
				if !remote.IsNotFound(err) {
					p.logger.Warn("class lookup failed", slog.String("class", name), slog.Any("error", err))
				}
				return nil
			}
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classes := make(map[string]bool)
	for i, name := range names {
		if found[i] {
			classes[name] = true
		}
	}

	var out []Link
	for _, m := range matches {
		name := text[m[0]:m[1]]
		if classes[name] {
			out = append(out, Link{Start: m[0], End: m[1], Class: name, Target: docs.ClassURI(name)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
