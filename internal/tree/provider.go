package tree

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/guillermoamaral/VSCside/internal/remote"
)

// Source is the part of the backend the tree reads from.
type Source interface {
	Packages(ctx context.Context) ([]remote.Package, error)
	PackageClasses(ctx context.Context, pkg string, q remote.ClassQuery) ([]remote.Class, error)
	Methods(ctx context.Context, class string, q remote.MethodQuery) ([]remote.Method, error)
}

const rootID NodeID = 0

// Provider builds tree children on demand and caches them per node.
//
// The cache lock is never held across a backend call. Two concurrent
// expansions of the same node both fetch, and the last one to finish wins.
// Refresh does not cancel fetches in flight, so a late response may
// repopulate a slot that was just cleared.
type Provider struct {
	logger *slog.Logger
	filter []string
	nextID atomic.Uint64

	search   *Node
	packages *Node

	mu        sync.Mutex
	src       Source
	cache     map[NodeID][]*Node
	listeners map[int]func(*Node)
	nextSub   int
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// WithPackageFilter hides packages whose name matches any of the glob
// patterns (e.g. "*-Tests").
func WithPackageFilter(patterns ...string) Option {
	return func(p *Provider) { p.filter = append(p.filter, patterns...) }
}

// New creates a provider reading from src.
func New(src Source, opts ...Option) *Provider {
	p := &Provider{
		logger:    slog.Default(),
		src:       src,
		cache:     make(map[NodeID][]*Node),
		listeners: make(map[int]func(*Node)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.search = p.newNode(KindSearch, "Search")
	p.packages = p.newNode(KindPackageGroup, "Packages")
	return p
}

func (p *Provider) newNode(kind Kind, label string) *Node {
	return &Node{ID: NodeID(p.nextID.Add(1)), Kind: kind, Label: label}
}

// Children returns the children of node, or the root entries when node is nil.
// Backend errors are returned unchanged and nothing is cached for them.
func (p *Provider) Children(ctx context.Context, node *Node) ([]*Node, error) {
	id := rootID
	if node != nil {
		id = node.ID
	}
	if children, ok := p.Cached(node); ok {
		return children, nil
	}

	p.mu.Lock()
	src := p.src
	p.mu.Unlock()

	children, err := p.fetch(ctx, src, node)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[id] = children
	p.mu.Unlock()
	return copyNodes(children), nil
}

// Cached returns the cached children of node without fetching.
func (p *Provider) Cached(node *Node) ([]*Node, bool) {
	id := rootID
	if node != nil {
		id = node.ID
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	children, ok := p.cache[id]
	if !ok {
		return nil, false
	}
	return copyNodes(children), true
}

func copyNodes(nodes []*Node) []*Node {
	return append(make([]*Node, 0, len(nodes)), nodes...)
}

func (p *Provider) fetch(ctx context.Context, src Source, node *Node) ([]*Node, error) {
	if node == nil {
		return []*Node{p.search, p.packages}, nil
	}

	switch node.Kind {
	case KindSearch, KindMethod:
		return []*Node{}, nil

	case KindPackageGroup:
		pkgs, err := src.Packages(ctx)
		if err != nil {
			return nil, err
		}
		pkgs = p.filterPackages(pkgs)
		sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
		children := make([]*Node, 0, len(pkgs))
		for i := range pkgs {
			n := p.newNode(KindPackage, pkgs[i].Name)
			n.Package = &pkgs[i]
			children = append(children, n)
		}
		p.logger.Debug("fetched packages", slog.Int("count", len(children)))
		return children, nil

	case KindPackage:
		classes, err := src.PackageClasses(ctx, node.Label, remote.ClassQuery{})
		if err != nil {
			return nil, err
		}
		sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
		children := make([]*Node, 0, len(classes))
		for i := range classes {
			n := p.newNode(KindClass, classes[i].Name)
			n.Class = &classes[i]
			children = append(children, n)
		}
		p.logger.Debug("fetched classes", slog.String("package", node.Label), slog.Int("count", len(children)))
		return children, nil

	case KindClass:
		methods, err := src.Methods(ctx, node.Label, remote.MethodQuery{})
		if err != nil {
			return nil, err
		}
		sort.Slice(methods, func(i, j int) bool { return methods[i].Selector < methods[j].Selector })
		children := make([]*Node, 0, len(methods))
		for i := range methods {
			if methods[i].Class == "" {
				methods[i].Class = node.Label
			}
			n := p.newNode(KindMethod, methods[i].Selector)
			n.Method = &methods[i]
			children = append(children, n)
		}
		p.logger.Debug("fetched methods", slog.String("class", node.Label), slog.Int("count", len(children)))
		return children, nil

	default:
		return nil, fmt.Errorf("tree: unhandled node kind %q", node.Kind)
	}
}

func (p *Provider) filterPackages(pkgs []remote.Package) []remote.Package {
	if len(p.filter) == 0 {
		return pkgs
	}
	kept := pkgs[:0]
	for _, pkg := range pkgs {
		if !p.hidden(pkg.Name) {
			kept = append(kept, pkg)
		}
	}
	return kept
}

func (p *Provider) hidden(name string) bool {
	for _, pattern := range p.filter {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Refresh drops every cached child list and notifies listeners.
func (p *Provider) Refresh() {
	p.mu.Lock()
	p.cache = make(map[NodeID][]*Node)
	listeners := make([]func(*Node), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
}

// SetBackend switches the source and refreshes.
func (p *Provider) SetBackend(src Source) {
	p.mu.Lock()
	p.src = src
	p.mu.Unlock()
	p.Refresh()
}

// OnDidChange registers fn to be called after each refresh with the changed
// node (nil for the whole tree). The returned func unsubscribes.
func (p *Provider) OnDidChange(fn func(*Node)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// PackageGroup returns the fixed Packages root node.
func (p *Provider) PackageGroup() *Node {
	return p.packages
}

// SearchNode returns the fixed Search root node.
func (p *Provider) SearchNode() *Node {
	return p.search
}
