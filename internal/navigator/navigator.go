// Package navigator reveals packages, classes and methods in the tree view by
// walking label paths from the root.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/guillermoamaral/VSCside/internal/host"
	"github.com/guillermoamaral/VSCside/internal/remote"
	"github.com/guillermoamaral/VSCside/internal/tree"
)

// PackagesLabel is the label of the root group holding all packages.
const PackagesLabel = "Packages"

// ErrNotFound matches every *NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports the path segment that could not be resolved.
type NotFoundError struct {
	Segment string
	Path    []string
	// Class is set when the class exists but belongs to no package.
	Class string
}

func (e *NotFoundError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("Cannot find package of class '%s'", e.Class)
	}
	return fmt.Sprintf("Cannot find node '%s'", e.Segment)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RevealOptions control how a node is shown.
type RevealOptions struct {
	Expand bool
	Focus  bool
	Select bool
}

// View is the tree view that nodes are revealed in.
type View interface {
	Reveal(ctx context.Context, node *tree.Node, opts RevealOptions) error
}

// ChildSource lists tree children. *tree.Provider implements it.
type ChildSource interface {
	Children(ctx context.Context, node *tree.Node) ([]*tree.Node, error)
}

// ClassLookup resolves a class by name. *remote.Client implements it.
type ClassLookup interface {
	Class(ctx context.Context, name string) (*remote.Class, error)
}

// Navigator walks the tree to reveal nodes.
type Navigator struct {
	tree     ChildSource
	view     View
	notifier host.Notifier
	logger   *slog.Logger

	mu     sync.Mutex
	lookup ClassLookup
}

// New creates a navigator.
func New(t ChildSource, lookup ClassLookup, view View, notifier host.Notifier) *Navigator {
	return &Navigator{
		tree:     t,
		view:     view,
		notifier: notifier,
		logger:   slog.Default(),
		lookup:   lookup,
	}
}

// SetLogger replaces the logger.
func (n *Navigator) SetLogger(l *slog.Logger) {
	n.logger = l
}

// SetBackend replaces the class lookup.
func (n *Navigator) SetBackend(lookup ClassLookup) {
	n.mu.Lock()
	n.lookup = lookup
	n.mu.Unlock()
}

// RevealPath resolves labels one level at a time from the root and reveals
// each matched node in order. It stops at the first segment with no exactly
// matching child, warns and returns a *NotFoundError naming it. Intermediate
// nodes are expanded; the last one is also focused and selected.
func (n *Navigator) RevealPath(ctx context.Context, labels []string) (*tree.Node, error) {
	var current *tree.Node
	for i, label := range labels {
		children, err := n.tree.Children(ctx, current)
		if err != nil {
			return nil, err
		}

		var next *tree.Node
		for _, child := range children {
			if child.Label == label {
				next = child
				break
			}
		}
		if next == nil {
			return nil, n.notFound(&NotFoundError{Segment: label, Path: labels})
		}

		opts := RevealOptions{Expand: true}
		if i == len(labels)-1 {
			opts.Focus = true
			opts.Select = true
		}
		if err := n.view.Reveal(ctx, next, opts); err != nil {
			return nil, err
		}
		current = next
	}
	n.logger.Debug("revealed", slog.String("path", strings.Join(labels, "/")))
	return current, nil
}

func (n *Navigator) notFound(err *NotFoundError) error {
	if n.notifier != nil {
		n.notifier.Warn(err.Error())
	}
	return err
}

// RevealPackage reveals a package under the Packages group.
func (n *Navigator) RevealPackage(ctx context.Context, name string) (*tree.Node, error) {
	return n.RevealPath(ctx, []string{PackagesLabel, name})
}

// RevealClass reveals a class under its owning package.
func (n *Navigator) RevealClass(ctx context.Context, name string) (*tree.Node, error) {
	pkg, err := n.packageOf(ctx, name)
	if err != nil {
		return nil, err
	}
	return n.RevealPath(ctx, []string{PackagesLabel, pkg, name})
}

// RevealMethod reveals a method under its class and package.
func (n *Navigator) RevealMethod(ctx context.Context, class, selector string) (*tree.Node, error) {
	pkg, err := n.packageOf(ctx, class)
	if err != nil {
		return nil, err
	}
	return n.RevealPath(ctx, []string{PackagesLabel, pkg, class, selector})
}

// packageOf looks up the package owning class. A class unknown to the
// backend or outside any package is reported as not found.
func (n *Navigator) packageOf(ctx context.Context, class string) (string, error) {
	n.mu.Lock()
	lookup := n.lookup
	n.mu.Unlock()

	cls, err := lookup.Class(ctx, class)
	if err != nil {
		if remote.IsNotFound(err) {
			return "", n.notFound(&NotFoundError{Segment: class})
		}
		return "", err
	}
	if cls == nil || cls.Package == "" {
		return "", n.notFound(&NotFoundError{Segment: class, Class: class})
	}
	return cls.Package, nil
}
