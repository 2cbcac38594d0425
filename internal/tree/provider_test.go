package tree

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoamaral/VSCside/internal/imagesim"
	"github.com/guillermoamaral/VSCside/internal/remote"
)

// fakeSource serves fixed data and counts calls. If gate is set, Packages
// blocks until it is closed.
type fakeSource struct {
	packages []string
	classes  map[string][]string
	methods  map[string][]string
	err      error
	gate     chan struct{}

	packageCalls atomic.Int32
	classCalls   atomic.Int32
	methodCalls  atomic.Int32
}

func (f *fakeSource) Packages(ctx context.Context) ([]remote.Package, error) {
	f.packageCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return nil, f.err
	}
	var out []remote.Package
	for _, name := range f.packages {
		out = append(out, remote.Package{Name: name})
	}
	return out, nil
}

func (f *fakeSource) PackageClasses(ctx context.Context, pkg string, q remote.ClassQuery) ([]remote.Class, error) {
	f.classCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []remote.Class
	for _, name := range f.classes[pkg] {
		out = append(out, remote.Class{Name: name, Package: pkg})
	}
	return out, nil
}

func (f *fakeSource) Methods(ctx context.Context, class string, q remote.MethodQuery) ([]remote.Method, error) {
	f.methodCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var out []remote.Method
	for _, sel := range f.methods[class] {
		out = append(out, remote.Method{Selector: sel})
	}
	return out, nil
}

func labels(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func find(t *testing.T, nodes []*Node, label string) *Node {
	t.Helper()
	for _, n := range nodes {
		if n.Label == label {
			return n
		}
	}
	t.Fatalf("no node %q in %v", label, labels(nodes))
	return nil
}

func TestChildren_Root(t *testing.T) {
	p := New(&fakeSource{})
	roots, err := p.Children(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Search", "Packages"}, labels(roots))
	assert.Equal(t, KindSearch, roots[0].Kind)
	assert.Equal(t, KindPackageGroup, roots[1].Kind)

	again, err := p.Children(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, roots[1], again[1], "root nodes keep their identity")
}

func TestChildren_SortedCaseSensitive(t *testing.T) {
	src := &fakeSource{
		packages: []string{"kernel", "Zeta", "Alpha", "Beta"},
		classes:  map[string][]string{"Alpha": {"b", "C", "A"}},
		methods:  map[string][]string{"A": {"size", "add:", "Zork", "at:put:"}},
	}
	p := New(src)
	ctx := context.Background()

	pkgs, err := p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta", "Zeta", "kernel"}, labels(pkgs))

	classes, err := p.Children(ctx, find(t, pkgs, "Alpha"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "b"}, labels(classes))

	methods, err := p.Children(ctx, find(t, classes, "A"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zork", "add:", "at:put:", "size"}, labels(methods))
}

func TestChildren_CacheReuse(t *testing.T) {
	src := &fakeSource{
		packages: []string{"Kernel"},
		classes:  map[string][]string{"Kernel": {"Object"}},
	}
	p := New(src)
	ctx := context.Background()

	first, err := p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)
	second, err := p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)

	assert.Equal(t, int32(1), src.packageCalls.Load())
	assert.Same(t, first[0], second[0])

	cached, ok := p.Cached(p.PackageGroup())
	require.True(t, ok)
	assert.Equal(t, labels(first), labels(cached))
}

func TestRefresh_InvalidatesAndNotifies(t *testing.T) {
	src := &fakeSource{packages: []string{"Kernel"}}
	p := New(src)
	ctx := context.Background()

	var notified []*Node
	unsubscribe := p.OnDidChange(func(n *Node) { notified = append(notified, n) })

	_, err := p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)

	p.Refresh()
	require.Len(t, notified, 1)
	assert.Nil(t, notified[0])

	_, ok := p.Cached(p.PackageGroup())
	assert.False(t, ok)

	_, err = p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.packageCalls.Load())

	unsubscribe()
	p.Refresh()
	assert.Len(t, notified, 1)
}

func TestSetBackend(t *testing.T) {
	old := &fakeSource{packages: []string{"Old"}}
	p := New(old)
	ctx := context.Background()

	pkgs, err := p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)
	assert.Equal(t, []string{"Old"}, labels(pkgs))

	p.SetBackend(&fakeSource{packages: []string{"New"}})
	pkgs, err = p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)
	assert.Equal(t, []string{"New"}, labels(pkgs))
	assert.Equal(t, int32(1), old.packageCalls.Load())
}

func TestChildren_EmptyIsNotNil(t *testing.T) {
	p := New(&fakeSource{})
	pkgs, err := p.Children(context.Background(), p.PackageGroup())
	require.NoError(t, err)
	assert.NotNil(t, pkgs)
	assert.Empty(t, pkgs)

	leaf, err := p.Children(context.Background(), p.SearchNode())
	require.NoError(t, err)
	assert.NotNil(t, leaf)
	assert.Empty(t, leaf)
}

func TestChildren_ErrorNotCached(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{err: boom}
	p := New(src)

	_, err := p.Children(context.Background(), p.PackageGroup())
	assert.ErrorIs(t, err, boom)
	_, ok := p.Cached(p.PackageGroup())
	assert.False(t, ok)
}

func TestChildren_PackageFilter(t *testing.T) {
	src := &fakeSource{packages: []string{"Kernel", "Kernel-Tests", "Collections-Tests", "Collections"}}
	p := New(src, WithPackageFilter("*-Tests"))

	pkgs, err := p.Children(context.Background(), p.PackageGroup())
	require.NoError(t, err)
	assert.Equal(t, []string{"Collections", "Kernel"}, labels(pkgs))
}

func TestChildren_ConcurrentSameNodeNotDeduplicated(t *testing.T) {
	src := &fakeSource{packages: []string{"Kernel"}, gate: make(chan struct{})}
	p := New(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]*Node, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nodes, err := p.Children(ctx, p.PackageGroup())
			assert.NoError(t, err)
			results[i] = nodes
		}(i)
	}
	require.Eventually(t, func() bool { return src.packageCalls.Load() == 2 }, time.Second, time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(2), src.packageCalls.Load(), "both expansions fetch")
	cached, ok := p.Cached(p.PackageGroup())
	require.True(t, ok)
	require.Len(t, cached, 1)
	assert.Equal(t, "Kernel", cached[0].Label)
	// The cache holds whichever result was written last.
	assert.True(t, cached[0] == results[0][0] || cached[0] == results[1][0])
}

func TestChildren_LateResponseRepopulatesAfterRefresh(t *testing.T) {
	src := &fakeSource{packages: []string{"Stale"}, gate: make(chan struct{})}
	p := New(src)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Children(ctx, p.PackageGroup())
	}()
	require.Eventually(t, func() bool { return src.packageCalls.Load() == 1 }, time.Second, time.Millisecond)

	p.Refresh()
	close(src.gate)
	<-done

	cached, ok := p.Cached(p.PackageGroup())
	require.True(t, ok, "late response writes into the cleared slot")
	assert.Equal(t, []string{"Stale"}, labels(cached))
}

func TestTreeItem(t *testing.T) {
	src := &fakeSource{
		packages: []string{"Kernel"},
		classes:  map[string][]string{"Kernel": {"Object"}},
		methods:  map[string][]string{"Object": {"yourself"}},
	}
	p := New(src)
	ctx := context.Background()

	item := TreeItem(p.SearchNode())
	require.NotNil(t, item.Command)
	assert.Equal(t, CommandOpenSearch, item.Command.ID)

	pkgs, _ := p.Children(ctx, p.PackageGroup())
	item = TreeItem(pkgs[0])
	assert.Equal(t, "package", item.Icon)
	assert.Equal(t, CollapsibleCollapsed, item.Collapsible)
	assert.Nil(t, item.Command)

	classes, _ := p.Children(ctx, pkgs[0])
	item = TreeItem(classes[0])
	require.NotNil(t, item.Command)
	assert.Equal(t, CommandOpenClass, item.Command.ID)
	assert.Equal(t, "Object", item.Command.ClassName)

	methods, _ := p.Children(ctx, classes[0])
	item = TreeItem(methods[0])
	require.NotNil(t, item.Command)
	assert.Equal(t, CommandOpenMethod, item.Command.ID)
	assert.Equal(t, "Object", item.Command.ClassName)
	assert.Equal(t, "yourself", item.Command.Selector)
	assert.Equal(t, CollapsibleNone, item.Collapsible)
}

func TestChildren_AgainstBackend(t *testing.T) {
	ts := httptest.NewServer(imagesim.NewServer(imagesim.Sample()).Handler())
	defer ts.Close()

	p := New(remote.NewClient(ts.URL, "dev"))
	ctx := context.Background()

	pkgs, err := p.Children(ctx, p.PackageGroup())
	require.NoError(t, err)
	assert.Equal(t, []string{"Collections", "Graphics", "Kernel"}, labels(pkgs))

	classes, err := p.Children(ctx, find(t, pkgs, "Collections"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Bag", "Collection", "OrderedCollection", "Set"}, labels(classes))

	methods, err := p.Children(ctx, find(t, classes, "Bag"))
	require.NoError(t, err)
	assert.Equal(t, []string{"add:", "size"}, labels(methods))
}
