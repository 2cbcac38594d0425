package search

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guillermoamaral/VSCside/internal/host"
	"github.com/guillermoamaral/VSCside/internal/imagesim"
	"github.com/guillermoamaral/VSCside/internal/navigator"
	"github.com/guillermoamaral/VSCside/internal/remote"
	"github.com/guillermoamaral/VSCside/internal/tree"
)

type panelRecorder struct {
	replies []Reply
}

func (p *panelRecorder) Post(r Reply) {
	p.replies = append(p.replies, r)
}

func (p *panelRecorder) last() Reply {
	if len(p.replies) == 0 {
		return nil
	}
	return p.replies[len(p.replies)-1]
}

type revealCall struct {
	kind  string
	class string
	name  string
}

type fakeRevealer struct {
	calls []revealCall
	err   error
}

func (r *fakeRevealer) RevealPackage(ctx context.Context, name string) (*tree.Node, error) {
	r.calls = append(r.calls, revealCall{kind: "package", name: name})
	return &tree.Node{Kind: tree.KindPackage, Label: name}, r.err
}

func (r *fakeRevealer) RevealClass(ctx context.Context, name string) (*tree.Node, error) {
	r.calls = append(r.calls, revealCall{kind: "class", name: name})
	return &tree.Node{Kind: tree.KindClass, Label: name}, r.err
}

func (r *fakeRevealer) RevealMethod(ctx context.Context, class, selector string) (*tree.Node, error) {
	r.calls = append(r.calls, revealCall{kind: "method", class: class, name: selector})
	if r.err != nil {
		return nil, r.err
	}
	return &tree.Node{Kind: tree.KindMethod, Label: selector}, nil
}

type fakeBackend struct {
	results      []remote.SearchResult
	implementors []remote.Method
	err          error
	queries      []remote.SearchQuery
}

func (b *fakeBackend) Search(ctx context.Context, q remote.SearchQuery) ([]remote.SearchResult, error) {
	b.queries = append(b.queries, q)
	return b.results, b.err
}

func (b *fakeBackend) Implementors(ctx context.Context, selector string) ([]remote.Method, error) {
	return b.implementors, b.err
}

func twoImplementors() *fakeBackend {
	return &fakeBackend{
		results: []remote.SearchResult{{Type: remote.ResultSelector, Text: "add:"}},
		implementors: []remote.Method{
			{Class: "ClassB", Selector: "add:"},
			{Class: "ClassA", Selector: "add:"},
		},
	}
}

func TestDisambiguationLifecycle(t *testing.T) {
	backend := twoImplementors()
	nav := &fakeRevealer{}
	panel := &panelRecorder{}
	d := New(backend, nav, panel)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, SearchMsg{Query: "add:"}))
	assert.Equal(t, ResultsReply{Results: backend.results}, panel.last())

	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultSelector, Name: "add:"}))
	state, pending := d.State()
	assert.Equal(t, StateDisambiguation, state)
	assert.Equal(t, "add:", pending)

	reply, ok := panel.last().(CandidatesReply)
	require.True(t, ok)
	require.Len(t, reply.Candidates, 2)
	assert.Equal(t, "ClassA>>add:", reply.Candidates[0].Label)
	assert.Equal(t, "ClassB>>add:", reply.Candidates[1].Label)

	require.NoError(t, d.Dispatch(ctx, PickMethodMsg{ClassName: "ClassA", Selector: "add:"}))
	assert.Equal(t, []revealCall{{kind: "method", class: "ClassA", name: "add:"}}, nav.calls)
	state, pending = d.State()
	assert.Equal(t, StateNormal, state)
	assert.Empty(t, pending)
	assert.Equal(t, RevealedReply{Kind: tree.KindMethod, Label: "add:"}, panel.last())
}

func TestSearchResetsDisambiguation(t *testing.T) {
	backend := twoImplementors()
	nav := &fakeRevealer{}
	d := New(backend, nav, &panelRecorder{})
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultSelector, Name: "add:"}))
	state, _ := d.State()
	require.Equal(t, StateDisambiguation, state)

	require.NoError(t, d.Dispatch(ctx, SearchMsg{Query: "Bag"}))
	state, pending := d.State()
	assert.Equal(t, StateNormal, state)
	assert.Empty(t, pending)

	// The discarded selector can no longer be picked.
	err := d.Dispatch(ctx, PickMethodMsg{ClassName: "ClassA", Selector: "add:"})
	assert.ErrorIs(t, err, ErrUnexpected)
	assert.Empty(t, nav.calls)
}

func TestGotoPackageAndClass(t *testing.T) {
	nav := &fakeRevealer{}
	d := New(&fakeBackend{}, nav, &panelRecorder{})
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultPackage, Name: "Kernel"}))
	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultClass, Name: "Bag"}))

	assert.Equal(t, []revealCall{
		{kind: "package", name: "Kernel"},
		{kind: "class", name: "Bag"},
	}, nav.calls)
	state, _ := d.State()
	assert.Equal(t, StateNormal, state)
}

func TestSearchFailureIsWarning(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	panel := &panelRecorder{}
	d := New(backend, &fakeRevealer{}, panel)

	err := d.Dispatch(context.Background(), SearchMsg{Query: "x"})
	require.NoError(t, err, "search failures do not close the panel")
	assert.Equal(t, WarningReply{Text: "connection refused"}, panel.last())
}

func TestSearchDefaults(t *testing.T) {
	backend := &fakeBackend{}
	panel := &panelRecorder{}
	d := New(backend, &fakeRevealer{}, panel)

	require.NoError(t, d.Dispatch(context.Background(), SearchMsg{Query: "x", IgnoreCase: true}))
	require.Len(t, backend.queries, 1)
	assert.Equal(t, "beginning", backend.queries[0].Condition)
	assert.True(t, backend.queries[0].IgnoreCase)

	reply, ok := panel.last().(ResultsReply)
	require.True(t, ok)
	assert.NotNil(t, reply.Results)
}

func TestPickOtherSelectorRejected(t *testing.T) {
	nav := &fakeRevealer{}
	d := New(twoImplementors(), nav, &panelRecorder{})
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultSelector, Name: "add:"}))
	err := d.Dispatch(ctx, PickMethodMsg{ClassName: "ClassA", Selector: "remove:"})
	assert.ErrorIs(t, err, ErrUnexpected)

	state, pending := d.State()
	assert.Equal(t, StateDisambiguation, state)
	assert.Equal(t, "add:", pending)
	assert.Empty(t, nav.calls)
}

func TestRevealNotFoundBecomesWarning(t *testing.T) {
	nav := &fakeRevealer{err: &navigator.NotFoundError{Segment: "ClassA"}}
	panel := &panelRecorder{}
	d := New(twoImplementors(), nav, panel)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultSelector, Name: "add:"}))
	require.NoError(t, d.Dispatch(ctx, PickMethodMsg{ClassName: "ClassA", Selector: "add:"}))
	assert.Equal(t, WarningReply{Text: "Cannot find node 'ClassA'"}, panel.last())

	state, _ := d.State()
	assert.Equal(t, StateNormal, state)
}

type treeView struct{ revealed []string }

func (v *treeView) Reveal(ctx context.Context, node *tree.Node, opts navigator.RevealOptions) error {
	v.revealed = append(v.revealed, node.Label)
	return nil
}

func TestDisambiguationAgainstBackend(t *testing.T) {
	ts := httptest.NewServer(imagesim.NewServer(imagesim.Sample()).Handler())
	defer ts.Close()

	client := remote.NewClient(ts.URL, "dev")
	view := &treeView{}
	nav := navigator.New(tree.New(client), client, view, &host.Recorder{})
	panel := &panelRecorder{}
	d := New(client, nav, panel)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, SearchMsg{Query: "add"}))
	results := panel.last().(ResultsReply).Results
	require.Len(t, results, 2)

	require.NoError(t, d.Dispatch(ctx, GotoMsg{Type: remote.ResultSelector, Name: "add:"}))
	candidates := panel.last().(CandidatesReply).Candidates
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label
	}
	assert.Equal(t, []string{"Bag>>add:", "OrderedCollection>>add:", "Set>>add:"}, labels)

	require.NoError(t, d.Dispatch(ctx, PickMethodMsg{ClassName: "Set", Selector: "add:"}))
	assert.Equal(t, []string{"Packages", "Collections", "Set", "add:"}, view.revealed)
}
