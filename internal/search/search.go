// Package search drives the search panel: it runs queries against the
// backend and turns the developer's picks into tree reveals, asking which
// class is meant when a selector has several implementors.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/guillermoamaral/VSCside/internal/navigator"
	"github.com/guillermoamaral/VSCside/internal/remote"
	"github.com/guillermoamaral/VSCside/internal/tree"
)

// State is the state of a panel.
type State int

const (
	// StateNormal accepts searches and result picks.
	StateNormal State = iota
	// StateDisambiguation waits for the pick of one implementor.
	StateDisambiguation
)

func (s State) String() string {
	if s == StateDisambiguation {
		return "disambiguation"
	}
	return "normal"
}

// Msg is a message sent by the panel. The set is closed.
type Msg interface {
	isMsg()
}

// SearchMsg runs a query. It always resets the panel to StateNormal.
type SearchMsg struct {
	Query      string
	IgnoreCase bool
	Condition  string // "beginning" when empty
}

// GotoMsg picks one search result.
type GotoMsg struct {
	Type remote.SearchResultType
	Name string
}

// PickMethodMsg picks one implementor while disambiguating.
type PickMethodMsg struct {
	ClassName string
	Selector  string
}

func (SearchMsg) isMsg()     {}
func (GotoMsg) isMsg()       {}
func (PickMethodMsg) isMsg() {}

// Reply is a message posted back to the panel. The set is closed.
type Reply interface {
	isReply()
}

// ResultsReply carries search results.
type ResultsReply struct {
	Results []remote.SearchResult
}

// Candidate is one implementor offered during disambiguation.
type Candidate struct {
	Label     string // "Class>>selector"
	ClassName string
	Selector  string
}

// CandidatesReply lists the implementors of a selector.
type CandidatesReply struct {
	Selector   string
	Candidates []Candidate
}

// WarningReply is a non-fatal problem shown in the panel.
type WarningReply struct {
	Text string
}

// RevealedReply reports the node that was revealed.
type RevealedReply struct {
	Kind  tree.Kind
	Label string
}

func (ResultsReply) isReply()    {}
func (CandidatesReply) isReply() {}
func (WarningReply) isReply()    {}
func (RevealedReply) isReply()   {}

// Panel receives replies.
type Panel interface {
	Post(Reply)
}

// Backend is the part of the client the panel uses.
type Backend interface {
	Search(ctx context.Context, q remote.SearchQuery) ([]remote.SearchResult, error)
	Implementors(ctx context.Context, selector string) ([]remote.Method, error)
}

// Revealer reveals nodes by name. *navigator.Navigator implements it.
type Revealer interface {
	RevealPackage(ctx context.Context, name string) (*tree.Node, error)
	RevealClass(ctx context.Context, name string) (*tree.Node, error)
	RevealMethod(ctx context.Context, class, selector string) (*tree.Node, error)
}

// ErrUnexpected is returned for a message the current state does not accept.
var ErrUnexpected = errors.New("unexpected message")

// panelState is the state value threaded through step.
type panelState struct {
	state   State
	pending string // selector being disambiguated
}

// Disambiguator is the state machine of one search panel. Dispatch calls are
// serialized.
type Disambiguator struct {
	nav    Revealer
	panel  Panel
	logger *slog.Logger

	mu      sync.Mutex
	backend Backend
	current panelState
}

// New creates a disambiguator in StateNormal.
func New(backend Backend, nav Revealer, panel Panel) *Disambiguator {
	return &Disambiguator{
		backend: backend,
		nav:     nav,
		panel:   panel,
		logger:  slog.Default(),
	}
}

// SetLogger replaces the logger.
func (d *Disambiguator) SetLogger(l *slog.Logger) {
	d.logger = l
}

// SetBackend replaces the backend and resets the panel.
func (d *Disambiguator) SetBackend(b Backend) {
	d.mu.Lock()
	d.backend = b
	d.current = panelState{}
	d.mu.Unlock()
}

// State returns the current state and the pending selector.
func (d *Disambiguator) State() (State, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current.state, d.current.pending
}

// Dispatch handles one panel message.
func (d *Disambiguator) Dispatch(ctx context.Context, msg Msg) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	next, err := d.step(ctx, d.current, msg)
	if next.state != d.current.state {
		d.logger.Debug("search panel state",
			slog.String("from", d.current.state.String()),
			slog.String("to", next.state.String()),
			slog.String("selector", next.pending),
		)
	}
	d.current = next
	return err
}

func (d *Disambiguator) step(ctx context.Context, st panelState, msg Msg) (panelState, error) {
	switch m := msg.(type) {
	case SearchMsg:
		return d.search(ctx, m)

	case GotoMsg:
		// A result pick while disambiguating abandons the pending selector.
		return d.gotoResult(ctx, m)

	case PickMethodMsg:
		if st.state != StateDisambiguation {
			d.panel.Post(WarningReply{Text: "No selector is being disambiguated"})
			return st, fmt.Errorf("%w: pick in %s state", ErrUnexpected, st.state)
		}
		if m.Selector != st.pending {
			d.panel.Post(WarningReply{Text: fmt.Sprintf("Expected an implementor of %s", st.pending)})
			return st, fmt.Errorf("%w: pick of %s while disambiguating %s", ErrUnexpected, m.Selector, st.pending)
		}
		return panelState{}, d.reveal(d.nav.RevealMethod(ctx, m.ClassName, m.Selector))

	default:
		return st, fmt.Errorf("%w: %T", ErrUnexpected, msg)
	}
}

func (d *Disambiguator) search(ctx context.Context, m SearchMsg) (panelState, error) {
	cond := m.Condition
	if cond == "" {
		cond = "beginning"
	}
	results, err := d.backend.Search(ctx, remote.SearchQuery{
		Text:       m.Query,
		IgnoreCase: m.IgnoreCase,
		Condition:  cond,
	})
	if err != nil {
		d.logger.Warn("search failed", slog.String("query", m.Query), slog.Any("error", err))
		d.panel.Post(WarningReply{Text: err.Error()})
		return panelState{}, nil
	}
	if results == nil {
		results = []remote.SearchResult{}
	}
	d.panel.Post(ResultsReply{Results: results})
	return panelState{}, nil
}

func (d *Disambiguator) gotoResult(ctx context.Context, m GotoMsg) (panelState, error) {
	switch m.Type {
	case remote.ResultPackage:
		return panelState{}, d.reveal(d.nav.RevealPackage(ctx, m.Name))
	case remote.ResultClass:
		return panelState{}, d.reveal(d.nav.RevealClass(ctx, m.Name))
	case remote.ResultSelector:
		methods, err := d.backend.Implementors(ctx, m.Name)
		if err != nil {
			d.panel.Post(WarningReply{Text: err.Error()})
			return panelState{}, nil
		}
		candidates := make([]Candidate, 0, len(methods))
		for _, method := range methods {
			candidates = append(candidates, Candidate{
				Label:     method.Class + ">>" + m.Name,
				ClassName: method.Class,
				Selector:  m.Name,
			})
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Label < candidates[j].Label })
		d.panel.Post(CandidatesReply{Selector: m.Name, Candidates: candidates})
		return panelState{state: StateDisambiguation, pending: m.Name}, nil
	default:
		d.panel.Post(WarningReply{Text: fmt.Sprintf("Cannot go to %s results", m.Type)})
		return panelState{}, nil
	}
}

// reveal posts the outcome of a reveal. Not-found was already shown by the
// navigator and is not returned; other failures are.
func (d *Disambiguator) reveal(node *tree.Node, err error) error {
	if err != nil {
		if errors.Is(err, navigator.ErrNotFound) {
			d.panel.Post(WarningReply{Text: err.Error()})
			return nil
		}
		return err
	}
	d.panel.Post(RevealedReply{Kind: node.Kind, Label: node.Label})
	return nil
}
