// Package session wires the browser components to one backend connection.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guillermoamaral/VSCside/internal/config"
	"github.com/guillermoamaral/VSCside/internal/credentials"
	"github.com/guillermoamaral/VSCside/internal/docs"
	"github.com/guillermoamaral/VSCside/internal/host"
	"github.com/guillermoamaral/VSCside/internal/journal"
	"github.com/guillermoamaral/VSCside/internal/links"
	"github.com/guillermoamaral/VSCside/internal/navigator"
	"github.com/guillermoamaral/VSCside/internal/remote"
	"github.com/guillermoamaral/VSCside/internal/search"
	"github.com/guillermoamaral/VSCside/internal/tree"
)

// Deps are the host services a session uses.
type Deps struct {
	Credentials host.CredentialStore
	Notifier    host.Notifier
	View        navigator.View
	Panel       search.Panel
	Journal     *journal.Journal // optional
	Logger      *slog.Logger
}

// Session holds the components bound to the current backend.
type Session struct {
	Tree      *tree.Provider
	Navigator *navigator.Navigator
	Search    *search.Disambiguator
	Docs      *docs.FileSystem
	Links     *links.Provider
	Journal   *journal.Journal

	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	mu     sync.Mutex
	client *remote.Client
}

// New builds a session for the backend named by cfg or, when cfg names
// none, by the credential store. The change-log probe runs eagerly; its
// failure is shown but does not fail the session.
func New(ctx context.Context, cfg *config.Config, deps Deps) (*Session, error) {
	url, developer := cfg.BackendURL, cfg.Developer
	if url == "" || developer == "" {
		if deps.Credentials == nil {
			return nil, credentials.ErrMissingCredentials
		}
		var err error
		url, developer, err = credentials.Stored(deps.Credentials)
		if err != nil {
			return nil, err
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		Journal: deps.Journal,
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
	}
	client := s.newClient(url, developer)
	s.client = client

	var treeOpts []tree.Option
	treeOpts = append(treeOpts, tree.WithLogger(logger))
	if cfg.PackageFilter != "" {
		treeOpts = append(treeOpts, tree.WithPackageFilter(cfg.PackageFilter))
	}
	s.Tree = tree.New(client, treeOpts...)

	s.Navigator = navigator.New(s.Tree, client, deps.View, deps.Notifier)
	s.Navigator.SetLogger(logger)

	s.Search = search.New(client, s.Navigator, deps.Panel)
	s.Search.SetLogger(logger)

	s.Docs = docs.New(client)
	s.Docs.SetLogger(logger)

	s.Links = links.New(client, links.WithConcurrency(cfg.LinkConcurrency), links.WithLogger(logger))

	s.probe(ctx, client)
	return s, nil
}

func (s *Session) newClient(url, developer string) *remote.Client {
	opts := []remote.Option{
		remote.WithTimeout(s.cfg.Timeout),
		remote.WithLogger(s.logger),
		remote.WithErrorReporter(func(err error) {
			s.logger.Error("backend request failed", slog.Any("error", err))
		}),
	}
	if s.Journal != nil {
		opts = append(opts, remote.WithChangeReporter(s.Journal.Reporter(url)))
	}
	return remote.NewClient(url, developer, opts...)
}

func (s *Session) probe(ctx context.Context, client *remote.Client) {
	if _, err := client.NegotiateChanges(ctx); err != nil {
		if s.deps.Notifier != nil {
			s.deps.Notifier.Warn(fmt.Sprintf("Cannot reach %s: %v", client.BaseURL, err))
		}
	}
}

// Client returns the client of the current backend.
func (s *Session) Client() *remote.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Configure stores new connection settings and, when they differ from the
// stored ones, switches the session to them. It reports whether it switched.
func (s *Session) Configure(ctx context.Context, url, developer string) (bool, error) {
	if s.deps.Credentials == nil {
		return false, credentials.ErrMissingCredentials
	}
	changed, err := credentials.Connect(s.deps.Credentials, url, developer)
	if err != nil || !changed {
		return false, err
	}
	s.Reconfigure(ctx, url, developer)
	return true, nil
}

// Reconfigure binds every component to a new client for url. The previous
// client is left untouched, so requests already in flight finish against
// the old backend.
func (s *Session) Reconfigure(ctx context.Context, url, developer string) {
	client := s.newClient(url, developer)

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	s.Navigator.SetBackend(client)
	s.Search.SetBackend(client)
	s.Docs.SetBackend(client)
	s.Links.SetBackend(client)
	// Last: refreshing notifies listeners, which may read the new tree.
	s.Tree.SetBackend(client)

	s.logger.Info("session reconfigured", slog.String("backend", url), slog.String("developer", developer))
	s.probe(ctx, client)
}
