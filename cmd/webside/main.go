// Package main provides the webside CLI, a terminal browser for Smalltalk
// images served over the Webside API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guillermoamaral/VSCside/internal/config"
	"github.com/guillermoamaral/VSCside/internal/credentials"
	"github.com/guillermoamaral/VSCside/internal/host"
	"github.com/guillermoamaral/VSCside/internal/journal"
	"github.com/guillermoamaral/VSCside/internal/navigator"
	"github.com/guillermoamaral/VSCside/internal/search"
	"github.com/guillermoamaral/VSCside/internal/session"
	"github.com/guillermoamaral/VSCside/internal/tree"
)

// Version is the current webside CLI version
var Version = "0.3.0"

var (
	configPath      string
	credentialsPath string
)

var rootCmd = &cobra.Command{
	Use:           "webside",
	Short:         "Webside - browse and edit Smalltalk images over HTTP",
	Long:          `Webside browses the packages, classes and methods of a running Smalltalk image through its Webside API, and saves edits back as changes.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Command groups for organized help output
const (
	groupConnect = "connect"
	groupBrowse  = "browse"
	groupCode    = "code"
)

// treeView prints each reveal step.
type treeView struct {
	w io.Writer
}

func (v treeView) Reveal(ctx context.Context, node *tree.Node, opts navigator.RevealOptions) error {
	var flags []string
	if opts.Expand {
		flags = append(flags, "expand")
	}
	if opts.Select {
		flags = append(flags, "select")
	}
	if opts.Focus {
		flags = append(flags, "focus")
	}
	fmt.Fprintf(v.w, "reveal %s %s [%s]\n", node.Kind, node.Label, strings.Join(flags, ","))
	return nil
}

// panel prints search replies.
type panel struct {
	w io.Writer
}

func (p panel) Post(r search.Reply) {
	switch r := r.(type) {
	case search.ResultsReply:
		if len(r.Results) == 0 {
			fmt.Fprintln(p.w, "No results")
		}
		for _, res := range r.Results {
			fmt.Fprintf(p.w, "%-9s %s\n", res.Type, res.Text)
		}
	case search.CandidatesReply:
		fmt.Fprintf(p.w, "Implementors of %s:\n", r.Selector)
		for _, c := range r.Candidates {
			fmt.Fprintf(p.w, "  %s\n", c.Label)
		}
	case search.WarningReply:
		fmt.Fprintf(p.w, "warning: %s\n", r.Text)
	case search.RevealedReply:
		fmt.Fprintf(p.w, "Revealed %s %s\n", r.Kind, r.Label)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openCredentials() (*credentials.FileStore, error) {
	path := credentialsPath
	if path == "" {
		path = credentials.DefaultPath()
	}
	return credentials.Open(path)
}

// openSession builds a session for cmd. The returned func releases it.
func openSession(cmd *cobra.Command) (*session.Session, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := openCredentials()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	var j *journal.Journal
	if cfg.JournalPath != "" {
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening journal: %w", err)
		}
		j.SetLogger(logger)
	}
	closeJournal := func() {
		if j != nil {
			j.Close()
		}
	}

	s, err := session.New(cmd.Context(), cfg, session.Deps{
		Credentials: store,
		Notifier:    host.NewWriterNotifier(cmd.ErrOrStderr()),
		View:        treeView{w: cmd.OutOrStdout()},
		Panel:       panel{w: cmd.OutOrStdout()},
		Journal:     j,
		Logger:      logger,
	})
	if err != nil {
		closeJournal()
		if errors.Is(err, credentials.ErrMissingCredentials) {
			return nil, nil, fmt.Errorf("%w: run 'webside configure <url> <developer>' first", err)
		}
		return nil, nil, err
	}
	return s, closeJournal, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.webside/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "", "Credentials file (default ~/.webside/credentials.yaml)")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupConnect, Title: "Connection:"},
		&cobra.Group{ID: groupBrowse, Title: "Browsing:"},
		&cobra.Group{ID: groupCode, Title: "Code:"},
	)

	configureCmd.GroupID = groupConnect
	resetCmd.GroupID = groupConnect
	negotiateCmd.GroupID = groupConnect
	treeCmd.GroupID = groupBrowse
	revealCmd.GroupID = groupBrowse
	searchCmd.GroupID = groupBrowse
	openCmd.GroupID = groupCode
	saveCmd.GroupID = groupCode
	changesCmd.GroupID = groupCode
	evalCmd.GroupID = groupCode

	rootCmd.AddCommand(configureCmd, resetCmd, negotiateCmd)
	rootCmd.AddCommand(treeCmd, revealCmd, searchCmd)
	rootCmd.AddCommand(openCmd, saveCmd, changesCmd, evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
