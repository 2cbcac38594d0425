package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/guillermoamaral/VSCside/internal/journal"
	"github.com/guillermoamaral/VSCside/internal/remote"
	"github.com/guillermoamaral/VSCside/internal/session"
)

var (
	openLinks     bool
	saveDiff      bool
	changesLocal  bool
	changesLimit  int
	changesExport string
	changesClear  bool
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Print the definition of a class or the source of a method",
}

var openClassCmd = &cobra.Command{
	Use:   "class <name>",
	Short: "Print a class definition",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpenClass,
}

var openMethodCmd = &cobra.Command{
	Use:   "method <class> <selector>",
	Short: "Print a method source",
	Args:  cobra.ExactArgs(2),
	RunE:  runOpenMethod,
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a file as a class definition or method source",
}

var saveClassCmd = &cobra.Command{
	Use:   "class <name> <file>",
	Short: "Redefine a class from a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runSaveClass,
}

var saveMethodCmd = &cobra.Command{
	Use:   "method <class> <selector> <file>",
	Short: "Compile a method from a file",
	Args:  cobra.ExactArgs(3),
	RunE:  runSaveMethod,
}

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "List the changes of the backend or of the local journal",
	Args:  cobra.NoArgs,
	RunE:  runChanges,
}

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func init() {
	openCmd.AddCommand(openClassCmd, openMethodCmd)
	openCmd.PersistentFlags().BoolVar(&openLinks, "links", false, "Also list the class names the text refers to")

	saveCmd.AddCommand(saveClassCmd, saveMethodCmd)
	saveCmd.PersistentFlags().BoolVar(&saveDiff, "diff", false, "Show the line diff instead of saving")

	changesCmd.Flags().BoolVar(&changesLocal, "local", false, "List the local journal instead of the backend change log")
	changesCmd.Flags().IntVarP(&changesLimit, "limit", "n", 20, "Number of journal entries to show")
	changesCmd.Flags().StringVar(&changesExport, "export", "", "Write the journal to a zstd-compressed JSON lines file")
	changesCmd.Flags().BoolVar(&changesClear, "clear", false, "Empty the local journal")
}

func runOpenClass(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	uri, err := s.Docs.OpenClass(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printDocument(cmd, s, uri)
}

func runOpenMethod(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	uri, err := s.Docs.OpenMethod(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return printDocument(cmd, s, uri)
}

func printDocument(cmd *cobra.Command, s *session.Session, uri string) error {
	content, err := s.Docs.ReadFile(uri)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n%s\n", uri, content)

	if !openLinks {
		return nil
	}
	links, err := s.Links.Links(cmd.Context(), string(content))
	if err != nil {
		return err
	}
	for _, l := range links {
		fmt.Fprintf(out, "link %d-%d %s -> %s\n", l.Start, l.End, l.Class, l.Target)
	}
	return nil
}

func runSaveClass(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	uri, err := s.Docs.OpenClass(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return saveDocument(cmd, s, uri, args[1])
}

func runSaveMethod(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	uri, err := s.Docs.OpenMethod(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return saveDocument(cmd, s, uri, args[2])
}

func saveDocument(cmd *cobra.Command, s *session.Session, uri, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if saveDiff {
		diff, err := s.Docs.Diff(uri, content)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), diff)
		return nil
	}

	if err := s.Docs.WriteFile(cmd.Context(), uri, content); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", uri)
	return nil
}

func runChanges(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	out := cmd.OutOrStdout()

	if changesLocal || changesExport != "" || changesClear {
		j := s.Journal
		if j == nil {
			return fmt.Errorf("no journal configured")
		}
		return runJournal(cmd, j)
	}

	client := s.Client()
	supported, err := client.NegotiateChanges(cmd.Context())
	if err != nil {
		return err
	}
	if !supported {
		return remote.ErrChangesUnsupported
	}
	changes, err := client.LastChanges(cmd.Context())
	if err != nil {
		return err
	}
	for _, ch := range changes {
		printChange(cmd, ch)
	}
	if len(changes) == 0 {
		fmt.Fprintln(out, "No changes")
	}
	return nil
}

func runJournal(cmd *cobra.Command, j *journal.Journal) error {
	out := cmd.OutOrStdout()
	switch {
	case changesClear:
		if err := j.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Journal cleared")
		return nil

	case changesExport != "":
		f, err := os.Create(changesExport)
		if err != nil {
			return err
		}
		n, err := j.Export(f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d changes to %s\n", n, changesExport)
		return nil
	}

	entries, err := j.List(changesLimit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s  ", e.RecordedAt.Format("2006-01-02 15:04:05"), e.Backend)
		printChange(cmd, e.Change)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No changes")
	}
	return nil
}

func printChange(cmd *cobra.Command, ch remote.Change) {
	target := ch.ClassName
	switch {
	case ch.Selector != "":
		target += ">>" + ch.Selector
	case target == "":
		target = ch.Package
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-22s %-30s %s\n", ch.Type, target, ch.Author)
}

func runEval(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	ctx := cmd.Context()
	client := s.Client()

	eval, err := client.Evaluate(ctx, remote.EvaluationRequest{Expression: args[0], Sync: true, Pin: true})
	if err != nil {
		return err
	}
	if eval.State == "failed" {
		d, err := client.CreateDebugger(ctx, eval.ID)
		if err != nil {
			return fmt.Errorf("evaluation failed")
		}
		defer client.DeleteDebugger(ctx, d.ID)
		return fmt.Errorf("evaluation failed: %s", d.Description)
	}

	obj, err := client.Object(ctx, eval.ID)
	if err != nil {
		return err
	}
	defer client.UnpinObject(ctx, eval.ID)
	fmt.Fprintln(cmd.OutOrStdout(), obj.PrintString)
	return nil
}
