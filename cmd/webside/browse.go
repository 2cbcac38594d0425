package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/guillermoamaral/VSCside/internal/remote"
	"github.com/guillermoamaral/VSCside/internal/search"
	"github.com/guillermoamaral/VSCside/internal/tree"
)

var (
	searchIgnoreCase bool
	searchCondition  string
	searchGoto       string
	searchGotoType   string
	searchPick       string
)

var treeCmd = &cobra.Command{
	Use:   "tree [label...]",
	Short: "List the children of a tree node",
	Long: `List the children of the node reached by following labels from the root.

Examples:
  webside tree                                # Search, Packages
  webside tree Packages Collections           # classes of Collections
  webside tree Packages Collections Bag       # methods of Bag`,
	RunE: runTree,
}

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Reveal a package, class or method in the tree",
}

var revealPackageCmd = &cobra.Command{
	Use:   "package <name>",
	Short: "Reveal a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevealPackage,
}

var revealClassCmd = &cobra.Command{
	Use:   "class <name>",
	Short: "Reveal a class under its package",
	Args:  cobra.ExactArgs(1),
	RunE:  runRevealClass,
}

var revealMethodCmd = &cobra.Command{
	Use:   "method <class> <selector>",
	Short: "Reveal a method under its class",
	Args:  cobra.ExactArgs(2),
	RunE:  runRevealMethod,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search packages, classes and selectors",
	Long: `Search the image. With --goto, one result is then revealed; a selector
lists its implementors, and --pick chooses the class to reveal.

Examples:
  webside search Coll
  webside search add --goto add: --pick Set
  webside search Bag --goto Bag --type class`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	revealCmd.AddCommand(revealPackageCmd, revealClassCmd, revealMethodCmd)

	searchCmd.Flags().BoolVarP(&searchIgnoreCase, "ignore-case", "i", false, "Case-insensitive match")
	searchCmd.Flags().StringVar(&searchCondition, "condition", "beginning", "Match condition: beginning, including or exact")
	searchCmd.Flags().StringVar(&searchGoto, "goto", "", "Result to go to after searching")
	searchCmd.Flags().StringVar(&searchGotoType, "type", "selector", "Type of the --goto result: package, class or selector")
	searchCmd.Flags().StringVar(&searchPick, "pick", "", "Implementor class to reveal when --goto names a selector")
}

func runTree(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	ctx := cmd.Context()

	var node *tree.Node
	children, err := s.Tree.Children(ctx, node)
	if err != nil {
		return err
	}
	for _, label := range args {
		node = nil
		for _, child := range children {
			if child.Label == label {
				node = child
				break
			}
		}
		if node == nil {
			return fmt.Errorf("no node %q", label)
		}
		children, err = s.Tree.Children(ctx, node)
		if err != nil {
			return err
		}
	}

	printItems(cmd.OutOrStdout(), children)
	return nil
}

func printItems(w io.Writer, nodes []*tree.Node) {
	for _, n := range nodes {
		item := tree.TreeItem(n)
		marker := " "
		if item.Collapsible == tree.CollapsibleCollapsed {
			marker = "+"
		}
		fmt.Fprintf(w, "%s %-8s %s\n", marker, n.Kind, item.Label)
	}
}

func runRevealPackage(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	_, err = s.Navigator.RevealPackage(cmd.Context(), args[0])
	return err
}

func runRevealClass(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	_, err = s.Navigator.RevealClass(cmd.Context(), args[0])
	return err
}

func runRevealMethod(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	_, err = s.Navigator.RevealMethod(cmd.Context(), args[0], args[1])
	return err
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchPick != "" && (searchGoto == "" || searchGotoType != string(remote.ResultSelector)) {
		return fmt.Errorf("--pick needs --goto with a selector")
	}

	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()
	ctx := cmd.Context()

	if err := s.Search.Dispatch(ctx, search.SearchMsg{
		Query:      args[0],
		IgnoreCase: searchIgnoreCase,
		Condition:  searchCondition,
	}); err != nil {
		return err
	}
	if searchGoto == "" {
		return nil
	}

	if err := s.Search.Dispatch(ctx, search.GotoMsg{
		Type: remote.SearchResultType(searchGotoType),
		Name: searchGoto,
	}); err != nil {
		return err
	}
	if searchPick == "" {
		return nil
	}
	return s.Search.Dispatch(ctx, search.PickMethodMsg{ClassName: searchPick, Selector: searchGoto})
}
