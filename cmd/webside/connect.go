package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guillermoamaral/VSCside/internal/credentials"
)

var configureCmd = &cobra.Command{
	Use:   "configure <url> <developer>",
	Short: "Set the backend URL and developer name",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigure,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the stored backend settings",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Check whether the backend accepts changes through its change log",
	Args:  cobra.NoArgs,
	RunE:  runNegotiate,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	store, err := openCredentials()
	if err != nil {
		return err
	}
	url, developer := args[0], args[1]
	changed, err := credentials.Connect(store, url, developer)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(cmd.OutOrStdout(), "Settings unchanged")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s as %s\n", url, developer)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	store, err := openCredentials()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Settings cleared")
	return nil
}

func runNegotiate(cmd *cobra.Command, args []string) error {
	s, done, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer done()

	client := s.Client()
	supported, err := client.NegotiateChanges(cmd.Context())
	if err != nil {
		return err
	}
	if supported {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: changes supported\n", client.BaseURL)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: changes not supported, using direct endpoints\n", client.BaseURL)
	}
	return nil
}
