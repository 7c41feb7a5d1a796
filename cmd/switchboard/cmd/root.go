// Package cmd provides the CLI commands for Switchboard.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlov7/Switchboard/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: "Switchboard - policy-enforced action router for agent tool calls",
	Long: `Switchboard sits between autonomous agents and the tools they call.

Every action request is evaluated against policy (remote OPA when reachable,
a local ruleset otherwise), appended to a signed audit log, and then
executed, blocked, or held for a human decision on the approvals queue.

Quick start:
  1. Create a config file: switchboard.yaml
  2. Run: switchboard serve

Configuration:
  Config is loaded from switchboard.yaml in the current directory,
  $HOME/.switchboard/, or /etc/switchboard/.

  Environment variables can override config values with the SWITCHBOARD_ prefix.
  Example: SWITCHBOARD_SERVER_ADDR=:9000

Commands:
  serve       Start the API server
  init-db     Create the approval store schema
  seed        Push the Rego policy and config data to OPA
  evals       Run a task suite against a live API
  hash-key    Generate an argon2id hash for a reviewer key
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./switchboard.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
