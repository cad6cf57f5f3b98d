package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the authd command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authd",
		Short: "authd - account and session service",
		Long: `authd serves registration, login with per-origin lockout, password
reset and change, account deletion, role management and activity logs
over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
