package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/wayfarer"
	"github.com/aretw0/wayfarer/pkg/ports"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persisted sessions",
	Long:  `List, inspect, and remove sessions kept by the configured storage backend.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List persisted sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SnapshotStore) error {
			ids, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No sessions found.")
				return nil
			}
			fmt.Fprintln(out, "Sessions:")
			for _, id := range ids {
				snap, err := store.Load(cmd.Context(), id)
				if err != nil {
					fmt.Fprintf(out, "- %s (unreadable: %v)\n", id, err)
					continue
				}
				fmt.Fprintf(out, "- %s  %-13s  %d messages  updated %s\n",
					id, snap.Status, len(snap.Messages), snap.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print a session snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SnapshotStore) error {
			snap, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("loading session %q: %w", args[0], err)
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SnapshotStore) error {
			var errs []error
			for _, id := range args {
				if err := store.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("removing %q: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

func withStore(cmd *cobra.Command, fn func(ports.SnapshotStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := wayfarer.OpenStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}
