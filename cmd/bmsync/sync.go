package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/utags/sync-core/internal/orchestrator"
	"github.com/utags/sync-core/internal/watch"
)

var syncCmd = &cobra.Command{
	Use:     "sync [serviceId]",
	GroupID: "sync",
	Short:   "Run one sync round against a service",
	Long: `Run a single sync round against a configured service, or against the
active service when serviceId is omitted.

Prints each lifecycle event as it happens and exits non-zero if the round
ends in conflict or error.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID, err := resolveServiceID(args)
		if err != nil {
			return err
		}

		unsubscribe := orch.On(printEvent)
		defer unsubscribe()

		ok, err := orch.Synchronize(rootCtx, serviceID)
		if !ok {
			if err != nil {
				return fmt.Errorf("sync round did not succeed: %w", err)
			}
			return fmt.Errorf("sync round did not succeed")
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch [serviceId]",
	GroupID: "sync",
	Short:   "Watch the local store and sync on every change",
	Long: `Watch the local store file for changes and run a debounced sync
round against serviceId (or the active service) each time it changes.
Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID, err := resolveServiceID(args)
		if err != nil {
			return err
		}

		unsubscribe := orch.On(printEvent)
		defer unsubscribe()

		dbPath := filepath.Join(dataDir, "bookmarks.db")
		w, err := watch.New(dbPath, serviceID, orch, 500*time.Millisecond, func(serviceID string, err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] sync error: %v\n", serviceID, err)
		})
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		defer w.Close()

		w.Start(rootCtx)
		fmt.Fprintf(cmd.OutOrStdout(), "watching %s for service %q (ctrl-c to stop)\n", dbPath, serviceID)
		select {}
	},
}

func resolveServiceID(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	active, ok := registry.GetActive()
	if !ok {
		return "", fmt.Errorf("no serviceId given and no active service configured (see 'bmsync service use')")
	}
	return active.ID, nil
}

func printEvent(e orchestrator.Event) {
	switch e.Type {
	case orchestrator.EventStatusChange:
		fmt.Printf("[%s] %s\n", e.ServiceID, e.State)
	case orchestrator.EventBookmarksRemoved:
		fmt.Printf("[%s] removed %d tombstoned bookmark(s)\n", e.ServiceID, len(e.Removed))
	case orchestrator.EventSyncSuccess:
		fmt.Printf("[%s] success: %d merged, %d removed\n", e.ServiceID, e.Result.MergedCount, e.Result.RemovedCount)
	case orchestrator.EventSyncConflict:
		fmt.Printf("[%s] conflict: %s\n", e.ServiceID, e.Result.Conflict.Detail)
	case orchestrator.EventError:
		fmt.Printf("[%s] error: %v\n", e.ServiceID, e.Err)
	case orchestrator.EventInfo:
		fmt.Printf("[%s] %s\n", e.ServiceID, e.Message)
	}
}
