package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/utags/sync-core/internal/storage"
)

var (
	colorAccent = lipgloss.Color("12")
	colorWarn   = lipgloss.Color("3")
	colorPass   = lipgloss.Color("2")
	colorMuted  = lipgloss.Color("8")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	passStyle   = lipgloss.NewStyle().Foreground(colorPass)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarn)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show configured services and the local store's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := store.GetStoreMetadata(rootCtx)
		if err != nil {
			return fmt.Errorf("reading store metadata: %w", err)
		}
		printStoreMetadata(meta)

		services := registry.List()
		if len(services) == 0 {
			fmt.Println(mutedStyle.Render("No services configured. See 'bmsync service add'."))
			return nil
		}

		active, hasActive := registry.GetActive()

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(mutedStyle).
			Headers("ID", "TYPE", "ENABLED", "STATE", "ACTIVE")

		for _, sc := range services {
			state := orch.State(sc.ID)
			enabled := warnStyle.Render("no")
			if sc.Enabled {
				enabled = passStyle.Render("yes")
			}
			isActive := ""
			if hasActive && active.ID == sc.ID {
				isActive = passStyle.Render("*")
			}
			t.Row(sc.ID, string(sc.Type), enabled, string(state), isActive)
		}

		fmt.Println(headerStyle.Render("Services"))
		fmt.Println(t.Render())
		return nil
	},
}

func printStoreMetadata(meta storage.Metadata) {
	fmt.Println(headerStyle.Render("Local store"))
	fmt.Printf("  database version: %d\n", meta.DatabaseVersion)
	fmt.Printf("  created:          %d\n", meta.Created)
	fmt.Printf("  updated:          %d\n", meta.Updated)
}
