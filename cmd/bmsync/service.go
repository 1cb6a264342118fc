package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utags/sync-core/internal/config"
)

var serviceCmd = &cobra.Command{
	Use:     "service",
	GroupID: "config",
	Short:   "Manage configured sync services",
}

var serviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured services",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, sc := range registry.List() {
			fmt.Printf("%-20s %-16s enabled=%-5t %s\n", sc.ID, sc.Type, sc.Enabled, sc.DisplayName)
		}
		return nil
	},
}

var serviceAddCmd = &cobra.Command{
	Use:   "add <id> <type>",
	Short: "Add a service (type: github, webdav, customApi, extensionBridge)",
	Long: `Add a service. Target and credential fields are supplied via
repeated --target key=value and --credential key=value flags, e.g.:

  bmsync service add gh1 github --target owner=acme --target repo=bookmarks --target path=bookmarks.json
  bmsync service add dav1 webdav --target url=https://dav.example/bm.json --credential username=u --credential password=p`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, typ := args[0], args[1]

		targetFlags, _ := cmd.Flags().GetStringArray("target")
		credFlags, _ := cmd.Flags().GetStringArray("credential")
		displayName, _ := cmd.Flags().GetString("name")
		enabled, _ := cmd.Flags().GetBool("enabled")

		sc := config.ServiceConfig{
			ID:          id,
			Type:        config.ServiceType(typ),
			DisplayName: displayName,
			Target:      parseKeyValues(targetFlags),
			Credentials: parseKeyValues(credFlags),
			Scope:       config.AllScope,
			Enabled:     enabled,
		}

		if err := registry.Add(sc); err != nil {
			return err
		}
		return saveRegistry()
	},
}

var serviceRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !registry.Has(args[0]) {
			return fmt.Errorf("unknown service %q", args[0])
		}
		registry.Remove(args[0])
		return saveRegistry()
	},
}

var serviceUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Set the active service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := registry.SetActive(args[0]); err != nil {
			return err
		}
		return saveRegistry()
	},
}

func init() {
	serviceAddCmd.Flags().StringArray("target", nil, "target.key=value, repeatable")
	serviceAddCmd.Flags().StringArray("credential", nil, "credentials.key=value, repeatable")
	serviceAddCmd.Flags().String("name", "", "display name")
	serviceAddCmd.Flags().Bool("enabled", true, "whether the service is enabled")

	serviceCmd.AddCommand(serviceListCmd, serviceAddCmd, serviceRemoveCmd, serviceUseCmd)
}

func parseKeyValues(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		for i := 0; i < len(p); i++ {
			if p[i] == '=' {
				out[p[:i]] = p[i+1:]
				break
			}
		}
	}
	return out
}
