package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/taskclient/internal/model"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the config file",
	}
	cmd.AddCommand(newConfigShowCmd(rt), newConfigInitCmd(rt))
	return cmd
}

func newConfigShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := rt.cfg
			cmd.Printf("config file:     %s\n", rt.cfgPath)
			cmd.Printf("api.base_url:    %s\n", c.API.BaseURL)
			cmd.Printf("api.timeout_sec: %d\n", c.API.TimeoutSec)
			cmd.Printf("cache.enabled:   %t\n", c.Cache.Enabled)
			cmd.Printf("cache.path:      %s\n", c.Cache.Path)
			cmd.Printf("display:         %s, status %s, sort %s\n",
				c.Display.Language, c.Display.DefaultStatus, c.Display.DefaultSort)
			cmd.Printf("log:             %s at %s\n", c.Log.File, c.Log.Level)
			return nil
		},
	}
}

func newConfigInitCmd(rt *runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the config file",
		Long:  "init writes defaults merged with environment overrides, so TASKCLIENT_API_BASE_URL=... taskclient config init records a server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				_, err := os.Stat(rt.cfgPath)
				if err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", rt.cfgPath)
				}
				if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("checking %s: %w", rt.cfgPath, err)
				}
			}
			if err := model.SaveConfig(rt.cfgPath, rt.cfg); err != nil {
				return err
			}
			cmd.Println("Wrote " + rt.cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
