package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drawfs/drawfs/internal/cli/prompt"
	"github.com/drawfs/drawfs/pkg/config"
)

var displayPresets = []struct {
	label      string
	width      uint32
	height     uint32
	refreshMHz uint32
}{
	{"1920x1080 @ 60Hz", 1920, 1080, 60000},
	{"2560x1440 @ 60Hz", 2560, 1440, 60000},
	{"3840x2160 @ 60Hz", 3840, 2160, 60000},
	{"1280x720 @ 60Hz", 1280, 720, 60000},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively generate a drawfsd config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.DefaultConfigExists() {
			return fmt.Errorf("config already exists at %s", config.GetDefaultConfigPath())
		}

		options := make([]prompt.SelectOption, len(displayPresets))
		for i, p := range displayPresets {
			options[i] = prompt.SelectOption{Label: p.label, Value: p.label}
		}

		chosen, err := prompt.Select("Default display (id 1)", options)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}

		cfg := config.DefaultConfig()
		for _, p := range displayPresets {
			if p.label == chosen {
				cfg.Displays[0] = config.DisplayConfig{
					ID:         1,
					Width:      p.width,
					Height:     p.height,
					RefreshMHz: p.refreshMHz,
				}
				break
			}
		}

		path := config.GetDefaultConfigPath()
		if err := config.SaveConfig(cfg, path); err != nil {
			return err
		}

		fmt.Printf("wrote config to %s\n", path)
		return nil
	},
}
