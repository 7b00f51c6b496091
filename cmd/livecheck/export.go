package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/livecheck/internal/plugin"
	"github.com/ayusman/livecheck/internal/store"
)

var exportViaPlugin bool

var exportCmd = &cobra.Command{
	Use:   "export <id> [file]",
	Short: "Write a session's best capture to a JPEG file or the export plugin",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && !exportViaPlugin {
			return errors.New("give an output file or --plugin")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		c, err := st.Captures().GetBySessionID(args[0])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("session %s has no capture", args[0])
			}
			return err
		}

		if len(args) == 2 {
			if err := os.WriteFile(args[1], c.Image, 0644); err != nil {
				return fmt.Errorf("write capture: %w", err)
			}
			fmt.Printf("Wrote %d bytes (score %.3f) to %s\n", len(c.Image), c.Score, args[1])
		}

		if exportViaPlugin {
			if cfg.ExportPlugin == "" {
				return errors.New("no export plugin configured (--export-plugin)")
			}
			plugins := plugin.NewManager(cfg.PluginDir)
			if err := plugins.Discover(); err != nil {
				return fmt.Errorf("discover plugins: %w", err)
			}
			exporter := plugin.NewExporter(plugins, plugin.NewExecutor(int(cfg.ExportTimeout.Milliseconds())),
				cfg.ExportPlugin, nil, logger)
			if _, err := exporter.Export(cmd.Context(), plugin.Export{
				SessionID:    c.SessionID,
				Score:        c.Score,
				CapturedAtMs: c.CapturedAtMs,
				Image:        c.Image,
			}); err != nil {
				return err
			}
			fmt.Printf("Exported session %s via %s\n", c.SessionID, cfg.ExportPlugin)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportViaPlugin, "plugin", false, "send the capture to the configured export plugin")
	rootCmd.AddCommand(exportCmd)
}
