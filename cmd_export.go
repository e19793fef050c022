package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	outputFile   string
	exportFormat string
	exportWidth  int
	exportHeight int
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&outputFile, "output", "", "output file (default: model name with the format extension)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "png", "output format: png or txt")
	exportCmd.Flags().IntVar(&exportWidth, "width", 120, "view width in cells")
	exportCmd.Flags().IntVar(&exportHeight, "height", 40, "view height in cells")
}

var exportCmd = &cobra.Command{
	Use:   "export [model-file]",
	Short: "Render a model file to PNG or text without opening the canvas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := commandConfig(cmd)
		if err != nil {
			return err
		}
		a, err := newApp(args[0], config, nil)
		if err != nil {
			return err
		}

		format := strings.ToLower(exportFormat)
		output := outputFile
		if output == "" {
			output = config.GetSavePath(strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + "." + format)
		}

		a.topo.SetSize(float64(exportWidth)*cellWidth, float64(exportHeight)*cellHeight)
		a.topo.Update()
		a.topo.Bus().Fire(EventPanToCenter)

		switch format {
		case "png":
			err = ExportToPNG(a.topo, output)
		case "txt":
			err = ExportVisualTXT(a.topo, output, exportWidth, exportHeight)
		default:
			return fmt.Errorf("unknown format %q", exportFormat)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
		return nil
	},
}
