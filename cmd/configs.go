package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samogod/musegen/pkg/hparams"
	"github.com/samogod/musegen/pkg/musicvae"
)

var configsCmd = &cobra.Command{
	Use:   "configs [name]",
	Short: "List registered model configurations",
	Long:  `List every registered model configuration, or show the fields of one of them`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runConfigs,
}

func init() {
	rootCmd.AddCommand(configsCmd)
}

func runConfigs(cmd *cobra.Command, args []string) {
	enableVerbose()

	orch, err := newOrchestrator()
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer orch.Close()

	registry := orch.Registry()

	if len(args) == 0 {
		settings := orch.GetConfig()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, color.CyanString("NAME\tMODEL\tCHECKPOINT"))
		for _, name := range registry.Names() {
			cfg, _ := registry.Lookup(name)
			ckpt, ok := settings.CheckpointFor(name)
			if !ok {
				ckpt = color.YellowString("none")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, describeModel(cfg.Model()), ckpt)
		}
		w.Flush()

		color.Green("\nTotal configurations: %d", registry.Len())
		return
	}

	cfg, err := registry.Lookup(args[0])
	if err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	for _, field := range cfg.Values() {
		fmt.Fprintf(w, "%s\t%s\n", color.CyanString(field.Name), formatValue(field.Value))
	}
	w.Flush()
}

func describeModel(d musicvae.Descriptor) string {
	if d == nil {
		return "-"
	}
	vae, ok := d.(musicvae.MusicVAE)
	if !ok || vae.Decoder == nil {
		return d.Kind()
	}
	return fmt.Sprintf("%s(%s)", d.Kind(), vae.Decoder.Kind())
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case hparams.HParams:
		data, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return fmt.Sprint(val)
		}
		return "\n" + string(data)
	case musicvae.Descriptor:
		data, err := musicvae.Encode(val)
		if err != nil {
			return val.Kind()
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
