package cmd

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samogod/musegen/pkg/midimix"
	"github.com/samogod/musegen/pkg/orchestrator"
)

var (
	mixOutput   string
	mixPrograms string
)

var mixCmd = &cobra.Command{
	Use:   "mix <generated.mid> <input.mid>",
	Short: "Add instrument tracks of an input MIDI file to a generated one",
	Long: `Copy every track of the input file whose program falls in the selected
ranges onto the generated file. The default ranges keep guitars (25-31) and
strings (40-48).`,
	Example: `  musegen mix generated/generated_sequence_0.mid song.mid -o mixed.mid
  musegen mix generated/generated_sequence_0.mid song.mid -o mixed.mid --programs 32-39`,
	Args: cobra.ExactArgs(2),
	Run:  runMix,
}

func init() {
	mixCmd.Flags().StringVarP(&mixOutput, "output", "o", "", "file to write the mixed MIDI to")
	mixCmd.Flags().StringVar(&mixPrograms, "programs", "", "comma-separated program ranges to carry over (default: 25-31,40-48)")
	rootCmd.AddCommand(mixCmd)
}

func runMix(cmd *cobra.Command, args []string) {
	if mixOutput == "" {
		color.Red("Error: -o (output) is required")
		cmd.Help()
		os.Exit(1)
	}

	enableVerbose()

	orch, err := newOrchestrator()
	if err != nil {
		color.Red("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}
	defer orch.Close()

	result, err := orch.RunMix(orchestrator.MixOptions{
		Generated: args[0],
		Input:     args[1],
		Output:    mixOutput,
		Programs:  mixPrograms,
	})
	if err != nil {
		color.Red("Mix failed: %v", err)
		os.Exit(1)
	}

	if !silent {
		color.Green("Added %d tracks (programs %s) to %s", result.TracksAdded, joinRanges(result.Ranges), result.Output)
	}
}

func joinRanges(ranges []midimix.ProgramRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
