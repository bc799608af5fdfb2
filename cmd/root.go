package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/samogod/musegen/pkg/checkpoint"
	"github.com/samogod/musegen/pkg/config"
	"github.com/samogod/musegen/pkg/database"
	"github.com/samogod/musegen/pkg/elastic"
	"github.com/samogod/musegen/pkg/midimix"
	"github.com/samogod/musegen/pkg/modelconfig"
	"github.com/samogod/musegen/pkg/orchestrator"
	"github.com/samogod/musegen/pkg/sampler"
	"github.com/samogod/musegen/pkg/session"
)

var (
	configFile    string
	modelConfig   string
	numOutputs    int
	temperature   float64
	length        int
	checkpointLoc string
	outputDir     string
	jsonFormat    bool
	silent        bool
	verbose       bool
	forceDownload bool
)

var Verbose bool

var rootCmd = &cobra.Command{
	Use:   "musegen",
	Short: "MusicVAE multi-track generation tool",
	Long:  `sample multi-track MIDI from registered MusicVAE configurations and mix them with your own tracks`,
	Run:   runGenerate,
}

func Execute() {
	hasSilentFlag := false
	for i, arg := range os.Args {
		if arg == "-silent" {
			os.Args[i] = "--silent"
			hasSilentFlag = true
		}
		if arg == "--silent" {
			hasSilentFlag = true
		}
	}

	if !hasSilentFlag {
		printBanner()
	}

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func DebugLog(format string, args ...interface{}) {
	if Verbose {
		fmt.Printf("[DBG] "+format+"\n", args...)
	}
}

func setDebugLogFunctions() {
	config.DebugLog = DebugLog
	orchestrator.DebugLog = DebugLog
	session.DebugLog = DebugLog
	database.DebugLog = DebugLog
	elastic.DebugLog = DebugLog
	checkpoint.DebugLog = DebugLog
	sampler.DebugLog = DebugLog
	modelconfig.DebugLog = DebugLog
	midimix.DebugLog = DebugLog
}

// enableVerbose is shared by every subcommand.
func enableVerbose() {
	Verbose = verbose
	if verbose {
		setDebugLogFunctions()
	}
}

func logLevel() logrus.Level {
	if Verbose {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

func newOrchestrator() (*orchestrator.Orchestrator, error) {
	orch, err := orchestrator.NewOrchestrator(configFile)
	if err != nil {
		return nil, err
	}
	orch.SetLogLevel(logLevel())
	return orch, nil
}

func init() {
	rootCmd.SetHelpTemplate(`Usage:
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasAvailableSubCommands}}Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}Flags:
MODEL:
   -m, -model string        registered configuration to sample (default: hierdec-trio_16bar)
   -checkpoint string       checkpoint path or URL (default: the configuration's published checkpoint)
   -force-download          download the checkpoint again even when cached

SAMPLING:
   -n, -num-outputs int     number of sequences to generate (default: 2)
   -t, -temperature float   sampling temperature (default: 0.6)
   -l, -length int          sequence length in steps (default: the configuration's max_seq_len)

OUTPUT:
   -o, -output string       directory to write MIDI files to (default: generated)
   -j, -json                print one JSON line per generated file
   -silent                  silent mode - no banner or extra output

CONFIGURATION:
   -c, -config string       config file path (default: config.yaml)

DEBUG:
   -v, -verbose             enable verbose/debug output
{{if .HasAvailableSubCommands}}
Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default: config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "silent mode - no banner or extra output")

	rootCmd.Flags().StringVarP(&modelConfig, "model", "m", "", "registered configuration to sample")
	rootCmd.Flags().IntVarP(&numOutputs, "num-outputs", "n", 0, "number of sequences to generate")
	rootCmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "sampling temperature")
	rootCmd.Flags().IntVarP(&length, "length", "l", 0, "sequence length in steps")
	rootCmd.Flags().StringVar(&checkpointLoc, "checkpoint", "", "checkpoint path or URL")
	rootCmd.Flags().BoolVar(&forceDownload, "force-download", false, "download the checkpoint again even when cached")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory to write MIDI files to")
	rootCmd.Flags().BoolVarP(&jsonFormat, "json", "j", false, "print one JSON line per generated file")

	rootCmd.AddCommand(versionCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	if numOutputs < 0 {
		color.Red("Error: -n must be positive")
		cmd.Help()
		os.Exit(1)
	}
	if temperature < 0 {
		color.Red("Error: -t must be positive")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := orch.RunGenerate(ctx, orchestrator.GenerateOptions{
		ConfigName:    modelConfig,
		NumOutputs:    numOutputs,
		Temperature:   temperature,
		Length:        length,
		Checkpoint:    checkpointLoc,
		OutputDir:     outputDir,
		JSONFormat:    jsonFormat,
		ForceDownload: forceDownload,
	})
	if err != nil {
		color.Red("Generation failed: %v", err)
		os.Exit(1)
	}

	if !silent && !jsonFormat {
		color.Green("\nGenerated %d sequences from %s in %v", len(result.Files), result.ConfigName, result.Duration)
		color.Cyan("Manifest written to %s", result.Manifest)
	}
}

func printBanner() {
	banner := color.CyanString(`
┌┬┐┬ ┬┌─┐┌─┐┌─┐┌─┐┌┐┌
││││ │└─┐├┤ │ ┬├┤ │││
┴ ┴└─┘└─┘└─┘└─┘└─┘┘└┘  @samogod
`)
	info := color.HiBlackString("multi-track MusicVAE sampling and MIDI mixing")
	fmt.Println(banner)
	fmt.Println(info)
	fmt.Println()
}
