package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/samogod/musegen/pkg/session"
	"github.com/samogod/musegen/pkg/update"
)

const (
	Version   = "1.0.0"
	BuildDate = "2026-10-19"
	Author    = "samogod"
)

var checkLatest bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display version, build date, and author information for musegen",
	Run: func(cmd *cobra.Command, args []string) {
		printVersionInfo()
		if checkLatest {
			runVersionCheck()
		}
	},
}

func init() {
	versionCmd.Flags().BoolVar(&checkLatest, "check", false, "check GitHub for a newer release")
}

func printVersionInfo() {
	color.Green("Current Version:    %s", Version)
	fmt.Printf("Build Date:         %s\n", BuildDate)
	fmt.Printf("Author:             %s\n", Author)
	fmt.Println()
}

func runVersionCheck() {
	enableVerbose()

	checker := update.NewChecker(session.New(update.CheckTimeout).Client)
	release, newer, err := checker.Check(context.Background(), "v"+Version)
	if err != nil {
		color.Red("Version check failed: %v", err)
		os.Exit(1)
	}

	if !newer {
		fmt.Printf("You are already running the latest version (v%s)\n", Version)
		return
	}
	color.Yellow("New version available: v%s -> %s", Version, release.TagName)
	if release.HTMLURL != "" {
		fmt.Println(release.HTMLURL)
	}
}
