package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	commitHash = "unknown"
	buildDate  = "unknown"
)

var (
	cfgFile    string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "biosctl",
	Short: "biosctl - read and change AMI BIOS settings through SCEWIN",
	Long: `biosctl drives the AMI SCE utility (SCEWIN_64.exe) to export, inspect,
change and restore firmware setup settings of the local machine.

Every command exports a fresh settings dump; nothing is cached. Changes are
applied by re-importing the whole edited script and take effect after a
reboot. Run elevated.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("biosctl %s (commit: %s, built: %s)\n", version, commitHash, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/biosctl.yaml)")
	rootCmd.PersistentFlags().String("tool", "", "path to SCEWIN_64.exe (default SCEWIN_64.exe on PATH)")
	rootCmd.PersistentFlags().String("work-dir", "", "directory for dump, script and backup files (default: temp dir)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
