package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-bios/internal/bios"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export the current settings to the backup file",
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Import the backup file, undoing changes made since the backup",
	RunE:  runRestore,
}

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show a unified diff from the backup to the current settings",
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(backupCmd, restoreCmd, diffCmd)
}

func runBackup(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	if err := svc.Backup(ctx); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]any{"backup_available": true, "file": svc.Paths().Backup})
	}
	fmt.Printf("Backed up BIOS settings to %s\n", svc.Paths().Backup)
	return nil
}

func runRestore(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	if !svc.BackupAvailable() {
		return fmt.Errorf("%w at %s; run 'biosctl backup' first", bios.ErrNoBackup, svc.Paths().Backup)
	}
	if !svc.RestoreDefaults(ctx) {
		return errors.New("restore failed; the firmware state is unknown, check the log and re-read settings")
	}
	if jsonOutput {
		return printJSON(map[string]any{"restored": true})
	}
	fmt.Println("BIOS settings restored from backup; reboot to apply")
	return nil
}

func runDiff(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	d, err := svc.DiffAgainstBackup(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]any{"changed": d != "", "diff": d})
	}
	if d == "" {
		fmt.Println("No changes since backup")
		return nil
	}
	fmt.Print(d)
	return nil
}
