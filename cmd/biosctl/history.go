package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-bios/internal/collector"
	"github.com/go-tangra/go-tangra-bios/internal/convert"
	"github.com/go-tangra/go-tangra-bios/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Store all current settings with the firmware identity in the history database",
	RunE:  runSnapshot,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots [id]",
	Short: "List stored snapshots, or print one snapshot's settings",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshots,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the log of setting changes",
	RunE:  runHistory,
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Purge snapshots and change records older than the specified number of days",
	RunE:  runPurge,
}

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Print the SMBIOS firmware identity of this machine",
	RunE:  runFirmware,
}

var (
	purgeDays      int
	historySetting string
	historyFailed  bool
	historyLimit   int
)

func init() {
	rootCmd.PersistentFlags().String("database", "", "SQLite database path (default biosctl.db)")

	purgeCmd.Flags().IntVar(&purgeDays, "days", 90, "purge records older than this many days")

	historyCmd.Flags().StringVar(&historySetting, "setting", "", "only changes to this setting")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only failed changes")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum number of entries")

	rootCmd.AddCommand(snapshotCmd, snapshotsCmd, historyCmd, purgeCmd, firmwareCmd)
}

// historyApp is newApp plus the --database override.
func historyApp(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("database"); v != "" {
		a.cfg.DatabasePath = v
	}
	return a, nil
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	a, err := historyApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}
	settings, err := svc.ParseAllSettings(ctx)
	if err != nil {
		return err
	}

	fw, err := collector.Collect()
	if err != nil {
		a.logger.Warn("firmware identity incomplete", "error", err)
	}

	rec, err := convert.SettingsToSnapshot(settings, fw)
	if err != nil {
		return err
	}
	id, _, err := db.InsertSnapshot(ctx, rec)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{"id": id, "setting_count": rec.SettingCount})
	}
	fmt.Printf("Stored snapshot %d (%d settings, BIOS %s)\n", id, rec.SettingCount, rec.BIOSVersion)
	return nil
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	a, err := historyApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot id %q", args[0])
		}
		rec, err := db.GetSnapshot(ctx, id)
		if err != nil {
			return fmt.Errorf("get snapshot %d: %w", id, err)
		}
		snap, err := convert.RecordToSnapshot(rec)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(snap)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tVALUE\tTYPE\tCATEGORY")
		for _, s := range snap.Settings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.ValueRaw, s.Type, s.Category)
		}
		return tw.Flush()
	}

	records, _, err := db.ListSnapshots(ctx, store.SnapshotFilter{})
	if err != nil {
		return err
	}
	out := make([]convert.Snapshot, 0, len(records))
	for i := range records {
		out = append(out, convert.RecordToSummary(&records[i]))
	}
	if jsonOutput {
		return printJSON(out)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTAKEN\tHOST\tBIOS\tSETTINGS")
	for _, s := range out {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", s.ID, s.TakenAt.Local().Format(time.DateTime), s.Hostname, s.BIOSVersion, s.SettingCount)
	}
	return tw.Flush()
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := historyApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	records, _, err := db.ListChanges(ctx, store.ChangeFilter{
		Setting:    historySetting,
		FailedOnly: historyFailed,
		PageSize:   historyLimit,
	})
	if err != nil {
		return err
	}
	out := make([]convert.Change, 0, len(records))
	for i := range records {
		out = append(out, convert.RecordToChange(&records[i]))
	}
	if jsonOutput {
		return printJSON(out)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSETTING\tOLD\tNEW\tRESULT")
	for _, c := range out {
		result := "ok"
		if !c.Success {
			result = "failed: " + c.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.RequestedAt.Local().Format(time.DateTime), c.Setting, c.OldRaw, c.NewRaw, result)
	}
	return tw.Flush()
}

func runPurge(cmd *cobra.Command, _ []string) error {
	a, err := historyApp(cmd)
	if err != nil {
		return err
	}

	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.Purge(cmd.Context(), time.Duration(purgeDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	fmt.Printf("Purged %d records older than %d days\n", n, purgeDays)
	return nil
}

func runFirmware(cmd *cobra.Command, _ []string) error {
	fw, err := collector.Collect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if jsonOutput {
		return printJSON(fw)
	}
	fmt.Printf("Host:     %s\n", fw.Hostname)
	fmt.Printf("BIOS:     %s %s (%s)\n", fw.BIOS.Vendor, fw.BIOS.Version, fw.BIOS.ReleaseDate)
	fmt.Printf("System:   %s %s\n", fw.System.Manufacturer, fw.System.Model)
	fmt.Printf("Board:    %s %s %s\n", fw.Board.Manufacturer, fw.Board.Product, fw.Board.Version)
	return nil
}
