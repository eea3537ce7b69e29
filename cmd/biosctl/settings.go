package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-bios/internal/classify"
	"github.com/go-tangra/go-tangra-bios/internal/scedump"
)

var getCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print the numeric value of the first setting whose name contains <name>",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var typeCmd = &cobra.Command{
	Use:   "type <name>",
	Short: "Print the value type (hex, int, float, bool, str) of a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runType,
}

var setCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Change a setting and import the edited script",
	Long: `Change a setting and import the edited script.

The value is written in the setting's existing format: hex fields stay hex,
word booleans stay words. "true"/"false" are booleans and anything numeric
(42, 0x2A, 2Ah) is an integer unless --bool or --string is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Parse and list all settings",
	RunE:  runList,
}

var findCmd = &cobra.Command{
	Use:       "find <power|voltage|xmp|cstate|turbo|all>",
	Short:     "List settings matching a tuning category",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"power", "voltage", "xmp", "cstate", "turbo", "all"},
	RunE:      runFind,
}

var (
	setAsBool    bool
	setAsString  bool
	listCategory string
	listPerfOnly bool
)

func init() {
	setCmd.Flags().BoolVar(&setAsBool, "bool", false, "interpret the value as a boolean")
	setCmd.Flags().BoolVar(&setAsString, "string", false, "pass the value through as a string")
	setCmd.MarkFlagsMutuallyExclusive("bool", "string")

	listCmd.Flags().StringVar(&listCategory, "category", "", "only settings of this category (cpu_power, cpu_freq, cpu_voltage, memory, cpu_features, other)")
	listCmd.Flags().BoolVar(&listPerfOnly, "performance", false, "only performance-related settings")

	rootCmd.AddCommand(getCmd, typeCmd, setCmd, listCmd, findCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	v, err := svc.GetSettingValue(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]any{"name": args[0], "value": v})
	}
	fmt.Println(v)
	return nil
}

func runType(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	t, err := svc.GetSettingType(ctx, args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]any{"name": args[0], "type": t})
	}
	fmt.Println(t)
	return nil
}

func parseSetValue(s string) (scedump.Value, error) {
	switch {
	case setAsBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return scedump.Value{}, fmt.Errorf("%q is not a boolean", s)
		}
		return scedump.BoolValue(b), nil
	case setAsString:
		return scedump.StringValue(s), nil
	default:
		return scedump.ParseValue(s), nil
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	value, err := parseSetValue(args[1])
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	opts, closeLog := a.changeLog()
	defer closeLog()
	svc, err := a.service(ctx, false, nil, opts...)
	if err != nil {
		return err
	}
	ensureBackup(ctx, a, svc)

	if err := svc.SetSettingValue(ctx, name, value); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(map[string]any{"name": name, "value": value, "applied": true})
	}
	fmt.Printf("%s set to %s; reboot to apply\n", name, value)
	return nil
}

// backupTaker is the part of bios.Service used by ensureBackup.
type backupTaker interface {
	BackupAvailable() bool
	Backup(ctx context.Context) error
}

// ensureBackup takes the first backup before the first change so restore
// has something to go back to.
func ensureBackup(ctx context.Context, a *app, svc backupTaker) {
	if svc.BackupAvailable() {
		return
	}
	if err := svc.Backup(ctx); err != nil {
		a.logger.Warn("could not back up BIOS settings before change", "error", err)
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	settings, err := svc.ParseAllSettings(ctx)
	if err != nil {
		return err
	}

	records := make([]*scedump.Record, 0, settings.Len())
	for _, rec := range settings.Records() {
		if listCategory != "" && string(rec.Category) != listCategory {
			continue
		}
		if listPerfOnly && !rec.IsPerformanceRelated {
			continue
		}
		records = append(records, rec)
	}

	if jsonOutput {
		return printJSON(records)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE\tTYPE\tCATEGORY\tREBOOT")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", rec.Name, rec.ValueRaw, rec.Type, rec.Category, rec.RequiresReboot)
	}
	return tw.Flush()
}

func runFind(cmd *cobra.Command, args []string) error {
	var finder classify.Finder
	all := args[0] == "all"
	if !all {
		f, err := classify.ParseFinder(args[0])
		if err != nil {
			return err
		}
		finder = f
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := a.service(ctx, false, nil)
	if err != nil {
		return err
	}

	if all {
		buckets, err := svc.FindAllPerformanceParameters(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(buckets)
		}
		for _, b := range classify.Buckets() {
			fmt.Printf("%s:\n", b)
			for _, name := range buckets[b] {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	}

	names, err := svc.Find(ctx, finder)
	if err != nil {
		return err
	}
	if jsonOutput {
		if names == nil {
			names = []string{}
		}
		return printJSON(names)
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
