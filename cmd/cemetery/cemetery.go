package main

import (
	"fmt"

	"cemetery-go/internal/app"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the target organisation for dead repositories",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpScan)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		result, err := a.TriggerScan(cmd.Context())
		if err != nil {
			return err
		}

		zombies := color.New(color.FgGreen).Sprint(result.Zombies)
		if result.Zombies > 0 {
			zombies = color.New(color.FgRed, color.Bold).Sprint(result.Zombies)
		}
		fmt.Printf("Scanned %d repositories, %s dead.\n", result.Scanned, zombies)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cemetery counts",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "stats")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		stats, err := a.GetStats()
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("%s\n\n", cyan("Code Cemetery"))
		fmt.Printf("  Assets:      %d (%s alive, %s dead)\n", stats.TotalAssets, green(stats.AliveAssets), red(stats.DeadAssets))
		fmt.Printf("  Tombstones:  %d\n", stats.TotalTombstones)
		fmt.Printf("  Resurrected: %s\n", yellow(stats.Resurrected))
		fmt.Printf("  Last scan:   %s\n", stats.LastScan)
		return nil
	},
}

var tombstonesCmd = &cobra.Command{
	Use:   "tombstones",
	Short: "List the most recently dead assets",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "tombstones")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		tombstones := a.ListRecentTombstones(limit)
		if len(tombstones) == 0 {
			fmt.Println("No tombstones.")
			return nil
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, t := range tombstones {
			fmt.Printf("%s  %-40s  %s\n", t.DiedAt.Format("2006-01-02"), t.Name, gray(t.CauseOfDeath))
			if t.Resurrected() && t.ResurrectedTo != nil {
				fmt.Printf("            %s %s\n", yellow("resurrected as"), *t.ResurrectedTo)
			}
			if t.Placeholder {
				fmt.Printf("            %s\n", gray("(example record, run 'cemetery scan')"))
			}
		}
		return nil
	},
}

var resurrectCmd = &cobra.Command{
	Use:   "resurrect ID TARGET",
	Short: "Record that a tombstone's code lives on at TARGET",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpResurrect)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.MarkResurrected(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s resurrected as %s\n", args[0], args[1])
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a plain-text cemetery summary",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), "report")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		report, err := a.Report()
		if err != nil {
			return err
		}
		fmt.Print(report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tombstonesCmd)
	tombstonesCmd.Flags().IntP("limit", "n", 20, "Maximum number of tombstones to show")
	rootCmd.AddCommand(resurrectCmd)
	rootCmd.AddCommand(reportCmd)
}
