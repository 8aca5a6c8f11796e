package main

import (
	"fmt"

	"cemetery-go/internal/app"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// alerts command
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Manage zombie alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List zombie alerts",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		unreadOnly, _ := cmd.Flags().GetBool("unread")

		a, err := newApp(cmd.Context(), "alerts-list")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		alerts := a.GetZombieAlerts()

		lastCheck := "never"
		if alerts.LastCheck != nil {
			lastCheck = alerts.LastCheck.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%d alerts, %d unread (last check: %s)\n", alerts.TotalAlerts, alerts.UnreadCount, lastCheck)

		red := color.New(color.FgRed, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, z := range alerts.Alerts {
			if unreadOnly && z.Notified {
				continue
			}
			marker := gray("read  ")
			if !z.Notified {
				marker = red("UNREAD")
			}
			fmt.Printf("\n%s %s\n", marker, z.ID)
			fmt.Printf("  corpse: %s %s\n", z.CorpseRepo, z.CorpsePath)
			fmt.Printf("  zombie: %s %s\n", z.ZombieRepo, z.ZombiePath)
			fmt.Printf("  %s, similarity %.0f%%, confidence %.0f%%, detected %s\n",
				z.ResurrectionType, z.Similarity*100, z.Confidence*100,
				z.DetectedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var alertsReadCmd = &cobra.Command{
	Use:   "read ID",
	Short: "Mark an alert as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpAlertRead)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.MarkAlertRead(args[0])
	},
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack ID",
	Short: "Acknowledge an alert and mark its tombstone resurrected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpAlertAck)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		return a.AcknowledgeAlert(args[0])
	},
}

var alertsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all alerts",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpAlertClear)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.ClearAllAlerts(); err != nil {
			return err
		}
		fmt.Println("Alerts cleared.")
		return nil
	},
}

var alertsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Record alerts from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpAlertImport)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.ImportAlerts(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d alert(s)\n", n)
		return nil
	},
}

func init() {
	alertsCmd.AddCommand(alertsListCmd)
	alertsListCmd.Flags().BoolP("unread", "u", false, "Only show unread alerts")
	alertsCmd.AddCommand(alertsReadCmd)
	alertsCmd.AddCommand(alertsAckCmd)
	alertsCmd.AddCommand(alertsClearCmd)
	alertsCmd.AddCommand(alertsImportCmd)

	rootCmd.AddCommand(alertsCmd)
}
