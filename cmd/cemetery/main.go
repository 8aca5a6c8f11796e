package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"cemetery-go/internal/app"
	"cemetery-go/internal/config"
	"cemetery-go/internal/database"
	"cemetery-go/internal/version"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation names the CLI command being run (e.g. app.OpScan).
func newApp(ctx context.Context, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// closeApp closes a and reports a close failure unless the command already failed.
func closeApp(a *app.App, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

var rootCmd = &cobra.Command{
	Use:          "cemetery",
	Short:        "Track dead code and catch it coming back",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID:      %s\n", hostID)
		fmt.Printf("Cemetery Dir: %s\n", cfg.CemeteryDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:      %s\n", cfg.HostID)
		fmt.Printf("Cemetery Dir: %s\n", cfg.CemeteryDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Source:       %s\n", cfg.Scanner.Source)
		fmt.Printf("Threshold:    %s\n", cfg.Scanner.Threshold())
		fmt.Printf("Archives:     %d\n", len(cfg.Archives))

		a, err := app.NewApp(cmd.Context(), cfg, "config-list")
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer closeApp(a, &err)

		settings, err := a.LoadSettings()
		if err != nil {
			return err
		}
		token := color.New(color.FgHiBlack).Sprint("(not set)")
		if settings.Token() != "" {
			token = "(set)"
		}
		fmt.Printf("\nSettings:\n")
		fmt.Printf("  github_token:  %s\n", token)
		fmt.Printf("  target_org:    %s\n", settings.TargetOrg)
		fmt.Printf("  scan_interval: %ds\n", settings.ScanInterval)
		fmt.Printf("  auto_start:    %t\n", settings.AutoStart)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change a setting (target_org, scan_interval)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpSettingsSave)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.UpdateSetting(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the GitHub token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [TOKEN]",
	Short: "Store a GitHub token (prompts when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var token string
		if len(args) == 1 {
			token = args[0]
		} else {
			token, err = readSecret("GitHub token: ")
			if err != nil {
				return err
			}
		}
		if token == "" {
			return fmt.Errorf("token must not be empty; use 'cemetery token clear' to remove it")
		}

		a, err := newApp(cmd.Context(), app.OpTokenSet)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.UpdateToken(token); err != nil {
			return err
		}
		fmt.Println("Token saved.")
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored GitHub token",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpTokenSet)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.UpdateToken(""); err != nil {
			return err
		}
		fmt.Println("Token cleared.")
		return nil
	},
}

// autostart command
var autostartCmd = &cobra.Command{
	Use:       "autostart enable|disable",
	Short:     "Scan automatically at login",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"enable", "disable"},
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var enabled bool
		switch args[0] {
		case "enable":
			enabled = true
		case "disable":
		default:
			return fmt.Errorf("expected enable or disable, got %q", args[0])
		}

		a, err := newApp(cmd.Context(), app.OpAutoStart)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.SetAutoStart(enabled); err != nil {
			return err
		}
		fmt.Printf("Autostart %sd.\n", args[0])
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "history")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			status := yellow(fmt.Sprintf("%-10s", op.Status))
			switch op.Status {
			case database.StatusCompleted:
				status = green(fmt.Sprintf("%-10s", op.Status))
			case database.StatusFailed:
				status = red(fmt.Sprintf("%-10s", op.Status))
			}
			fmt.Printf("#%-5d %-15s  %s  %s  %-8s %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				status,
				duration,
				op.Parameters,
			)
			if op.Message != "" {
				fmt.Printf("       %s\n", op.Message)
			}
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)

	// token subcommands
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(autostartCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Get()
}
