package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"cemetery-go/internal/app"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive the registry to the configured backends",
}

var archiveSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate the archive encryption keys",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpArchiveSetup)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		passphrase, err := readSecret("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readSecret("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupArchive(passphrase); err != nil {
			return err
		}
		fmt.Println("Archive keys created. Keep the passphrase safe: it is needed to pull.")
		return nil
	},
}

var archivePushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the registry now",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpArchivePush)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.PushArchive()
		if err != nil {
			return err
		}
		fmt.Printf("Archived %d document(s)\n", n)
		return nil
	},
}

var archivePullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Restore the registry from the first archive",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd.Context(), app.OpArchivePull)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		var passphrase string
		sealed, err := a.NeedsUnlock()
		if err != nil {
			return err
		}
		if sealed {
			passphrase, err = readSecret("Passphrase: ")
			if err != nil {
				return err
			}
		}

		n, err := a.PullArchive(passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d document(s)\n", n)
		return nil
	},
}

// stdin is shared so consecutive prompts read consecutive piped lines.
var stdin = bufio.NewReader(os.Stdin)

// readSecret prompts on stderr and reads a line without echo. When stdin
// is not a terminal the line is read as is, so secrets can be piped in.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secret), nil
}

func init() {
	archiveCmd.AddCommand(archiveSetupCmd)
	archiveCmd.AddCommand(archivePushCmd)
	archiveCmd.AddCommand(archivePullCmd)

	rootCmd.AddCommand(archiveCmd)
}
