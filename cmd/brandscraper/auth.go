package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"brandscraper/pkg/auth"
	"brandscraper/pkg/config"
	"brandscraper/pkg/ui"
)

var (
	authSite   string
	tokenStdin bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the secret token",
	Long: `Manage the x-secret-token sent to the authenticated endpoints.

Tokens are stored per site using:
  - System keychain (when available)
  - Per-site sealed token file (AES-GCM, PBKDF2-derived key)
  - BRANDSCRAPER_SECRET_TOKEN (read only)

A stored token is used by 'brandscraper scrape' whenever no token is given
on the command line, in the environment or in the configuration file.`,
}

// setTokenCmd represents the auth set-token command
var setTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store the secret token",
	Long: `Store the secret token for a site. The token is read without echo
when stdin is a terminal.`,
	Example: `  # Interactive
  brandscraper auth set-token

  # From a pipe
  echo "$TOKEN" | brandscraper auth set-token --stdin`,
	Args: cobra.NoArgs,
	RunE: runSetToken,
}

// clearTokenCmd represents the auth clear-token command
var clearTokenCmd = &cobra.Command{
	Use:   "clear-token",
	Short: "Remove the stored secret token",
	Args:  cobra.NoArgs,
	RunE:  runClearToken,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where a token is stored",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(setTokenCmd)
	authCmd.AddCommand(clearTokenCmd)
	authCmd.AddCommand(statusCmd)

	authCmd.PersistentFlags().StringVar(&authSite, "site", "", "site the token belongs to (default: configured base URL)")
	setTokenCmd.Flags().BoolVar(&tokenStdin, "stdin", false, "read the token from stdin without prompting")
}

// tokenSite returns the key the token is stored under
func tokenSite() string {
	if authSite != "" {
		return auth.SiteKey(authSite)
	}
	if cfg, err := config.Load(configFile, nil); err == nil {
		return auth.SiteKey(cfg.Site.BaseURL)
	}
	return auth.SiteKey(config.DefaultBaseURL)
}

func runSetToken(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to initialize token stores: %w", err)}
	}

	site := tokenSite()

	var value string
	if tokenStdin {
		value, err = ui.ReadLine(bufio.NewReader(os.Stdin))
	} else {
		value, err = ui.ReadSecret(os.Stdin, os.Stdout, fmt.Sprintf("Secret token for %s: ", site))
	}
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to read token: %w", err)}
	}
	if value == "" {
		return &exitError{code: exitFatal, err: errors.New("token cannot be empty")}
	}

	if err := manager.Store(&auth.Token{Site: site, Value: value}); err != nil {
		return &exitError{code: exitFatal, err: err}
	}

	_, source, err := manager.Retrieve(site)
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("token stored but cannot be read back: %w", err)}
	}
	printer.Success(fmt.Sprintf("Token for %s stored (%s): %s", site, source, config.MaskSecret(value)))
	return nil
}

func runClearToken(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to initialize token stores: %w", err)}
	}

	site := tokenSite()
	if err := manager.Delete(site); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			printer.Warning("No stored token", site)
			return nil
		}
		return &exitError{code: exitFatal, err: err}
	}

	printer.Success("Token removed for " + site)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return &exitError{code: exitFatal, err: fmt.Errorf("failed to initialize token stores: %w", err)}
	}

	site := tokenSite()
	printer.Info("Site", site)

	rows := [][]string{}
	for _, status := range manager.Status(site) {
		state := "-"
		if status.Exists {
			state = "stored"
		}
		rows = append(rows, []string{status.Store, state})
	}
	printer.Table(rows)

	if stored, source, err := manager.Retrieve(site); err == nil {
		printer.Info("Active token", fmt.Sprintf("%s (%s)", config.MaskSecret(stored.Value), source))
	} else {
		printer.Info("Active token", config.MaskSecret(config.DefaultSecretToken)+" (default)")
	}
	return nil
}
