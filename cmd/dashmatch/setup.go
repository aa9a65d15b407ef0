// ABOUTME: Cobra command for interactive analytics host and AI key setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate credentials.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/dashmatch/internal/config"
	"github.com/2389-research/dashmatch/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect your analytics host and AI key",
	Long:  "Interactive wizard to configure host API credentials and the generative AI key.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasHost() && cfg.HasAI() {
		fmt.Println("Existing settings loaded. Press enter on a step to keep its value.")
	}

	model := tui.NewSetupModel(tui.Credentials{
		HostURL:      cfg.Host.URL,
		ClientID:     cfg.Host.ClientID,
		ClientSecret: cfg.Host.ClientSecret,
		AIKey:        cfg.AI.APIKey,
	})

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	creds := final.Result()
	cfg.Host.URL = creds.HostURL
	cfg.Host.ClientID = creds.ClientID
	cfg.Host.ClientSecret = creds.ClientSecret
	cfg.AI.APIKey = creds.AIKey

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
