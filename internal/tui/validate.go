// ABOUTME: Connection validation for the setup wizard.
// ABOUTME: Logs in to the analytics host with the entered client credentials.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/2389-research/dashmatch/internal/host"
)

const validateTimeout = 10 * time.Second

// ValidateConnection logs in to the host with creds. The context allows
// cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, creds Credentials) error {
	if creds.HostURL == "" {
		return fmt.Errorf("host URL is required")
	}
	client := host.NewClient(creds.HostURL, creds.ClientID, creds.ClientSecret, host.WithTimeout(validateTimeout))
	if err := client.Login(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return nil
}
