package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	urfave "github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"

	"github.com/mchmarny/devscore/pkg/auth"
	"github.com/mchmarny/devscore/pkg/config"
)

const (
	clientID          = "f1b500ebdf533aa8a3e2"
	keyringService    = config.AppName
	keyringGitHubUser = "github_token"
	keyringGeminiUser = "gemini_api_key"
	secretFileMode    = 0600
)

func newAuthCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store credentials in the OS keychain",
		Commands: []*urfave.Command{
			{
				Name:   "github",
				Usage:  "Authenticate to GitHub to obtain an access token",
				Action: cmdGitHubAuth,
			},
			{
				Name:   "gemini",
				Usage:  "Read a Gemini API key from stdin and store it",
				Action: cmdGeminiAuth,
			},
		},
	}
}

func cmdGitHubAuth(ctx context.Context, cmd *urfave.Command) error {
	c := auth.NewClient(clientID)

	code, err := c.GetDeviceCode(ctx)
	if err != nil {
		return fmt.Errorf("getting device code: %w", err)
	}

	out := writer(cmd)
	fmt.Fprintf(out, "1). Copy this code: %s\n", code.UserCode)
	fmt.Fprintf(out, "2). Navigate to this URL in your browser to authenticate: %s\n", code.VerificationURL)
	fmt.Fprintln(out, "3). Waiting for authorization...")

	token, err := c.PollToken(ctx, code)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	if err = saveSecret(keyringGitHubUser, token.AccessToken); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Fprintln(out, "GitHub token saved")
	return nil
}

func cmdGeminiAuth(_ context.Context, cmd *urfave.Command) error {
	fmt.Fprint(writer(cmd), "Gemini API key: ")

	key, err := readLine(bufio.NewReader(reader(cmd)))
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}
	if key == "" {
		return errors.New("API key is empty")
	}

	if err := saveSecret(keyringGeminiUser, key); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}

	fmt.Fprintln(writer(cmd), "Gemini API key saved")
	return nil
}

// secretOrStored returns v, or the stored secret for user when v is empty.
func secretOrStored(v, user string) string {
	if v != "" {
		return v
	}
	s, err := getSecret(user)
	if err != nil {
		slog.Debug("no stored secret", "name", user, "error", err)
		return ""
	}
	return s
}

func saveSecret(user, secret string) error {
	if err := keyring.Set(keyringService, user, secret); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveSecretFile(user, secret)
	}

	removeSecretFile(user)
	return nil
}

func getSecret(user string) (string, error) {
	s, err := keyring.Get(keyringService, user)
	if err == nil && s != "" {
		return s, nil
	}

	s, err = getSecretFile(user)
	if err != nil {
		return "", err
	}

	// move file secrets into the keychain once it is available
	if migrateErr := keyring.Set(keyringService, user, s); migrateErr == nil {
		slog.Info("migrated secret from file to OS keychain", "name", user)
		removeSecretFile(user)
	}

	return s, nil
}

func secretFilePath(user string) (string, error) {
	dir, _, err := config.GetOrCreateHomeDir(config.AppName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, user), nil
}

func saveSecretFile(user, secret string) error {
	p, err := secretFilePath(user)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(secret), secretFileMode)
}

func getSecretFile(user string) (string, error) {
	p, err := secretFilePath(user)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading secret file %s: %w", p, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func removeSecretFile(user string) {
	if p, err := secretFilePath(user); err == nil {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Debug("error removing secret file", "path", p, "error", err)
		}
	}
}
