package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/jpapi/internal/models"
	"github.com/good-yellow-bee/jpapi/internal/storage"
)

var (
	keyDBPath   string
	keyName     string
	keyEmail    string
	keyUsage    string
	keyActivate bool
)

// apikeyCmd represents the apikey command group
var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "API key management commands",
	Long: `Commands for managing jpapi API keys.

These commands operate directly on the key store database file. New keys
start out pending and must be activated before the API accepts them.

Examples:
  # List all keys
  jpctl apikey list

  # Issue a key
  jpctl apikey create --name "Jane Doe" --email jane@example.org --usage "church website"

  # Activate or suspend a key by id
  jpctl apikey activate 2f1c...
  jpctl apikey suspend 2f1c...`,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all API keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore(keyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		return listKeys(cmd.Context(), store.APIKeys(), cmd.OutOrStdout(), GetOutput())
	},
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue a new API key",
	Long: `Issue a new API key and print it once. Only a hash of the key is stored,
so it cannot be shown again.

Example:
  jpctl apikey create --name "Jane Doe" --email jane@example.org --activate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore(keyDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		return createKey(cmd.Context(), store.APIKeys(), cmd.OutOrStdout(), keyName, keyEmail, keyUsage, keyActivate)
	},
}

var apikeyActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Activate an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetStatus(cmd, args[0], models.APIKeyActive)
	},
}

var apikeySuspendCmd = &cobra.Command{
	Use:   "suspend <id>",
	Short: "Suspend an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetStatus(cmd, args[0], models.APIKeySuspended)
	},
}

func init() {
	defaultPath := os.Getenv("JPAPI_KEYS_PATH")
	if defaultPath == "" {
		defaultPath = "./data/keys.db"
	}
	apikeyCmd.PersistentFlags().StringVar(&keyDBPath, "db", defaultPath, "path to the key store database")

	apikeyCreateCmd.Flags().StringVar(&keyName, "name", "", "key holder name (required)")
	apikeyCreateCmd.Flags().StringVar(&keyEmail, "email", "", "key holder email (required)")
	apikeyCreateCmd.Flags().StringVar(&keyUsage, "usage", "", "what the key will be used for")
	apikeyCreateCmd.Flags().BoolVar(&keyActivate, "activate", false, "activate the key immediately")

	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyActivateCmd)
	apikeyCmd.AddCommand(apikeySuspendCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runSetStatus(cmd *cobra.Command, id string, status models.APIKeyStatus) error {
	store, err := openKeyStore(keyDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return setKeyStatus(cmd.Context(), store.APIKeys(), cmd.OutOrStdout(), id, status)
}

func createKey(ctx context.Context, keys storage.APIKeyRepository, w io.Writer, name, email, usage string, activate bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("--name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	key, plain, err := models.NewAPIKey(name, email, strings.TrimSpace(usage))
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	if activate {
		key.Status = models.APIKeyActive
	}
	if err := keys.Create(ctx, key); err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	PrintVerbose("stored key %s", key.ID)

	fmt.Fprintf(w, "ID:     %s\n", key.ID)
	fmt.Fprintf(w, "Status: %s\n", key.Status)
	fmt.Fprintf(w, "Key:    %s\n", plain)
	fmt.Fprintln(w, "\nStore the key now. It cannot be shown again.")
	return nil
}

func listKeys(ctx context.Context, keys storage.APIKeyRepository, w io.Writer, format string) error {
	list, err := keys.List(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No API keys found.")
		return nil
	}

	// Print header
	fmt.Fprintf(w, "\n%-36s  %-24s  %-30s  %-10s  %s\n",
		"ID", "NAME", "EMAIL", "STATUS", "LAST USED")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, k := range list {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%-36s  %-24s  %-30s  %-10s  %s\n",
			k.ID, k.Name, k.Email, k.Status, lastUsed)
	}
	fmt.Fprintf(w, "\nTotal: %d key(s)\n", len(list))

	return nil
}

func setKeyStatus(ctx context.Context, keys storage.APIKeyRepository, w io.Writer, id string, status models.APIKeyStatus) error {
	if err := keys.SetStatus(ctx, id, status); err != nil {
		return fmt.Errorf("set status of %s: %w", id, err)
	}
	fmt.Fprintf(w, "API key %s is now %s.\n", id, status)
	return nil
}

func openKeyStore(path string) (*storage.SQLiteStorage, error) {
	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open key store: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate key store: %w", err)
	}
	return store, nil
}
