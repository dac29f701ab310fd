package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baseplate/querykit/config"
	"github.com/baseplate/querykit/internal/core/auth"
	"github.com/baseplate/querykit/internal/storage/postgres"
)

var apiKeyFlags struct {
	team        string
	name        string
	permissions []string
	expires     string
}

var adminKeyCmd = &cobra.Command{
	Use:   "adminkey",
	Short: "Manage the admin key",
}

var adminKeyHashCmd = &cobra.Command{
	Use:   "hash [key]",
	Short: "Print the bcrypt hash of an admin key",
	Long: `Print the bcrypt hash to configure as ADMIN_KEY_HASH.

The key is read from the first argument, or from stdin when no argument
is given. It must be at least 16 characters long.`,
	Args: cobra.MaximumNArgs(1),
	RunE: hashAdminKey,
}

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key in the database",
	Long: `Create an API key for a team directly in the database configured by
the DB_* environment variables. The key is printed once and cannot be
recovered afterwards.`,
	RunE: createAPIKey,
}

func init() {
	rootCmd.AddCommand(adminKeyCmd, apiKeyCmd)
	adminKeyCmd.AddCommand(adminKeyHashCmd)
	apiKeyCmd.AddCommand(apiKeyCreateCmd)

	apiKeyCreateCmd.Flags().StringVar(&apiKeyFlags.team, "team", "", "team id (required)")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyFlags.name, "name", "", "key name (required)")
	apiKeyCreateCmd.Flags().StringSliceVar(&apiKeyFlags.permissions, "permissions", nil, "granted permissions (default entity:read)")
	apiKeyCreateCmd.Flags().StringVar(&apiKeyFlags.expires, "expires", "", "expiry as RFC 3339 time or duration, e.g. 720h")
	_ = apiKeyCreateCmd.MarkFlagRequired("team")
	_ = apiKeyCreateCmd.MarkFlagRequired("name")
}

func hashAdminKey(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashAdminKey(key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

// expiry accepts either an RFC 3339 time or a duration from now.
func expiry(s string, now time.Time) (*string, error) {
	if s == "" {
		return nil, nil
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return &s, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return nil, errors.New("--expires must be an RFC 3339 time or a positive duration")
	}
	at := now.Add(d).UTC().Format(time.RFC3339)
	return &at, nil
}

func createAPIKey(cmd *cobra.Command, args []string) error {
	expiresAt, err := expiry(apiKeyFlags.expires, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := auth.NewService(auth.NewPostgresRepository(db), &cfg.JWT, &cfg.Auth)
	resp, err := svc.CreateAPIKey(ctx, &auth.CreateAPIKeyRequest{
		TeamID:      apiKeyFlags.team,
		Name:        apiKeyFlags.name,
		Permissions: apiKeyFlags.permissions,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:          %s\n", resp.APIKey.ID)
	fmt.Fprintf(out, "team:        %s\n", resp.APIKey.TeamID)
	fmt.Fprintf(out, "permissions: %s\n", strings.Join(resp.APIKey.Permissions, ","))
	fmt.Fprintf(out, "key:         %s\n", resp.Key)
	return nil
}
