package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meudinheiro/meudinheiro/internal/accounts"
	"github.com/meudinheiro/meudinheiro/internal/config"
)

func newInitCommand() *cobra.Command {
	var userID int64
	var driver string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(cmd.Context(), absDir, userID, driver); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 1, "user the CLI acts on")
	cmd.Flags().StringVar(&driver, "driver", config.DriverSQLite, "database driver (sqlite or postgres)")

	return cmd
}

func runInit(ctx context.Context, dir string, userID int64, driver string) error {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	// Create directory structure.
	dirs := []string{
		"accounts",
		"exports",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default()
	cfg.User.ID = userID
	cfg.Database.Driver = driver
	if driver == config.DriverPostgres {
		cfg.Database.Path = ""
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(dir, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "meudinheiro.db\n.env\nexports/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	st, err := openStore(cfg, dir)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := accounts.NewService(st)
	if _, err := svc.EnsureDefaults(ctx, userID); err != nil {
		return fmt.Errorf("creating default accounts: %w", err)
	}
	if err := svc.SaveFile(ctx, userID, filepath.Join(dir, "accounts", "accounts.csv")); err != nil {
		return fmt.Errorf("writing accounts: %w", err)
	}
	return nil
}
