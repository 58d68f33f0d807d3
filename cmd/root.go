package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/denimozh/mathstutor-sub000/internal/config"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "mathstutor",
	Short: "AI solutions and marking for A-Level maths",
	Long: "mathstutor generates step-by-step solutions to A-Level maths questions " +
		"and marks handwritten working against exam-style mark schemes.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return config.LoadDotEnv(envFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite path (overrides MATHSTUTOR_DB)")
	rootCmd.PersistentFlags().String("db-driver", "", "Database driver: sqlite or postgres (overrides MATHSTUTOR_DB_DRIVER)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional .env file to load")
	rootCmd.PersistentFlags().String("log-mode", "", "Log format: dev or prod (overrides MATHSTUTOR_LOG_MODE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(examplesCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the environment and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.FromEnv()
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.Store.Driver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.Store.DSN = v
	}
	if v, _ := cmd.Flags().GetString("log-mode"); v != "" {
		cfg.LogMode = v
	}
	if err := resolveDBPath(&cfg.Store); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// resolveDBPath fills in the default SQLite file when no DSN is given, and
// makes sure the parent directory of an explicit SQLite path exists.
func resolveDBPath(sc *store.Config) error {
	if !isSQLite(sc.Driver) {
		return nil
	}
	if sc.DSN == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return err
		}
		sc.DSN = p
		return nil
	}
	if isFilePath(sc.DSN) {
		return store.EnsureDir(sc.DSN)
	}
	return nil
}

func isSQLite(driver string) bool {
	switch driver {
	case "", "sqlite", "sqlite3":
		return true
	}
	return false
}

func isFilePath(dsn string) bool {
	return dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}
