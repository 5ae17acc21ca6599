package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ankane/sheetsync/internal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sheetsync [store-url]",
		Short: "Record yesterday's total in a spreadsheet once a day",
		Long:  "Record yesterday's total in a spreadsheet once a day, without writing the same day twice",
		Args:  cobra.MaximumNArgs(1),

		// Execute prints the error
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, formatter, logger, err := setup(cmd, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return internal.Main(ctx, cfg, formatter, logger)
		},
	}

	rootCmd.PersistentFlags().String("credentials", "", "Service account file for Google Sheets (default $SPREADSHEET_AUTH_FILE)")
	rootCmd.PersistentFlags().Int("sheet", 0, "Index of the worksheet")
	rootCmd.PersistentFlags().String("table", "", "Table, collection, index or key holding the rows (default $SHEETSYNC_TABLE or keystats)")
	rootCmd.PersistentFlags().String("format", "", "Output format (default text)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (default info)")
	rootCmd.Flags().String("database", "", "Database with the daily data (default $SHEETSYNC_DATABASE_URL)")
	rootCmd.Flags().String("query", "", "Query returning yesterday's total, with :start and :end")
	rootCmd.Flags().Duration("every", 0, "Keep running and check at this interval")

	rootCmd.AddCommand(newRowsCmd(), newExistsCmd())

	return rootCmd
}

func newRowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rows [store-url]",
		Short: "List the rows of the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, formatter, logger, err := setup(cmd, args)
			if err != nil {
				return err
			}

			column, err := cmd.Flags().GetString("column")
			if err != nil {
				return err
			}

			columnsStr, err := cmd.Flags().GetString("columns")
			if err != nil {
				return err
			}

			var columns []string
			if columnsStr != "" {
				columns = strings.Split(columnsStr, ",")
			}

			return internal.ListRows(cmd.Context(), cfg, column, columns, formatter, logger)
		},
	}

	cmd.Flags().String("column", internal.ColumnYear, "Rows are read until this column is empty")
	cmd.Flags().String("columns", "", "Columns to show, comma separated")

	return cmd
}

func newExistsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists <key> [store-url]",
		Short: "Show the first row whose column matches key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, formatter, logger, err := setup(cmd, args[1:])
			if err != nil {
				return err
			}

			column, err := cmd.Flags().GetString("column")
			if err != nil {
				return err
			}

			found, err := internal.FindRow(cmd.Context(), cfg, args[0], column, formatter, logger)
			if err != nil {
				return err
			}
			if !found {
				cmd.SilenceUsage = true
				return fmt.Errorf("not found: %s", args[0])
			}
			return nil
		},
	}

	cmd.Flags().String("column", internal.ColumnDate, "Column holding the key")

	return cmd
}

// setup merges flags and arguments over the environment.
func setup(cmd *cobra.Command, args []string) (internal.Config, internal.Formatter, zerolog.Logger, error) {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return cfg, nil, zerolog.Nop(), err
	}

	if len(args) > 0 {
		cfg.StoreURL = args[0]
	}
	if cfg.StoreURL == "" {
		return cfg, nil, zerolog.Nop(), fmt.Errorf("no store specified")
	}

	flags := cmd.Flags()
	if flags.Changed("credentials") {
		cfg.CredentialsFile, _ = flags.GetString("credentials")
	}
	if flags.Changed("sheet") {
		cfg.Sheet, _ = flags.GetInt("sheet")
	}
	if flags.Changed("table") {
		cfg.Table, _ = flags.GetString("table")
	}
	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("database") {
		cfg.DatabaseURL, _ = flags.GetString("database")
	}
	if flags.Changed("query") {
		cfg.Query, _ = flags.GetString("query")
	}
	if flags.Changed("every") {
		cfg.Every, _ = flags.GetDuration("every")
	}

	newFormatter, found := internal.Formatters[cfg.Format]
	if !found {
		return cfg, nil, zerolog.Nop(), fmt.Errorf("Invalid format: %s\nValid formats are %s", cfg.Format, strings.Join(internal.FormatterNames(), ", "))
	}

	logger := internal.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())

	return cfg, newFormatter(cmd.OutOrStdout()), logger, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
