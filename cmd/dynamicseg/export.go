package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
	"github.com/AaronLay10/DynamicSeg/internal/storage/postgres"
	"github.com/AaronLay10/DynamicSeg/internal/storage/sqlite"
)

func exportCmd(configPath *string) *cobra.Command {
	var session, source string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print a stored session as CSV",
		Long: `Print the rows of a stored session in the same layout as the
session's CSV file. Rows come from Postgres by default, or from the local
SQLite database with --from sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := loadSession(*configPath, source, session)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("session %s not found", session)
			}
			return eventlog.WriteCSV(cmd.OutOrStdout(), rows)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session id (<participant>-<timestamp>)")
	cmd.Flags().StringVar(&source, "from", "postgres", "source database: postgres or sqlite")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func loadSession(configPath, source, session string) ([]eventlog.Row, error) {
	switch source {
	case "postgres":
		client, err := postgres.Connect()
		if err != nil {
			return nil, err
		}
		defer client.Close()

		stored, err := client.Query(session)
		if err != nil {
			return nil, fmt.Errorf("failed to query session %s: %w", session, err)
		}
		rows := make([]eventlog.Row, len(stored))
		for i, r := range stored {
			rows[i] = r.Row
		}
		return rows, nil

	case "sqlite":
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if cfg.SQLite.Path == "" {
			return nil, fmt.Errorf("sqlite.path is not set in %s", configPath)
		}
		return sqlite.ReadSession(cfg.SQLite.Path, session)

	default:
		return nil, fmt.Errorf("unknown source %q (want postgres or sqlite)", source)
	}
}
