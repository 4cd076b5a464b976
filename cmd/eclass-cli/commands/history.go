package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"eclass-backend/lib/configutil"
	"eclass-backend/lib/coursestore"
	"eclass-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Prints the recorded course fetch history for the configured user.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.HistoryDb == "" {
			serviceutil.Fatal("no history configured", errors.New("set history_db in config.json5"))
		}

		database, err := coursestore.Open(cfg.HistoryDb)
		if err != nil {
			serviceutil.Fatal("failed to open history db", err)
		}
		defer database.Close()
		store := coursestore.NewStore(database)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Second*10)
		defer cancel()

		fetches, err := store.Pull(ctx, cfg.Username)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Fetched", "Courses"})
		for _, fetch := range fetches {
			t.AppendRow(table.Row{
				fetch.Time.Format(time.DateTime),
				len(fetch.Courses),
			})
		}
		t.Render()
	},
}
