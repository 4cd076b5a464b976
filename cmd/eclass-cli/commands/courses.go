package commands

import (
	"context"
	"log/slog"
	"os"
	"time"

	"eclass-backend/lib/configutil"
	"eclass-backend/lib/coursestore"
	"eclass-backend/lib/restyutil"
	scraper "eclass-backend/lib/scrapers/eclass"
	"eclass-backend/lib/serviceutil"
	eclassservice "eclass-backend/services/eclass"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// optional sqlite file recording every course fetch
	HistoryDb string `json:"history_db"`
}

var debugDump *bool

func init() {
	debugDump = coursesCmd.PersistentFlags().Bool(
		"dump-http", false,
		"Write every portal request/response to .dev/resty/eclass (debug log level only).",
	)
	rootCmd.AddCommand(coursesCmd)
}

func createService(ctx context.Context, cfg Config, dumpHttp bool) (eclassservice.Service, func()) {
	if dumpHttp {
		scraper.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/eclass"))
	}

	client, err := scraper.NewClient(ctx, scraper.ClientOptions{
		BaseUrl: cfg.BaseUrl,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize eclass client", err)
	}

	var store *coursestore.Store
	cleanup := func() {}
	if cfg.HistoryDb != "" {
		database, err := coursestore.Open(cfg.HistoryDb)
		if err != nil {
			serviceutil.Fatal("failed to open history db", err)
		}
		s := coursestore.NewStore(database)
		store = &s
		cleanup = func() { database.Close() }
	}

	return eclassservice.NewService(eclassservice.Options{
		Client: client,
		Store:  store,
	}), cleanup
}

func renderCourses(courses []scraper.Course) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Course", "URL"})
	for i, course := range courses {
		t.AppendRow(table.Row{i + 1, course.Name, course.Url})
	}
	t.Render()
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Logs in, prints the enrolled course list, then logs out.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute*2)
		defer cancel()

		service, cleanup := createService(ctx, cfg, *debugDump)
		defer cleanup()

		slog.Info("logging in", "username", cfg.Username)
		res := service.Login(ctx, cfg.Username, cfg.Password)
		if !res.Success {
			serviceutil.Fatal("login failed", errResult(res))
		}

		res, courses := service.GetCourses(ctx)
		if !res.Success {
			serviceutil.Fatal("failed to fetch courses", errResult(res))
		}
		if len(courses) == 0 {
			slog.Info(res.Text)
		} else {
			renderCourses(courses)
		}

		res = service.Logout(ctx)
		if !res.Success {
			serviceutil.Fatal("logout failed", errResult(res))
		}
	},
}
