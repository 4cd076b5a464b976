package commands

import (
	"context"
	"fmt"
	"time"

	"eclass-backend/lib/configutil"
	"eclass-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Logs in and reports the session status and enrolled course count.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		service, cleanup := createService(ctx, cfg, false)
		defer cleanup()

		res := service.Login(ctx, cfg.Username, cfg.Password)
		if !res.Success {
			serviceutil.Fatal("login failed", errResult(res))
		}

		// populate the course count the status line reports
		res, _ = service.GetCourses(ctx)
		if !res.Success {
			serviceutil.Fatal("failed to fetch courses", errResult(res))
		}

		fmt.Println(service.AuthStatus(ctx).Text)

		res = service.Logout(ctx)
		if !res.Success {
			serviceutil.Fatal("logout failed", errResult(res))
		}
	},
}
