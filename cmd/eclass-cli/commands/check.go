package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eclass-backend/lib/configutil"
	"eclass-backend/lib/serviceutil"
	eclassservice "eclass-backend/services/eclass"

	"github.com/spf13/cobra"
)

func errResult(res eclassservice.Result) error {
	return errors.New(res.Text)
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verifies the configured credentials against the portal's SSO.",
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
			serviceutil.Fatal("credential check failed", errResult(res))
		}
		fmt.Println(res.Text)

		status := service.AuthStatus(ctx)
		slog.Debug("auth status after login", "text", status.Text)

		res = service.Logout(ctx)
		if !res.Success {
			serviceutil.Fatal("logout failed", errResult(res))
		}
		fmt.Println(res.Text)
	},
}
