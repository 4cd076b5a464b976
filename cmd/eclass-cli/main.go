package main

import (
	"context"
	"log/slog"
	"os"

	"eclass-backend/cmd/eclass-cli/commands"
	"eclass-backend/lib/serviceutil"
	"eclass-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(os.Getenv("ECLASS_DEBUG") != "")

	tel, err := telemetry.SetupFromEnv(ctx, "eclass-cli")
	if err == nil {
		defer tel.Shutdown(context.Background())
	} else if !os.IsNotExist(err) {
		slog.Warn("failed to set up telemetry", "err", err)
	}

	commands.ExecuteContext(ctx)
}
