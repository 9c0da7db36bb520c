package main

import (
	"context"
	"os"

	"sdash-backend/cmd/sdash-cli/commands"
	"sdash-backend/lib/osutil"
	"sdash-backend/lib/telemetry"
)

func main() {
	ctx := osutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "sdash-cli")
	if err != nil && !os.IsNotExist(err) {
		osutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer tel.Shutdown(context.Background())
	}
	telemetry.InitSlog(true)
	telemetry.InstrumentPerfStats(ctx)

	commands.ExecuteContext(ctx)
}
