package main

import (
	"context"

	"erpharvest/cmd/erpharvest/commands"
	"erpharvest/lib/serviceutil"
	"erpharvest/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "erpharvest")
	if err != nil {
		serviceutil.Fatal("failed to initialize telemetry", err)
	}
	defer tel.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	commands.Execute(ctx)
}
