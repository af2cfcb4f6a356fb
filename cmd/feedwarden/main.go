package main

import (
	"context"

	"feedwarden/cmd/feedwarden/commands"
	"feedwarden/lib/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
