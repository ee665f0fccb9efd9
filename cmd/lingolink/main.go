package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lingolink/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("lingolink exited", "error", err)
		os.Exit(1)
	}
}
