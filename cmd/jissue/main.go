package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nhle/jissue/internal/cli"
)

func main() {
	// A project-local .env may carry the JISSUE_* session variables.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.NewEnv(), os.Args[1:])
	stop()
	os.Exit(code)
}
