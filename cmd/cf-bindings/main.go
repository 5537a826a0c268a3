package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/alecthomas/kingpin.v2"
)

func main() {
	kingpin.FatalIfError(loadEnvFile(os.Args[1:]), "Cannot load env file")

	cli := newCLI(os.Stdout)
	command := kingpin.MustParse(cli.app.Parse(os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kingpin.FatalIfError(cli.run(ctx, command), "Command %s failed", command)
}
