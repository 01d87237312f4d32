package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "karaka",
		Usage: "Build and query a semantic-role knowledge graph",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "memory",
				Aliases: []string{"m"},
				Usage:   "keep the graph in process instead of Postgres",
				Sources: cli.EnvVars("KARAKA_MEMORY"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			ingestCommand(),
			askCommand(),
			lineCommand(),
			documentsCommand(),
			statsCommand(),
			clearCommand(),
			deleteCommand(),
			healthCommand(),
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "karaka:", err)
		os.Exit(1)
	}
}
