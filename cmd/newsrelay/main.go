package main

import (
	"context"
	"fmt"
	"os"

	"NewsRelay/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.DefaultFactory)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "newsrelay:", err)
		os.Exit(1)
	}
}
