package main

import (
	"context"
	"log/slog"
	"os"
)

func main() {
	App = initApp()
	defer App.shutdown()

	err := App.cliCmd.Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("Error", "msg", err)
		os.Exit(1)
	}
}
