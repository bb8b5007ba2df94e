package main

import (
	"os"

	"github.com/gorustyt/navcore/common/logger"
	"github.com/spf13/cobra"
)

const VERSION = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:           "navtool",
		Short:         "navigation mesh build and query tool",
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(BuildCmd(), PathCmd(), InfoCmd(), ExportCmd(), WatchCmd())
	err := root.Execute()
	if err != nil {
		logger.LogError("%v", err)
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
