package main

import (
	"os"

	"github.com/kuleuven/nfs4xattr/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "nfs4xattr",
	Short:        "NFSv4.2 extended attribute server",
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Logger.Error(err)
		os.Exit(1)
	}
}
