package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root := &cobra.Command{
		Use:   "guardtip",
		Short: "Guard tipping payment backend",
		RunE:  runServe,
	}
	root.AddCommand(serveCmd(), reconcileCmd())

	if err := root.Execute(); err != nil {
		logrus.Errorf("Failed to run command: %v", err)
		os.Exit(1)
	}
}
