package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/accountplan/config"
	"github.com/mohammad-safakhou/accountplan/internal/logging"
)

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "accountplan",
		Short:         "Research companies and build account plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config/accountplan.yaml if present)")

	root.AddCommand(serveCMD(&cfgPath), chatCMD(&cfgPath))
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by every command.
func setup(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.General)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
