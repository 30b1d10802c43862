package main

import (
	"path/filepath"

	"github.com/TFMV/reconcile/api"
	"github.com/TFMV/reconcile/logger"
	"github.com/TFMV/reconcile/report"
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var port string
	var prefork bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse generated reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := root.cfg.Output.Dir
			s := api.NewServer(api.ServerOptions{
				Port:        port,
				Prefork:     prefork,
				Reports:     report.NewFileSink(dir),
				SummaryPath: filepath.Join(dir, "summary.json"),
				Logger:      logger.GetLogger(),
			})
			return s.Start()
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "3000", "Port to listen on")
	cmd.Flags().BoolVar(&prefork, "prefork", false, "Use fiber prefork mode")
	return cmd
}
