package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the GistFlow HTTP API.

Endpoints:
  GET  /healthz
  GET  /api/v1/styles
  POST /api/v1/summaries
  POST /api/v1/summaries/stream   (Server-Sent Events)
  POST /api/v1/notes/upload       (multipart field "file")
  POST /api/v1/exports?format=text|markdown|html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := initializeApp(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to wire application: %w", err)
		}
		defer cleanup()

		return app.Run(cmd.Context())
	},
}
