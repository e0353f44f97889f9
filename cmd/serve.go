package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/facetrace/attendance/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attendance API server",
	Long: `Start the attendance HTTP API.
The API covers enrollment, recognition, attendance marking, ledger
maintenance, alerts and analysis. It needs a running face embedding
service (EMBEDDING_URL).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	c, err := buildComponents()
	if err != nil {
		return err
	}
	defer func() { _ = c.log.Sync() }()

	ctx := cmd.Context()
	server := web.NewServer(c.cfg, port, host, web.Deps{
		Repo:       c.repo,
		Matcher:    c.matcher,
		Ledger:     c.ledger,
		Alerts:     c.alerts,
		Detector:   c.detector,
		Provider:   c.provider,
		AIProvider: c.aiProvider(ctx),
	}, c.log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	return server.Start()
}
