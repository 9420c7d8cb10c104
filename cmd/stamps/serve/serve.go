// Package servecmder provides the serve command for running the API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tomp11/sb-stamp-manager/api"
	"github.com/tomp11/sb-stamp-manager/pkg/app"
	"github.com/tomp11/sb-stamp-manager/pkg/identity"
)

type ServeCommander struct {
	apiListen string
	mock      bool
	debug     bool
}

const serveLongDesc string = `Run the stamps API server.

The server exposes the collection over HTTP (ingest, list, sync, remove)
and follows identity changes live: signing in or out with 'stamps login'
in another terminal re-initializes the collection without a restart.

Examples:
  stamps serve
  stamps serve --api-listen :9090
  stamps serve --mock               Serve with the sample extraction dataset`

const serveShortDesc string = "Run the stamps API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVarP(&cmder.apiListen, "api-listen", "a", "", "Address for the API server to listen on")
	cmd.Flags().BoolVar(&cmder.mock, "mock", false, "Use the sample dataset instead of a real extraction provider")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, configDir string) error {
	a, err := app.New(ctx, configDir, c.debug)
	if err != nil {
		return err
	}
	defer a.Close()
	defer a.Logger.Sync()

	listen := c.apiListen
	if listen == "" {
		listen = a.Viper.GetString("api.listen")
	}

	if _, err := a.ActivateCurrent(ctx); err != nil {
		return err
	}

	// Extraction is optional for the server; without a key the /ingest
	// endpoint still accepts pre-extracted records.
	extractor, err := a.Extractor(c.mock)
	if err != nil {
		a.Logger.Warn("extraction unavailable", zap.Error(err))
		extractor = nil
	} else {
		defer extractor.Close()
	}

	// Follow sign-in and sign-out happening outside this process.
	notifier, err := identity.NewNotifier(a.Identity, a.Logger)
	if err != nil {
		return fmt.Errorf("watching session file: %w", err)
	}
	defer notifier.Close()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	go func() {
		if err := notifier.Run(watchCtx); err != nil {
			a.Logger.Error("session watcher stopped", zap.Error(err))
		}
	}()
	go a.Store.Watch(watchCtx, notifier.Sessions())

	apiServer := api.NewServer(api.Config{ListenAddr: listen}, a.Store, extractor, a.Logger)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		a.Logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}
