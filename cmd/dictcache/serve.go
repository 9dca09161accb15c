package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
	"github.com/at-ishikawa/dictcache/internal/server"
)

func newServeCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dictionary cache over Connect RPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			cache, closeCache, err := openCache(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeCache()

			listener, err := net.Listen("tcp", cfg.Server.Address)
			if err != nil {
				return fmt.Errorf("net.Listen(%s) > %w", cfg.Server.Address, err)
			}
			return serve(ctx, listener, newHTTPHandler(cache, cfg.Server.AllowedOrigin), cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Address to listen on, overriding the config")
	return cmd
}

func newHTTPHandler(cache *dictionary.Cache, allowedOrigin string) http.Handler {
	path, h := server.NewDictionaryServiceHandler(server.NewDictionaryHandler(cache))

	mux := http.NewServeMux()
	mux.Handle(path, h)

	handler := h2c.NewHandler(mux, &http2.Server{})
	if allowedOrigin == "" {
		return handler
	}
	return server.CORS(allowedOrigin, handler)
}

// serve runs the server until ctx is done, then drains in-flight requests.
func serve(ctx context.Context, listener net.Listener, handler http.Handler, shutdownTimeout time.Duration) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Default().Info("starting server",
			"address", listener.Addr().String(),
		)
		serveErr <- httpServer.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("httpServer.Serve > %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpServer.Shutdown > %w", err)
	}
	slog.Default().Info("server stopped")
	return nil
}
