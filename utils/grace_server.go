package utils

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = DefaultReadTimeout
	DefaultShutdownTimeout = 30 * time.Second
)

// GraceServer serves handler on addr until SIGINT or SIGTERM, then drains in-flight
// requests for up to DefaultShutdownTimeout. onShutdown runs after the listener is closed.
func GraceServer(addr string, handler http.Handler, onShutdown func()) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       DefaultReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      DefaultWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case sig := <-sigCh:
		Sugar.Infof("received %s, graceful shutting down HTTP server", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	if err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	if onShutdown != nil {
		onShutdown()
	}
	return err
}
