package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dropDatabas3/licensegate/internal/observability/logger"
)

// Serve atiende en srv hasta que ctx se cancele, y después hace un shutdown
// ordenado con timeout.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return ServeListener(ctx, srv, ln, shutdownTimeout)
}

// ServeListener es Serve sobre un listener ya abierto.
func ServeListener(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	log := logger.L().With(logger.Component("http.server"))
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("http server shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
