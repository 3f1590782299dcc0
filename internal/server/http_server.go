package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// CreateServer wraps the handler in an http.Server with production timeouts.
// The read/write timeouts only cover the upgrade handshake; gorilla hijacks
// the connection afterwards and the pumps manage their own deadlines.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully stops the HTTP server, waiting up to timeout for
// in-flight requests.
func ShutdownServer(srv *http.Server, timeout time.Duration, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
		return err
	}
	log.Info("http server shutdown complete")
	return nil
}
