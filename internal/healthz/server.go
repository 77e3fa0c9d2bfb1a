package healthz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const liveBody = "Bot is running!"

// Server exposes the hosting platform's liveness probe and the Prometheus
// metrics endpoint. It shares no state with the polling loop.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// New builds the health server for the given port.
func New(port int, logger zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "healthz").Logger(),
	}
}

// Handler returns the mux serving "/" and "/metrics".
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(liveBody))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	s.logger.Info().Str("addr", s.srv.Addr).Msg("health endpoint listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
