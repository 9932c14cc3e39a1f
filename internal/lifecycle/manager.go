package lifecycle

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns the server's bind/serve/shutdown lifecycle: it clears the
// well-known port, binds it, serves until the context is cancelled, and
// shuts down gracefully. Stop is idempotent.
type Manager struct {
	host      string
	port      int
	reclaimer *Reclaimer
	logger    *zap.Logger

	srv      *http.Server
	stopOnce sync.Once
	stopErr  error
}

func NewManager(host string, port int, handler http.Handler, reclaimer *Reclaimer, logger *zap.Logger) *Manager {
	return &Manager{
		host:      host,
		port:      port,
		reclaimer: reclaimer,
		logger:    logger,
		srv: &http.Server{
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Run reclaims the port if needed, binds it, and serves until ctx is
// cancelled. It returns nil on a clean shutdown.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.reclaimer.EnsureFree(ctx, m.host, m.port); err != nil {
		return err
	}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("listening", zap.String("addr", addr))
		if err := m.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return m.Stop()
	}
}

// Stop shuts the server down gracefully, releasing the port. Safe to call
// more than once and before Run.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.stopErr = m.srv.Shutdown(ctx)
		m.logger.Info("stopped")
	})
	return m.stopErr
}
