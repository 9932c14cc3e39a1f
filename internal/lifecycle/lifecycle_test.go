package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestEnsureFreeOnFreePort(t *testing.T) {
	r := NewReclaimer(true, zap.NewNop())
	err := r.EnsureFree(context.Background(), "127.0.0.1", freePort(t))
	assert.NoError(t, err)
}

func TestEnsureFreeDisabledConflict(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	r := NewReclaimer(false, zap.NewNop())
	err = r.EnsureFree(context.Background(), "127.0.0.1", port)

	var conflict *PortConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, port, conflict.Port)
	assert.Contains(t, conflict.Reason, "disabled")
}

func TestManagerServesAndStopsCleanly(t *testing.T) {
	port := freePort(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	m := NewManager("127.0.0.1", port, handler, NewReclaimer(false, zap.NewNop()), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Wait until the server answers.
	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err, "interrupt must produce a clean shutdown")
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStopIdempotent(t *testing.T) {
	m := NewManager("127.0.0.1", freePort(t), http.NewServeMux(), NewReclaimer(false, zap.NewNop()), zap.NewNop())

	assert.NoError(t, m.Stop())
	assert.NoError(t, m.Stop())
}

func TestRunFailsWhenPortHeldAndReclaimDisabled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	m := NewManager("127.0.0.1", port, http.NewServeMux(), NewReclaimer(false, zap.NewNop()), zap.NewNop())

	err = m.Run(context.Background())
	var conflict *PortConflictError
	require.True(t, errors.As(err, &conflict))
}
