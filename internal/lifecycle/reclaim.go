package lifecycle

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// PortConflictError means the target port was occupied and could not be
// reclaimed (or reclamation was disabled).
type PortConflictError struct {
	Port   int
	Reason string
}

func (e *PortConflictError) Error() string {
	return fmt.Sprintf("port %d is in use: %s", e.Port, e.Reason)
}

// Reclaimer frees the server's well-known port from a stale previous run by
// killing whatever process holds it. This is deliberately destructive, so it
// logs every step and can be disabled outright (PORT_RECLAIM=false) for
// environments like CI where killing port owners is unsafe.
type Reclaimer struct {
	Enabled bool
	Grace   time.Duration // wait between SIGTERM and SIGKILL
	logger  *zap.Logger
}

func NewReclaimer(enabled bool, logger *zap.Logger) *Reclaimer {
	return &Reclaimer{Enabled: enabled, Grace: 2 * time.Second, logger: logger}
}

// EnsureFree checks whether anything is listening on port and, if so,
// terminates the owner. Returns a *PortConflictError when the port cannot
// be freed.
func (r *Reclaimer) EnsureFree(ctx context.Context, host string, port int) error {
	if !portOccupied(host, port) {
		return nil
	}

	if !r.Enabled {
		return &PortConflictError{Port: port, Reason: "reclamation disabled"}
	}

	pids, err := listeningPIDs(ctx, port)
	if err != nil {
		return &PortConflictError{Port: port, Reason: "cannot identify owner: " + err.Error()}
	}
	if len(pids) == 0 {
		return &PortConflictError{Port: port, Reason: "owner not found"}
	}

	r.logger.Warn("reclaiming port from stale process",
		zap.Int("port", port),
		zap.Ints("pids", pids))

	for _, pid := range pids {
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
			r.logger.Warn("SIGTERM failed", zap.Int("pid", pid), zap.Error(err))
		}
	}

	deadline := time.Now().Add(r.Grace)
	for portOccupied(host, port) {
		if time.Now().After(deadline) {
			for _, pid := range pids {
				r.logger.Warn("escalating to SIGKILL", zap.Int("pid", pid))
				_ = syscall.Kill(pid, syscall.SIGKILL)
			}
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	// Give the kernel a moment to tear the socket down after SIGKILL.
	for i := 0; i < 10 && portOccupied(host, port); i++ {
		time.Sleep(100 * time.Millisecond)
	}
	if portOccupied(host, port) {
		return &PortConflictError{Port: port, Reason: "owner survived reclamation"}
	}

	r.logger.Info("port reclaimed", zap.Int("port", port))
	return nil
}

func portOccupied(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), 250*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// listeningPIDs asks lsof (falling back to fuser) which processes hold the
// port's listening socket.
func listeningPIDs(ctx context.Context, port int) ([]int, error) {
	out, err := exec.CommandContext(ctx, "lsof", "-ti", fmt.Sprintf("tcp:%d", port), "-sTCP:LISTEN").Output()
	if err != nil {
		out, err = exec.CommandContext(ctx, "fuser", fmt.Sprintf("%d/tcp", port)).Output()
		if err != nil {
			return nil, fmt.Errorf("lsof/fuser unavailable: %w", err)
		}
	}

	var pids []int
	for _, field := range strings.Fields(string(out)) {
		pid, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
