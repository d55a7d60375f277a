package novasqlwire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bptreeidx/engine/internal/sql/executor"
)

// ServerConfig is the minimal set of knobs the TCP front-end needs: where to
// listen and where each session's table/index files live.
type ServerConfig struct {
	Addr    string
	Workdir string

	// DrainTimeout bounds how long Run waits for in-flight connections to
	// finish their current request after a shutdown signal before
	// returning anyway. Zero means wait indefinitely.
	DrainTimeout time.Duration
}

// Run listens on sc.Addr until ctx (via SIGINT/SIGTERM) is cancelled, then
// drains active connections before returning. Each accepted connection gets
// its own Executor — a fresh session means a fresh set of opened tables,
// matching the tree's single-threaded, non-reentrant contract (one
// Executor is never shared across goroutines).
func Run(sc ServerConfig) error {
	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() { _ = ln.Close() }()

	slog.Info("novasqlwire: server listening", "addr", sc.Addr, "workdir", sc.Workdir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return drain(&wg, sc.DrainTimeout)
			default:
			}
			slog.Warn("novasqlwire: accept failed", "err", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConn(ctx, conn, sc.Workdir)
		}()
	}
}

// drain waits for every handleConn goroutine tracked by wg to return, or
// for timeout to elapse (zero meaning no limit), whichever comes first.
func drain(wg *sync.WaitGroup, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return nil
	}
	select {
	case <-done:
	case <-time.After(timeout):
		slog.Warn("novasqlwire: drain timed out, connections still active", "timeout", timeout)
	}
	return nil
}

func handleConn(ctx context.Context, conn net.Conn, workdir string) {
	defer func() { _ = conn.Close() }()
	_ = conn.SetDeadline(time.Time{})

	ex := executor.NewExecutor(workdir)
	defer func() { _ = ex.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			// Client closed or sent a bad frame; nothing left to reply to.
			return
		}

		res, err := ex.ExecSQL(req.SQL)
		if err != nil {
			_ = WriteFrame(conn, ExecuteResponse{ID: req.ID, Error: err.Error()})
			continue
		}
		_ = WriteFrame(conn, ExecuteResponse{ID: req.ID, Result: res})
	}
}
