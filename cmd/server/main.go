// Command server runs the novasqlwire TCP front-end over a directory of
// heap/index files, one Executor per connection.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bptreeidx/engine/internal"
	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/server/novasqlwire"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "novasql.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := internal.LoadConfig(cfgPath)
	if err != nil {
		slog.Warn("server: no usable config, using defaults", "path", cfgPath, "err", err)
		cfg = internal.DefaultConfig()
	} else {
		internal.WatchConfig(cfgPath, func(next *internal.Config) {
			slog.Info("server: config file changed, server.debug updated, server.port picked up on next restart", "path", cfgPath)
			cfg.Server.Debug = next.Server.Debug
		})
	}

	addr := os.Getenv("NOVASQL_ADDR")
	if addr == "" {
		port := cfg.Server.Port
		if port == 0 {
			port = 6543
		}
		addr = fmt.Sprintf("127.0.0.1:%d", port)
	}

	workdir := cfg.Storage.Workdir
	if workdir == "" {
		workdir = "./data"
	}
	if err := os.MkdirAll(workdir, 0o755); err != nil {
		slog.Error("server: create workdir failed", "workdir", workdir, "err", err)
		os.Exit(ierrors.ExitCode(err))
	}

	drain := time.Duration(cfg.Server.DrainSeconds) * time.Second
	if drain <= 0 {
		drain = 5 * time.Second
	}
	if err := novasqlwire.Run(novasqlwire.ServerConfig{Addr: addr, Workdir: workdir, DrainTimeout: drain}); err != nil {
		slog.Error("server: exited with error", "err", err)
		os.Exit(ierrors.ExitCode(err))
	}
}
