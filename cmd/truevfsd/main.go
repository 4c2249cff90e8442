// Command truevfsd is the management daemon of §6: a long-lived
// process hosting a kernel plus its Prometheus/JSON introspection
// surface over HTTP, exposing exactly the attribute set spec.md
// describes while excluding only the out-of-scope JMX transport.
//
// Grounded on the teacher's own cmd/serve family (a long-running
// server process wrapping a mounted remote) generalized here from
// serving file-protocol traffic to serving the kernel's own
// management HTTP surface; the explicit signal-driven shutdown
// mirrors cmd/mount's graceful-unmount-on-signal handling.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/truevfs/truevfs"
	"github.com/truevfs/truevfs/config"
	"github.com/truevfs/truevfs/internal/vfslog"
)

func main() {
	cfg := config.Default()
	fs := pflag.NewFlagSet("truevfsd", pflag.ExitOnError)
	cfg.RegisterFlags(fs)
	addr := fs.String("addr", ":8383", "address to serve /metrics and /debug/manager on")
	_ = fs.Parse(os.Args[1:])

	k, err := truevfs.New(cfg)
	if err != nil {
		vfslog.Errorf(nil, "truevfsd: %v", err)
		os.Exit(1)
	}

	srv := &http.Server{Addr: *addr, Handler: k.Metrics().Handler()}

	go func() {
		vfslog.Infof(nil, "truevfsd: serving management surface on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			vfslog.Errorf(nil, "truevfsd: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	vfslog.Infof(nil, "truevfsd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := k.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
