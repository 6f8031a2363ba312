// Command h1server is a minimal demonstration server wiring the engine end
// to end: h1.Connection per accepted net.Conn, dispatch.ServeH1 driving a
// fixed echo Service, zap structured logging, and a Prometheus metrics
// endpoint. Grounded on the teacher's cli/ + server_handler.go for the
// overall "accept loop spawns one goroutine per connection" shape, and on
// aws-karpenter-provider-aws for the cobra command-plus-flags layout.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperium/hyper-sub003/dispatch"
	"github.com/hyperium/hyper-sub003/h1"
	"github.com/hyperium/hyper-sub003/message"
	"github.com/hyperium/hyper-sub003/metrics"
	"github.com/hyperium/hyper-sub003/rt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, metricsAddr string
	cmd := &cobra.Command{
		Use:   "h1server",
		Short: "Serve HTTP/1.1 connections with a fixed echo service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), addr, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	cmd.SilenceUsage = true
	return cmd
}

func run(ctx context.Context, addr, metricsAddr string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := metrics.New()
	reg.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	logger.Info("listening", zap.String("addr", addr))

	go serveMetrics(ctx, metricsAddr, logger)

	svc := dispatch.ServiceFunc(echoService)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Warn("accept failed", zap.Error(err))
				continue
			}
		}
		reg.H1ActiveConnections.Inc()
		conn := h1.NewConnection(rt.NewNetConn(nc, 0), h1.RoleServer, h1.DefaultConnOptions(true))
		go func() {
			defer reg.H1ActiveConnections.Dec()
			if err := dispatch.ServeH1(ctx, conn, svc, dispatch.ServerOptions{Logger: logger, Metrics: reg}); err != nil {
				logger.Debug("connection ended", zap.Error(err))
			}
		}()
	}
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

// echoService answers every request with a 200 that mirrors the request
// body back to the caller, just enough behavior to exercise the full
// head-parse -> body-pipe -> response-write path end to end.
func echoService(ctx context.Context, req *dispatch.Message) (*dispatch.Message, error) {
	head := &message.Head{
		Proto:   message.Version11,
		Subject: message.StatusSubject{Code: 200, Reason: "OK"},
	}
	return &dispatch.Message{Head: head, Body: req.Body}, nil
}
