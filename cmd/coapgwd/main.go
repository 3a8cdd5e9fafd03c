// Copyright 2021 The Matrix.org Foundation C.I.C.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command coapgwd is the gateway daemon entry point: it loads config,
// binds the UDP ingress/egress, the Subscription gRPC façade, and the
// Prometheus metrics endpoint, then runs until signalled to stop. The
// flag-parsed-overrides-over-YAML-config and logrus bootstrap idiom is
// adapted from matrix-org-lb's cmd/proxy/main.go.
package main

import (
	"flag"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/coapmesh/gateway/internal/broker"
	"github.com/coapmesh/gateway/internal/config"
	"github.com/coapmesh/gateway/internal/duptrack"
	"github.com/coapmesh/gateway/internal/grpcapi"
	"github.com/coapmesh/gateway/internal/metrics"
	"github.com/coapmesh/gateway/internal/pipeline"
	"github.com/coapmesh/gateway/internal/transport"
)

var (
	configPath  = flag.String("config", "coapgwd.yaml", "Path to the gateway YAML config file")
	listenAddr  = flag.String("listen-addr", "", "Override config listen_addr (UDP bind address)")
	grpcAddr    = flag.String("grpc-addr", "", "Override config grpc_addr")
	metricsAddr = flag.String("metrics-addr", "", "Override config metrics_addr")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Panicf("failed to load config %q", *configPath)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	log := setupLogger(cfg)
	log.Infof("starting coapgwd: udp=%s grpc=%s metrics=%s", cfg.ListenAddr, cfg.GRPCAddr, cfg.MetricsAddr)

	if _, err := config.WatchLogLevel(*configPath, log); err != nil {
		log.WithError(err).Warn("config hot-reload watcher disabled")
	}

	b := broker.New()
	dup := duptrack.New(clockwork.NewRealClock())

	reg := prometheus.NewRegistry()
	collectors := metrics.New(reg, b)

	socket, err := transport.Listen(cfg.ListenAddr, log.WithField("component", "udp"))
	if err != nil {
		log.WithError(err).Panic("failed to bind UDP listener")
	}

	pl := &pipeline.Pipeline{
		Broker:    b,
		Dup:       dup,
		Egress:    socket,
		Metrics:   collectors,
		Log:       log.WithField("component", "pipeline"),
		DupWindow: cfg.DuplicateWindow,
	}

	go func() {
		if err := socket.Serve(pl); err != nil {
			log.WithError(err).Error("UDP receive loop terminated")
		}
	}()

	grpcServer := grpc.NewServer(grpc.ForceServerCodec(grpcapi.Codec()))
	grpcapi.Register(grpcServer, &grpcapi.Server{Broker: b, Log: log.WithField("component", "grpcapi")})

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.WithError(err).Panic("failed to bind gRPC listener")
	}
	go func() {
		if err := grpcServer.Serve(grpcLis); err != nil {
			log.WithError(err).Error("gRPC server terminated")
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server terminated")
		}
	}()

	waitForShutdown(log)

	log.Info("shutting down")
	grpcServer.GracefulStop()
	err = multierr.Combine(
		socket.Close(),
		metricsServer.Close(),
	)
	if err != nil {
		log.WithError(err).Warn("errors during shutdown")
	}
}

func waitForShutdown(log logrus.FieldLogger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Infof("received signal %s", sig)
}

// setupLogger wires logrus output through lumberjack rotation when a log
// file is configured, matching junbin-yang-dsoftbus-go's pairing of a
// structured logger with gopkg.in/natefinch/lumberjack.v2 for rotation
// (there paired with zap; the rotation concern is identical here with
// logrus).
func setupLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
		})
	}
	log.SetOutput(out)
	return log
}
