// Command slircd runs the IRC daemon: it loads configuration, builds
// the Matrix, starts the configured listeners, and shuts down
// gracefully on SIGINT/SIGTERM. Grounded on cmd/dircd/main.go's
// context.WithCancel + conc.WaitGroup + signal.Notify shape.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sid3xyz/slircd-ng/internal/config"
	"github.com/sid3xyz/slircd-ng/internal/listener"
	"github.com/sid3xyz/slircd-ng/internal/matrix"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "slircd.toml", "path to the server's TOML configuration file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&formatter.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        true,
		FieldsOrder:     []string{"component", "sub-component"},
	})
	log := logger.WithField("component", "main")

	mainContext, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	loader := config.FileLoader{Path: *configPath}
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	m, err := matrix.Build(mainContext, cfg, matrix.Deps{
		Registerer:    prometheus.DefaultRegisterer,
		HistoryDBPath: cfg.HistoryDBPath,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	srv := listener.New(m, log)
	if err := srv.Listen(); err != nil {
		log.Fatalf("failed to start listeners: %v", err)
	}

	m.Go(func() {
		<-mainContext.Done()
	})

	killSignals := make(chan os.Signal, 1)
	signal.Notify(killSignals, syscall.SIGINT, syscall.SIGTERM)

	sig := <-killSignals
	log.Infof("initiating server shutdown, received signal: %s", sig)
	shutdown()
	srv.Close()

	if err := m.Shutdown(shutdownTimeout); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Info("server shutdown complete")
}
