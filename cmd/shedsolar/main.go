// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// shedsolar is the battery-box thermostat's process entry point: it
// loads configuration, registers the board's fixed GPIO/SPI wiring, builds a
// *core.Core, serves /metrics, and runs until signaled. Process-supervision
// concerns (systemd units, daemonizing, log rotation) are left to whatever
// wraps this binary in production.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shedsolar/shedsolar/internal/collab"
	"github.com/shedsolar/shedsolar/internal/config"
	"github.com/shedsolar/shedsolar/internal/conn/gpio"
	"github.com/shedsolar/shedsolar/internal/conn/gpio/gpioreg"
	"github.com/shedsolar/shedsolar/internal/conn/spi/spireg"
	"github.com/shedsolar/shedsolar/internal/core"
	"github.com/shedsolar/shedsolar/internal/host/rpi"
	"github.com/shedsolar/shedsolar/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var weatherMQTTBroker string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "shedsolar",
		Short: "Battery-box thermostat control firmware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, weatherMQTTBroker, verbose)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "/etc/shedsolar/config.yaml", "path to the YAML configuration file")
	cmd.Flags().StringVar(&weatherMQTTBroker, "weather-mqtt-broker", "", "override the configured MQTT broker for the reference weather adapter (empty keeps the configured broker)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	return cmd
}

func run(ctx context.Context, configPath, weatherMQTTBroker string, verbose bool) error {
	log := newLogger(verbose)

	cfg, err := loadConfig(configPath, log)
	if err != nil {
		return err
	}

	if err := rpi.Register(); err != nil {
		return fmt.Errorf("shedsolar: registering board pins: %w", err)
	}

	hw, err := buildHW(cfg, weatherMQTTBroker, log)
	if err != nil {
		return fmt.Errorf("shedsolar: building hardware surface: %w", err)
	}

	c, err := core.New(cfg, hw, log)
	if err != nil {
		return fmt.Errorf("shedsolar: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go serveMetrics(ctx, c, cfg.Metrics.ListenAddr, log)

	log.Info().Str("config", configPath).Msg("shedsolar starting")
	return c.Run(ctx)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func loadConfig(path string, log zerolog.Logger) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("shedsolar: loading config: %w", err)
	}
	log.Info().Str("path", path).Msg("config loaded")
	return cfg, nil
}

// buildHW opens the board's registered SPI ports and digital pins and
// assembles the optional collaborator producers. A nil
// Weather producer is valid: the core simply leaves that InfoView
// permanently stale and the heater supervisor's NoTemps controller falls
// back to the ambient (reference-junction) reading.
func buildHW(cfg config.Config, weatherMQTTBrokerOverride string, log zerolog.Logger) (core.HW, error) {
	batterySPI, err := spireg.Open(rpi.BatterySPI)
	if err != nil {
		return core.HW{}, fmt.Errorf("battery thermocouple SPI: %w", err)
	}
	heaterSPI, err := spireg.Open(rpi.HeaterSPI)
	if err != nil {
		return core.HW{}, fmt.Errorf("heater thermocouple SPI: %w", err)
	}

	ssrDrive, ok := gpioreg.ByName(rpi.SSRDrive).(gpio.PinOut)
	if !ok {
		return core.HW{}, fmt.Errorf("ssr drive pin %q not registered as an output", rpi.SSRDrive)
	}
	ssrSense, ok := gpioreg.ByName(rpi.SSRSense).(gpio.PinIn)
	if !ok {
		return core.HW{}, fmt.Errorf("ssr sense pin %q not registered as an input", rpi.SSRSense)
	}
	heaterLED, ok := gpioreg.ByName(rpi.HeaterLED).(gpio.PinOut)
	if !ok {
		return core.HW{}, fmt.Errorf("heater LED pin %q not registered as an output", rpi.HeaterLED)
	}
	batteryLED, ok := gpioreg.ByName(rpi.BatteryLED).(gpio.PinOut)
	if !ok {
		return core.HW{}, fmt.Errorf("battery LED pin %q not registered as an output", rpi.BatteryLED)
	}

	hw := core.HW{
		BatterySPI: batterySPI,
		HeaterSPI:  heaterSPI,
		SSRDrive:   ssrDrive,
		SSRSense:   ssrSense,
		HeaterLED:  heaterLED,
		BatteryLED: batteryLED,
	}

	broker := cfg.MQTT.Broker
	if weatherMQTTBrokerOverride != "" {
		broker = weatherMQTTBrokerOverride
	}
	if broker != "" {
		hw.Weather = &collab.MQTTWeatherProducer{
			Broker:   broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Log:      log.With().Str("component", "weather").Logger(),
		}
	}

	return hw, nil
}

// serveMetrics mounts the Prometheus handler and drains the InfoView change
// feed onto it until ctx is canceled. A listener failure is logged,
// not fatal: the control loop must keep running even if observability
// can't bind its port.
func serveMetrics(ctx context.Context, c *core.Core, addr string, log zerolog.Logger) {
	go c.MetricsRegistry().Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
	}
}
