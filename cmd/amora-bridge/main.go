// ABOUTME: Entry point for the device-side bridge
// ABOUTME: Loads YAML config, wires MPD into the bridge, handles signals
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpmarques19/amora-os/internal/log"
	"github.com/jpmarques19/amora-os/internal/mpdplayer"
	"github.com/jpmarques19/amora-os/pkg/bridge"
	"github.com/jpmarques19/amora-os/pkg/broker"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	brokerURL  = flag.String("broker", "localhost", "MQTT broker host")
	brokerPort = flag.Int("port", 0, "MQTT broker port (default 1883, 8883 with TLS)")
	deviceID   = flag.String("device", "amora-player-001", "Device ID")
	mpdHost    = flag.String("mpd-host", "localhost", "MPD host")
	mpdPort    = flag.Int("mpd-port", 6600, "MPD port")
	logLevel   = flag.String("log-level", "info", "Log level")
)

// fileConfig is the on-disk configuration shape.
type fileConfig struct {
	Broker broker.Config `yaml:"broker"`
	Device struct {
		ID string `yaml:"id"`
	} `yaml:"device"`
	MPD struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"mpd"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func main() {
	flag.Parse()

	cfg := fileConfig{}
	cfg.Broker.BrokerURL = *brokerURL
	cfg.Broker.Port = *brokerPort
	cfg.Device.ID = *deviceID
	cfg.MPD.Host = *mpdHost
	cfg.MPD.Port = *mpdPort
	cfg.Log.Level = *logLevel

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read config: %v\n", err)
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "parse config: %v\n", err)
			os.Exit(1)
		}
	}

	log.Configure(log.Config{Level: cfg.Log.Level})
	logger := log.WithComponent("main")

	cfg.Broker.DeviceID = cfg.Device.ID
	cfg.Broker.Logger = log.Base()

	p := mpdplayer.New(mpdplayer.Config{
		Host:   cfg.MPD.Host,
		Port:   cfg.MPD.Port,
		Logger: log.Base(),
	})
	defer p.Close()

	b, err := bridge.New(cfg.Broker, p)
	if err != nil {
		logger.Fatal().Err(err).Msg("build bridge")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = b.Start(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("start bridge")
	}
	logger.Info().Str("device_id", cfg.Device.ID).Msg("bridge running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("shutting down")
	b.Stop()
}
