// godsmr-bridge reads a P1 serial port and fans decoded telegrams out to
// MQTT, a websocket feed, Prometheus metrics and a SQLite reading log.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meterhuis/godsmr/internal/bridge"
	"github.com/meterhuis/godsmr/internal/config"
	"github.com/meterhuis/godsmr/internal/feed"
	"github.com/meterhuis/godsmr/internal/meterlog"
	"github.com/meterhuis/godsmr/internal/metrics"
	"github.com/meterhuis/godsmr/pkg/dsmr"
)

var (
	rootCmd = &cobra.Command{
		Use:   "godsmr-bridge",
		Short: "Bridge a P1 smart meter to MQTT, websocket and Prometheus",
		Long: "godsmr-bridge reads DSMR 4 telegrams from the P1 serial port and " +
			"republishes them to an MQTT broker, a websocket feed, Prometheus " +
			"metrics and a SQLite reading log.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	configPath string
)

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "godsmr-bridge.toml", "path to the TOML config file")
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logrus.WithField("component", "bridge")

	port, err := serial.Open(serial.OpenOptions{
		PortName:        cfg.Serial.Device,
		BaudRate:        cfg.Serial.BaudRate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Serial.Device, err)
	}
	log.WithField("device", cfg.Serial.Device).Info("p1 port open")

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := feed.NewHub(logrus.WithField("component", "feed"))

	var pub *bridge.Publisher
	if cfg.MQTT.BrokerURL != "" {
		pub = bridge.New(bridge.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
		}, logrus.WithField("component", "mqtt"))
		if err := pub.Connect(); err != nil {
			port.Close()
			return err
		}
		defer pub.Close()
	}

	var store *meterlog.Store
	if cfg.Store.Path != "" {
		store, err = meterlog.Open(cfg.Store.Path)
		if err != nil {
			port.Close()
			return err
		}
		defer store.Close()
		log.WithField("path", cfg.Store.Path).Info("reading log open")
	}

	g, ctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.HTTP.ListenAddress != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/", serveStatus)
		mux.HandleFunc("/ws", hub.ServeWS)
		mux.HandleFunc("/latest", hub.ServeLatest)
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: cfg.HTTP.ListenAddress, Handler: mux}
		g.Go(func() error {
			log.WithField("addr", cfg.HTTP.ListenAddress).Info("http server listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
	}

	// Scan blocks inside the serial read; closing the port is what
	// actually unblocks the read loop on shutdown.
	g.Go(func() error {
		<-ctx.Done()
		port.Close()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}
		return nil
	})

	g.Go(func() error {
		sc := dsmr.NewScanner(port)
		sc.OnSkip(func(err error) {
			m.ObserveSkip(err)
			log.WithError(err).Debug("skipped input")
		})

		var doc bytes.Buffer
		var lastDiscarded uint64
		for sc.Scan() {
			tel := sc.Telegram()
			doc.Reset()
			if err := tel.Serialize(&doc); err != nil {
				return fmt.Errorf("serialize telegram: %w", err)
			}
			m.ObserveTelegram(&tel)
			if d := sc.Discarded(); d > lastDiscarded {
				m.DiscardedBytes.Add(float64(d - lastDiscarded))
				lastDiscarded = d
			}

			hub.Broadcast(doc.Bytes())
			if pub != nil {
				if err := pub.Publish(&tel); err != nil {
					m.PublishErrors.Inc()
					log.WithError(err).Warn("mqtt publish failed")
				}
			}
			if store != nil {
				reading := meterlog.Reading{
					ReceivedAt: time.Now().Unix(),
					DeviceID:   tel.DeviceID(),
					CRC:        tel.CRC(),
					Payload:    doc.String(),
				}
				if err := store.Insert(ctx, reading); err != nil {
					m.StoreErrors.Inc()
					log.WithError(err).Warn("reading log insert failed")
				}
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("read %s: %w", cfg.Serial.Device, err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("bridge stopped")
	return err
}

func serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"service": "godsmr-bridge",
		"status":  "running",
	})
}
