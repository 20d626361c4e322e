package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/tpmsrelay/internal/adapters/log"
	"github.com/bft-labs/tpmsrelay/internal/adapters/metrics"
	"github.com/bft-labs/tpmsrelay/internal/adapters/mqtt"
	"github.com/bft-labs/tpmsrelay/internal/adapters/serial"
	"github.com/bft-labs/tpmsrelay/internal/cliconfig"
	"github.com/bft-labs/tpmsrelay/internal/ports"
	"github.com/bft-labs/tpmsrelay/pkg/relay"
	"github.com/bft-labs/tpmsrelay/plugins/spoolcleanup"
	"github.com/bft-labs/tpmsrelay/plugins/statusserver"
)

const helpDescription = `
Decode Schrader TPMS transmissions captured by an OOK receiver and
retransmit each sensor's latest reading on a fixed schedule.

The receiver writes demodulated rows such as "{68}7f6703a38b20049490" into
files under the capture directory. Each decoded reading is queued per
sensor and re-sent to the serial transmitter up to max-retransmissions
times, interval apart. Readings and per-send status lines can also be
published to an MQTT broker.
`

var exampleUsage = strings.TrimSpace(`
  tpmsrelay --capture-dir /var/spool/tpms --serial-port /dev/ttyUSB0
  tpmsrelay --capture-dir ./captures --once --log-level debug
  tpmsrelay --config $HOME/.tpmsrelay/config.toml --status-addr :9464
  tpmsrelay ports
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "tpmsrelay",
		Short:         "Decode and retransmit TPMS sensor readings",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// TPMSRELAY_* override the file but not explicit flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.tpmsrelay/config.toml)")
	root.Flags().StringVar(&cfg.CaptureDir, "capture-dir", cfg.CaptureDir, "directory the receiver writes bit rows into")
	root.Flags().IntVar(&cfg.HandoffSize, "handoff-size", cfg.HandoffSize, "captured frames buffered ahead of the decoder")
	root.Flags().StringSliceVar(&cfg.Variants, "variants", cfg.Variants, "enabled decoders: classic, extended, manchester")

	root.Flags().IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "number of sensors held for retransmission")
	root.Flags().IntVar(&cfg.MaxRetransmissions, "max-retransmissions", cfg.MaxRetransmissions, "repeats after a reading's first send before it is retired (0 sends once)")
	root.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "spacing between retransmissions of one sensor")
	root.Flags().DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "queue polling period")
	if err := root.Flags().MarkHidden("tick"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	root.Flags().StringVar(&cfg.SerialPort, "serial-port", cfg.SerialPort, "transmitter serial device (dry run when empty)")
	root.Flags().IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "transmitter baud rate")

	root.Flags().StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL, e.g. tcp://localhost:1883 (disabled when empty)")
	root.Flags().StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
	root.Flags().StringVar(&cfg.MQTTUsername, "mqtt-username", cfg.MQTTUsername, "MQTT username")
	root.Flags().StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")
	root.Flags().IntVar(&cfg.MQTTQoS, "mqtt-qos", cfg.MQTTQoS, "MQTT publish QoS (0-2)")
	root.Flags().StringVar(&cfg.InstanceID, "instance-id", cfg.InstanceID, "relay instance ID (random when empty)")

	root.Flags().StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "HTTP status and metrics listen address (disabled when empty)")
	root.Flags().Int64Var(&cfg.SpoolMaxBytes, "spool-max-bytes", cfg.SpoolMaxBytes, "remove oldest capture files above this size (disabled when 0)")
	root.Flags().DurationVar(&cfg.SpoolCleanupTick, "spool-cleanup-interval", cfg.SpoolCleanupTick, "spool size check period")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "process the capture directory, drain the queue and exit")

	root.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := serial.ListPorts()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tpmsrelay: %v\n", err)
		os.Exit(1)
	}
}

// run wires the adapters selected by cfg into a relay and blocks until a
// signal arrives or, in once mode, the relay has drained.
func run(cfg cliconfig.Config) error {
	logger, err := cliconfig.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	logCfg := cfg
	if logCfg.MQTTPassword != "" {
		logCfg.MQTTPassword = "*****"
	}
	zl := logger.Logger()
	zl.Info().Interface("config", logCfg).Msg("configuration")
	zl.Debug().Interface("modules", relay.ModuleVersions()).Msg("module versions")

	recorder := metrics.NewRecorder()
	opts := []relay.Option{
		relay.WithLogger(logger),
		relay.WithMetrics(recorder),
	}

	if cfg.SerialPort != "" {
		sender := serial.NewSender(cfg.SerialPort, cfg.BaudRate, logAdapter.Component(logger, "serial"))
		defer sender.Close()
		opts = append(opts, relay.WithSender(sender))
	} else {
		logger.Warn("no serial port configured, transmitting in dry-run mode")
	}

	if cfg.MQTTBroker != "" {
		sink, err := mqtt.Dial(mqtt.Config{
			Broker:      cfg.MQTTBroker,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopic,
			QoS:         byte(cfg.MQTTQoS),
			InstanceID:  cfg.InstanceID,
		}, logAdapter.Component(logger, "mqtt"))
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer sink.Close()
		logger.Info("publishing telemetry", ports.String("broker", cfg.MQTTBroker), ports.String("instance", sink.InstanceID()))
		opts = append(opts, relay.WithTelemetry(sink))
	}

	if cfg.StatusAddr != "" {
		status := statusserver.Config{
			Addr:    cfg.StatusAddr,
			Metrics: recorder.Handler(),
		}
		if cfg.LogLevel == "debug" {
			status.AccessLog = os.Stderr
		}
		opts = append(opts, statusserver.WithStatusServer(status))
	}
	if cfg.SpoolMaxBytes > 0 {
		opts = append(opts, spoolcleanup.WithSpoolCleanup(spoolcleanup.Config{
			CheckInterval:  cfg.SpoolCleanupTick,
			HighWatermark:  cfg.SpoolMaxBytes,
			RunImmediately: true,
		}))
	}

	r, err := relay.New(relay.Config{
		CaptureDir:         cfg.CaptureDir,
		HandoffSize:        cfg.HandoffSize,
		Capacity:           cfg.Capacity,
		MaxRetransmissions: cfg.MaxRetransmissions,
		Interval:           cfg.Interval,
		TickInterval:       cfg.TickInterval,
		Variants:           cfg.Variants,
		Once:               cfg.Once,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create relay: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("start relay: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping")
	case <-r.Done():
		if r.Status() != relay.StateCrashed {
			logger.Info("capture drained, stopping")
		}
	}

	crashed := r.Status() == relay.StateCrashed
	if err := r.Stop(); err != nil {
		return fmt.Errorf("stop relay: %w", err)
	}
	if crashed {
		return errors.New("relay crashed")
	}
	return nil
}
