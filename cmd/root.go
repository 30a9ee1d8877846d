// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/cwkey/internal/cli/listen"
	"github.com/ColonelBlimp/cwkey/internal/config"
	"github.com/ColonelBlimp/cwkey/internal/cw"
	"github.com/ColonelBlimp/cwkey/internal/keys"
	"github.com/ColonelBlimp/cwkey/internal/serial"
	"github.com/ColonelBlimp/cwkey/internal/sidetone"
)

var rootCmd = &cobra.Command{
	Use:   "cwkey",
	Short: "Decode telegraph key pulses from a serial link into text",
	Long: `Listens to a CW Hotline (or compatible) device that reports key-down
pulse durations over serial, adaptively learns the operator's dot and dash
timing and decodes the stream into characters, optionally forwarding them
as keystrokes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runListen(cmd.Context())
	},
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("port", "p", "", "serial port (e.g. /dev/tty.usbserial-11240 or COM3)")
	rootCmd.PersistentFlags().IntP("baud", "b", 115200, "baud rate")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress status output")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")
	rootCmd.Flags().Bool("type", false, "forward decoded characters as keystrokes")
	rootCmd.Flags().Bool("dump-hex", false, "dump raw serial bytes as hex and exit decoding")

	// Bind flags to viper
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("baud", rootCmd.PersistentFlags().Lookup("baud"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("type_mode", rootCmd.Flags().Lookup("type"))
	viper.BindPFlag("dump_hex", rootCmd.Flags().Lookup("dump-hex"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the stderr logger; decoded text goes to stdout so the
// two streams never interleave.
func newLogger(s *config.Settings) *slog.Logger {
	level := slog.LevelInfo
	if s.Debug {
		level = slog.LevelDebug
	}
	if s.Quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEngine assembles the decode engine from validated settings.
func newEngine(s *config.Settings) (*cw.Engine, error) {
	caseMode := cw.CaseLower
	if s.OutputCase == "upper" {
		caseMode = cw.CaseUpper
	}

	var injector cw.KeyInjector
	if s.TypeMode {
		wi, err := keys.NewWriterInjector(os.Stdout)
		if err != nil {
			return nil, err
		}
		injector = wi
	}

	return cw.NewEngine(cw.EngineConfig{
		Classifier: cw.ClassifierConfig{
			NoiseFloorMs: s.NoiseFloorMs,
			ToleranceMs:  s.ToleranceMs,
		},
		Sink: cw.SinkConfig{
			Case:     caseMode,
			TypeMode: s.TypeMode,
		},
		CharGapRatio: s.CharGapRatio,
		WordGapRatio: s.WordGapRatio,
		IdleTimeout:  time.Duration(s.IdleTimeoutMs) * time.Millisecond,
	}, os.Stdout, injector)
}

func runListen(ctx context.Context) error {
	settings, err := config.Get()
	if err != nil {
		return err
	}
	logger := newLogger(settings)

	engine, err := newEngine(settings)
	if err != nil {
		return err
	}

	if settings.SidetoneEnabled {
		player, err := sidetone.New(sidetone.Config{
			Frequency:  settings.SidetoneFrequency,
			SampleRate: uint32(settings.SidetoneSampleRate),
		})
		if err != nil {
			return err
		}
		if err := player.Init(); err != nil {
			return err
		}
		if err := player.Start(); err != nil {
			_ = player.Close()
			return err
		}
		defer func() { _ = player.Close() }()
		engine.SetElementFunc(player.Element)
	}

	port, err := serial.Open(serial.Config{
		Name:        settings.Port,
		Baud:        settings.Baud,
		ReadTimeout: time.Duration(settings.ReadTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()

	loop, err := listen.New(port, engine, logger, os.Stdout, settings.DumpHex)
	if err != nil {
		return err
	}

	logger.Info("listening", "port", settings.Port, "baud", settings.Baud)
	return loop.Run(ctx)
}
