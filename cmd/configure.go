// cmd/configure.go
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/cwkey/internal/cli/wizard"
	"github.com/ColonelBlimp/cwkey/internal/config"
	"github.com/ColonelBlimp/cwkey/internal/serial"
)

// ErrNothingToConfigure indicates no setting change was requested
var ErrNothingToConfigure = errors.New("nothing to configure: use --speaker or --wpm")

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Change a setting on the connected device",
	Long: `Walks the device's interactive settings menu over the serial link and
changes a single setting, keeping all others. The device must be power
cycled afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		speaker, _ := cmd.Flags().GetString("speaker")
		wpm, _ := cmd.Flags().GetInt("wpm")
		return runConfigure(speaker, wpm)
	},
	SilenceUsage: true,
}

func init() {
	configureCmd.Flags().String("speaker", "", "set the device speaker: on or off")
	configureCmd.Flags().Int("wpm", 0, "set the device keyer speed in WPM")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(speaker string, wpm int) error {
	target, value, err := configureTarget(speaker, wpm)
	if err != nil {
		return err
	}

	settings, err := config.Get()
	if err != nil {
		return err
	}
	logger := newLogger(settings)

	port, err := serial.Open(serial.Config{
		Name:        settings.Port,
		Baud:        settings.Baud,
		ReadTimeout: time.Duration(settings.ReadTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer func() { _ = port.Close() }()

	w, err := wizard.New(port, logger, os.Stdout)
	if err != nil {
		return err
	}
	return w.Apply(target, value)
}

// configureTarget maps the flags to a menu index and value.
func configureTarget(speaker string, wpm int) (int, string, error) {
	switch {
	case speaker != "" && wpm != 0:
		return 0, "", errors.New("set either --speaker or --wpm, not both")
	case speaker == "on":
		return wizard.SpeakerIndex, "1", nil
	case speaker == "off":
		return wizard.SpeakerIndex, "0", nil
	case speaker != "":
		return 0, "", fmt.Errorf("invalid --speaker value %q: want on or off", speaker)
	case wpm < 0 || wpm > 60:
		return 0, "", fmt.Errorf("invalid --wpm value %d: want 1-60", wpm)
	case wpm > 0:
		return wizard.WPMIndex, fmt.Sprintf("%d", wpm), nil
	default:
		return 0, "", ErrNothingToConfigure
	}
}
