// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName       = "cwkey"
	ConfigType    = "yaml"
	DefaultConfig = `# CW Key Decoder Configuration

# Serial link to the CW Hotline hardware
port: "/dev/tty.usbserial-11240"   # Device path (COM3 etc. on Windows)
baud: 115200                       # Line rate
read_timeout_ms: 100               # Bounded serial read; drives the polling tick

# Pulse classification
noise_floor_ms: 30     # Pulses shorter than this are key bounce / glitches
tolerance_ms: 50       # +/- window for matching a learned dot or dash

# Boundary detection (in multiples of the learned dot duration)
char_gap_ratio: 2.5    # Pause that ends the current character (ITU: 3 units)
word_gap_ratio: 6.0    # Pause that additionally inserts a space (ITU: 7 units)
idle_timeout_ms: 1500  # Inactivity that force-completes a character

# Output
output_case: "lower"   # "upper" or "lower"
type_mode: false       # Forward each decoded character as a keystroke
quiet: false           # Suppress status output
debug: false           # Enable debug logging
dump_hex: false        # Raw hex/ASCII dump of serial bytes (bypasses decoding)

# Sidetone (beep per decoded element)
sidetone_enabled: false
sidetone_frequency: 600       # Hz
sidetone_sample_rate: 48000   # Hz
`
)

// Settings holds all application configuration
type Settings struct {
	// Serial link
	Port          string `mapstructure:"port"`
	Baud          int    `mapstructure:"baud"`
	ReadTimeoutMs int    `mapstructure:"read_timeout_ms"`

	// Pulse classification
	NoiseFloorMs int `mapstructure:"noise_floor_ms"`
	ToleranceMs  int `mapstructure:"tolerance_ms"`

	// Boundary detection
	CharGapRatio  float64 `mapstructure:"char_gap_ratio"`
	WordGapRatio  float64 `mapstructure:"word_gap_ratio"`
	IdleTimeoutMs int     `mapstructure:"idle_timeout_ms"`

	// Output
	OutputCase string `mapstructure:"output_case"`
	TypeMode   bool   `mapstructure:"type_mode"`
	Quiet      bool   `mapstructure:"quiet"`
	Debug      bool   `mapstructure:"debug"`
	DumpHex    bool   `mapstructure:"dump_hex"`

	// Sidetone
	SidetoneEnabled    bool    `mapstructure:"sidetone_enabled"`
	SidetoneFrequency  float64 `mapstructure:"sidetone_frequency"`
	SidetoneSampleRate int     `mapstructure:"sidetone_sample_rate"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/cwkey/
func Init() error {
	// Set defaults
	viper.SetDefault("port", defaultPort())
	viper.SetDefault("baud", 115200)
	viper.SetDefault("read_timeout_ms", 100)
	viper.SetDefault("noise_floor_ms", 30)
	viper.SetDefault("tolerance_ms", 50)
	viper.SetDefault("char_gap_ratio", 2.5)
	viper.SetDefault("word_gap_ratio", 6.0)
	viper.SetDefault("idle_timeout_ms", 1500)
	viper.SetDefault("output_case", "lower")
	viper.SetDefault("type_mode", false)
	viper.SetDefault("quiet", false)
	viper.SetDefault("debug", false)
	viper.SetDefault("dump_hex", false)
	viper.SetDefault("sidetone_enabled", false)
	viper.SetDefault("sidetone_frequency", 600)
	viper.SetDefault("sidetone_sample_rate", 48000)

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		// Try config.yaml as fallback
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config found - create default in ~/.config/cwkey/
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			// Read the newly created config
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func defaultPort() string {
	if os.PathSeparator == '\\' {
		return "COM3"
	}
	return "/dev/tty.usbserial-11240"
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Serial link
	if s.Port == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if s.Baud < 300 || s.Baud > 4000000 {
		errs = append(errs, fmt.Errorf("baud must be between 300 and 4000000, got %d", s.Baud))
	}
	if s.ReadTimeoutMs < 10 || s.ReadTimeoutMs > 1000 {
		errs = append(errs, fmt.Errorf("read_timeout_ms must be between 10 and 1000, got %d", s.ReadTimeoutMs))
	}

	// Pulse classification
	if s.NoiseFloorMs < 0 || s.NoiseFloorMs > 1000 {
		errs = append(errs, fmt.Errorf("noise_floor_ms must be between 0 and 1000, got %d", s.NoiseFloorMs))
	}
	if s.ToleranceMs < 1 || s.ToleranceMs > 1000 {
		errs = append(errs, fmt.Errorf("tolerance_ms must be between 1 and 1000, got %d", s.ToleranceMs))
	}

	// Boundary detection
	if s.CharGapRatio <= 1 {
		errs = append(errs, fmt.Errorf("char_gap_ratio must be greater than 1, got %v", s.CharGapRatio))
	}
	if s.WordGapRatio < s.CharGapRatio {
		errs = append(errs, fmt.Errorf("word_gap_ratio (%v) must not be below char_gap_ratio (%v)", s.WordGapRatio, s.CharGapRatio))
	}
	if s.IdleTimeoutMs < 100 || s.IdleTimeoutMs > 60000 {
		errs = append(errs, fmt.Errorf("idle_timeout_ms must be between 100 and 60000, got %d", s.IdleTimeoutMs))
	}

	// The idle timeout must outlast the read timeout or every quiet tick
	// would complete the character in progress
	if s.IdleTimeoutMs <= s.ReadTimeoutMs {
		errs = append(errs, fmt.Errorf("idle_timeout_ms (%d) must exceed read_timeout_ms (%d)", s.IdleTimeoutMs, s.ReadTimeoutMs))
	}

	// Output
	if s.OutputCase != "upper" && s.OutputCase != "lower" {
		errs = append(errs, fmt.Errorf("output_case must be \"upper\" or \"lower\", got %q", s.OutputCase))
	}

	// Sidetone
	if s.SidetoneFrequency < 100 || s.SidetoneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("sidetone_frequency must be between 100 and 3000 Hz, got %v", s.SidetoneFrequency))
	}
	if s.SidetoneSampleRate < 8000 || s.SidetoneSampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sidetone_sample_rate must be between 8000 and 192000 Hz, got %d", s.SidetoneSampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
