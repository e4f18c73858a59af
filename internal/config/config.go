package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MASK_POLL_STATUS_INTERVAL=5ms.
const EnvPrefix = "MASK"

type Config struct {
	LogLevel     string         `mapstructure:"log_level"`
	Hotkey       string         `mapstructure:"hotkey"`
	HotkeyDarwin string         `mapstructure:"hotkey_darwin"`
	Simulate     bool           `mapstructure:"simulate"`
	Audio        AudioConfig    `mapstructure:"audio"`
	Identify     IdentifyConfig `mapstructure:"identify"`
	Poll         PollConfig     `mapstructure:"poll"`
	Video        VideoConfig    `mapstructure:"video"`
	Feed         FeedConfig     `mapstructure:"feed"`

	v *viper.Viper
}

type AudioConfig struct {
	SampleRate    int    `mapstructure:"sample_rate"` // 0 uses the device default
	FrameSize     int    `mapstructure:"frame_size"`
	InputDevice   string `mapstructure:"input_device"`
	InputChannels int    `mapstructure:"input_channels"`
	OutputDevice  string `mapstructure:"output_device"`
	Monitor       bool   `mapstructure:"monitor"`
}

type IdentifyConfig struct {
	WorkDir       string        `mapstructure:"work_dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ClipLength    time.Duration `mapstructure:"clip_length"`
	RecognizerURL string        `mapstructure:"recognizer_url"`
}

type PollConfig struct {
	TextInterval   time.Duration `mapstructure:"text_interval"`
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

type VideoConfig struct {
	Delay   time.Duration `mapstructure:"delay"`
	Table   string        `mapstructure:"table"`
	Sources []AssetSource `mapstructure:"sources"`
}

// AssetSource is a downloadable asset, Path relative to the work dir.
type AssetSource struct {
	Path string `mapstructure:"path"`
	URL  string `mapstructure:"url"`
}

type FeedConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the feed
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("hotkey", "Alt+Space")
	v.SetDefault("hotkey_darwin", "Alt+Space") // Option+Space
	v.SetDefault("simulate", false)

	v.SetDefault("audio.sample_rate", 0)
	v.SetDefault("audio.frame_size", 4800)
	v.SetDefault("audio.input_device", "")
	v.SetDefault("audio.input_channels", 1)
	v.SetDefault("audio.output_device", "")
	v.SetDefault("audio.monitor", false)

	v.SetDefault("identify.work_dir", "")
	v.SetDefault("identify.timeout", "15s")
	v.SetDefault("identify.clip_length", "5s")
	v.SetDefault("identify.recognizer_url", "http://127.0.0.1:8765/identify")

	v.SetDefault("poll.text_interval", "250ms")
	v.SetDefault("poll.status_interval", "10ms")

	v.SetDefault("video.delay", "2500ms")
	v.SetDefault("video.table", "")
	v.SetDefault("video.sources", []map[string]string{})

	v.SetDefault("feed.addr", "")
}

// Load reads the config at path, or at ConfigPath() when path is empty.
// A missing file yields the defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Identify.WorkDir == "" {
		cfg.Identify.WorkDir = DataPath()
	}
	return cfg, nil
}

// Validate rejects settings the session cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must not be negative, got %d", c.Audio.SampleRate))
	}
	if c.Audio.FrameSize < 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size must not be negative, got %d", c.Audio.FrameSize))
	}
	if c.Audio.InputChannels < 1 {
		errs = append(errs, fmt.Errorf("audio.input_channels must be at least 1, got %d", c.Audio.InputChannels))
	}
	if c.Identify.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("identify.timeout must be positive, got %s", c.Identify.Timeout))
	}
	if c.Identify.ClipLength <= 0 {
		errs = append(errs, fmt.Errorf("identify.clip_length must be positive, got %s", c.Identify.ClipLength))
	}
	if c.Poll.TextInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll.text_interval must be positive, got %s", c.Poll.TextInterval))
	}
	if c.Poll.StatusInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll.status_interval must be positive, got %s", c.Poll.StatusInterval))
	}
	if c.Video.Delay < 0 {
		errs = append(errs, fmt.Errorf("video.delay must not be negative, got %s", c.Video.Delay))
	}
	for i, src := range c.Video.Sources {
		if src.Path == "" || src.URL == "" {
			errs = append(errs, fmt.Errorf("video.sources[%d]: path and url are required", i))
		}
	}

	return errors.Join(errs...)
}

// Settings returns the resolved key/value tree, including environment
// overrides.
func (c *Config) Settings() map[string]any {
	if c.v == nil {
		return map[string]any{}
	}
	return c.v.AllSettings()
}

// Save writes the resolved settings to path.
func (c *Config) Save(path string) error {
	if c.v == nil {
		return errors.New("config: not loaded")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return c.v.WriteConfigAs(path)
}

// SetInputDevice changes the capture device for the next Save.
func (c *Config) SetInputDevice(name string) {
	c.Audio.InputDevice = name
	if c.v != nil {
		c.v.Set("audio.input_device", name)
	}
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// SourceMap returns the download sources keyed by relative path.
func (c *Config) SourceMap() map[string]string {
	out := make(map[string]string, len(c.Video.Sources))
	for _, src := range c.Video.Sources {
		out[src.Path] = src.URL
	}
	return out
}

// ConfigPath returns the platform-specific config file path
func ConfigPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "mask-tray", "config.json")
}

// DataPath returns the platform-specific working directory for identify
// scratch files and video assets.
func DataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "mask-tray")
}
