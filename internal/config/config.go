// Package config loads TOML configuration for the demo VMM shim and
// supports live reload of the settings that are safe to change at runtime.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// Config is the full demo configuration.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Devices DevicesConfig `toml:"devices"`
	Replay  ReplayConfig  `toml:"replay"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `toml:"level"`
}

// DevicesConfig sizes the simulated devices.
type DevicesConfig struct {
	QueueSize       int `toml:"queue_size"`
	PendingCapacity int `toml:"pending_capacity"`
}

// ReplayConfig shapes the scripted injection replay.
type ReplayConfig struct {
	KeyPresses  int  `toml:"key_presses"`
	MouseMoves  int  `toml:"mouse_moves"`
	WheelSteps  int  `toml:"wheel_steps"`
	UseEvBits   bool `toml:"dump_config_space"`
	ShowMetrics bool `toml:"show_metrics"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Devices: DevicesConfig{
			QueueSize:       64,
			PendingCapacity: 256,
		},
		Replay: ReplayConfig{
			KeyPresses:  4,
			MouseMoves:  8,
			WheelSteps:  2,
			UseEvBits:   true,
			ShowMetrics: true,
		},
	}
}

// Load reads the configuration at path. A missing file is not an error:
// the defaults are written there for the next run and returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML, creating the directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Watch reloads the file on every write and invokes onChange with the new
// configuration. Decode failures are skipped silently so a half-saved edit
// never clobbers the running settings. The returned stop function releases
// the watcher.
func Watch(path string, onChange func(*Config)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save and
	// a file-level watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg := Default()
				if _, err := toml.DecodeFile(path, cfg); err != nil {
					continue
				}
				onChange(cfg)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
