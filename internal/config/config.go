// Package config loads the TOML settings file shared by the three
// thumb2* command-line tools: a defaulted struct, an optional override
// file, and a platform-specific default location.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every tool's settings under its own TOML table.
type Config struct {
	Capture struct {
		RomBase    uint32 `toml:"rom_base"`
		RamBase    uint32 `toml:"ram_base"`
		RamSize    uint32 `toml:"ram_size"`
		MaxInsns   uint64 `toml:"max_insns"`
		Decimation uint64 `toml:"decimation"`
		Emulator   string `toml:"emulator"` // "qemu" or "t2sim"
		SocketPath string `toml:"socket_path"`
	} `toml:"capture"`

	Compare struct {
		DisasmTool string `toml:"disasm_tool"`
	} `toml:"compare"`

	Generate struct {
		PackageName string `toml:"package_name"`
		OutputFile  string `toml:"output_file"`
	} `toml:"generate"`

	LiveFeed struct {
		Enabled    bool   `toml:"enabled"`
		ListenAddr string `toml:"listen_addr"`
	} `toml:"livefeed"`
}

// DefaultConfig returns a configuration with every tool's defaults filled
// in.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Capture.RomBase = 0x08000000
	cfg.Capture.RamBase = 0x20000000
	cfg.Capture.RamSize = 0x10000
	cfg.Capture.MaxInsns = 1_000_000
	cfg.Capture.Decimation = 1
	cfg.Capture.Emulator = "qemu"
	cfg.Capture.SocketPath = "/tmp/thumb2trace.gdb.sock"

	cfg.Compare.DisasmTool = "arm-none-eabi-objdump"

	cfg.Generate.PackageName = "decodergen"
	cfg.Generate.OutputFile = "decode_generated.go"

	cfg.LiveFeed.Enabled = false
	cfg.LiveFeed.ListenAddr = ":8765"

	return cfg
}

// ConfigPath returns the platform-specific config file location.
func ConfigPath() string {
	var dir string
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("APPDATA")
		if dir == "" {
			dir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		dir = filepath.Join(dir, "thumb2trace")
	case "darwin", "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "thumb2trace.toml"
		}
		dir = filepath.Join(home, ".config", "thumb2trace")
	default:
		return "thumb2trace.toml"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "thumb2trace.toml"
	}
	return filepath.Join(dir, "config.toml")
}

// Load reads the default config file location, falling back to defaults
// when it doesn't exist.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads and parses the named TOML file, falling back to defaults
// when it doesn't exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes the configuration to the named file as TOML.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("config: encoding %s: %w", path, err)
	}
	return nil
}
