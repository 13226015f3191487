// Package config loads profilez settings from a TOML file, a .env file and
// PROFILEZ_* environment variables, in increasing order of precedence.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/zoobzio/profilez"
)

// Config is the full set of settings.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Profile ProfileConfig `toml:"profile"`
	Server  ServerConfig  `toml:"server"`
	Upload  UploadConfig  `toml:"upload"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// ProfileConfig controls the recorder.
type ProfileConfig struct {
	// Tags is a list of tag names or numeric masks, e.g. ["ui", "network"]
	// or ["0x6"].
	Tags       []string `toml:"tags"`
	Format     string   `toml:"format"`
	Output     string   `toml:"output"`
	BufferSize int      `toml:"buffer_size"`
}

// ServerConfig controls the trace receiver.
type ServerConfig struct {
	Listen string `toml:"listen"`
	DBPath string `toml:"db_path"`
}

// UploadConfig controls delivery of finished traces.
type UploadConfig struct {
	Endpoint string `toml:"endpoint"`
	Route    string `toml:"route"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Profile: ProfileConfig{
			Tags:       []string{"all"},
			Format:     string(profilez.FormatJSON),
			Output:     "profile.json",
			BufferSize: 64 << 10,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:8081",
			DBPath: "profilez.db",
		},
		Upload: UploadConfig{
			Route: "systrace",
		},
	}
}

// Load reads path (optional, may be empty or missing) on top of Default,
// then applies .env and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, errors.Annotatef(err, "parsing config %s", path)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Annotatef(err, "reading config %s", path)
		}
	}

	// A missing .env is fine.
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, errors.Trace(err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PROFILEZ_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("PROFILEZ_TAGS"); ok {
		c.Profile.Tags = splitList(v)
	}
	if v, ok := lookup("PROFILEZ_FORMAT"); ok {
		c.Profile.Format = v
	}
	if v, ok := lookup("PROFILEZ_OUTPUT"); ok {
		c.Profile.Output = v
	}
	if v, ok := lookup("PROFILEZ_BUFFER_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NotValidf("PROFILEZ_BUFFER_SIZE %q", v)
		}
		c.Profile.BufferSize = n
	}
	if v, ok := lookup("PROFILEZ_LISTEN"); ok {
		c.Server.Listen = v
	}
	if v, ok := lookup("PROFILEZ_DB_PATH"); ok {
		c.Server.DBPath = v
	}
	if v, ok := lookup("PROFILEZ_UPLOAD_ENDPOINT"); ok {
		c.Upload.Endpoint = v
	}
	if v, ok := lookup("PROFILEZ_UPLOAD_ROUTE"); ok {
		c.Upload.Route = v
	}
	return nil
}

// Validate checks values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := profilez.ParseFormat(c.Profile.Format); err != nil {
		return errors.Trace(err)
	}
	if _, err := c.Mask(); err != nil {
		return errors.Trace(err)
	}
	if c.Profile.BufferSize < 0 {
		return errors.NotValidf("buffer_size %d", c.Profile.BufferSize)
	}
	return nil
}

// Format returns the configured trace format.
func (c *Config) Format() profilez.Format {
	f, err := profilez.ParseFormat(c.Profile.Format)
	if err != nil {
		return profilez.FormatJSON
	}
	return f
}

var tagNames = map[string]profilez.Tag{
	"all":    profilez.TagAll,
	"always": profilez.TagAlways,
	"bridge": profilez.TagBridgeCalls,
	"net":    profilez.TagNetwork,
	"ui":     profilez.TagUI,
	"js":     profilez.TagJS,
}

// Mask combines the configured tags into one mask. An empty list records
// only TagAlways events.
func (c *Config) Mask() (profilez.Tag, error) {
	var mask profilez.Tag
	for _, name := range c.Profile.Tags {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "network" {
			name = "net"
		}
		if tag, ok := tagNames[name]; ok {
			mask |= tag
			continue
		}
		n, err := strconv.ParseUint(name, 0, 64)
		if err != nil {
			return 0, errors.NotValidf("profile tag %q", name)
		}
		mask |= n
	}
	return mask, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
