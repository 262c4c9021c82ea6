// Package config loads the optional defaults file and .env file read before flags are applied.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted for credentials.
const (
	EnvToken = "CF_DDNS_TOKEN"
	EnvEmail = "CF_DDNS_EMAIL"
)

// File mirrors the command line flags. Empty fields leave the flag default in place.
type File struct {
	Domain      string   `yaml:"domain"`
	Subdomain   string   `yaml:"subdomain"`
	Email       string   `yaml:"email"`
	Type        string   `yaml:"type"`
	CFMode      string   `yaml:"cf_mode"`
	IPServices  []string `yaml:"ip_services"`
	Interfaces  []string `yaml:"interfaces"`
	LogLevel    string   `yaml:"log_level"`
	LogFile     string   `yaml:"log_file"`
	KeyFile     string   `yaml:"key_file"`
	LockFile    string   `yaml:"lock_file"`
	MetricsFile string   `yaml:"metrics_file"`
	Interval    string   `yaml:"interval"`
}

// DefaultPath returns the per-user config file location, e.g. ~/.config/cf-ddns/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cf-ddns", "config.yaml")
}

// Load reads the config file at path.
//
// A missing file yields an empty File unless required is set.
// ${VAR} references in values are expanded from the environment.
func Load(path string, required bool) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.expand()
	return &cfg, nil
}

func (f *File) expand() {
	for _, s := range []*string{
		&f.Domain, &f.Subdomain, &f.Email, &f.Type, &f.CFMode, &f.LogLevel,
		&f.LogFile, &f.KeyFile, &f.LockFile, &f.MetricsFile, &f.Interval,
	} {
		*s = os.ExpandEnv(*s)
	}
	for i := range f.IPServices {
		f.IPServices[i] = os.ExpandEnv(f.IPServices[i])
	}
	for i := range f.Interfaces {
		f.Interfaces[i] = os.ExpandEnv(f.Interfaces[i])
	}
}

// LoadEnv loads .env files into the process environment without overriding variables that are already set.
// With no arguments it loads ./.env. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}
