package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const localProfile = "local"

var errUnknownServer = errors.New("unknown server")

// ServerConfig is one bridge the CLI can talk to.
type ServerConfig struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
}

// Config is the CLI profile file, ~/.macroclock/config.yaml.
type Config struct {
	DefaultServer string                  `yaml:"default_server"`
	Servers       map[string]ServerConfig `yaml:"servers"`
	configPath    string
}

// LoadConfig loads the profile file from the user's home directory.
func LoadConfig(localURL string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(filepath.Join(home, ".macroclock", "config.yaml"), localURL)
}

// LoadConfigFrom loads the profile file at path. A missing file is created
// with a single "local" profile for localURL.
func LoadConfigFrom(path, localURL string) (*Config, error) {
	cfg := &Config{configPath: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg.DefaultServer = localProfile
		cfg.Servers = map[string]ServerConfig{
			localProfile: {URL: localURL, Description: "Local settings bridge"},
		}
		return cfg, cfg.Save()
	case err != nil:
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.Servers == nil {
		cfg.Servers = make(map[string]ServerConfig)
	}
	return cfg, nil
}

// Save writes the file through a temp file so a crash never leaves it half written.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	tmp := c.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, c.configPath)
}

// AddServer adds or replaces a profile. The first profile becomes the default.
func (c *Config) AddServer(name, rawURL, description string) error {
	if name == "" {
		return errors.New("server name cannot be empty")
	}
	if err := validateServerURL(rawURL); err != nil {
		return err
	}

	c.Servers[name] = ServerConfig{URL: rawURL, Description: description}
	if c.DefaultServer == "" {
		c.DefaultServer = name
	}
	return c.Save()
}

// RemoveServer deletes a profile. Removing the default promotes the first
// remaining profile by name.
func (c *Config) RemoveServer(name string) error {
	if _, ok := c.Servers[name]; !ok {
		return fmt.Errorf("%w: %s", errUnknownServer, name)
	}
	delete(c.Servers, name)

	if c.DefaultServer == name {
		c.DefaultServer = ""
		if names := c.ServerNames(); len(names) > 0 {
			c.DefaultServer = names[0]
		}
	}
	return c.Save()
}

// SetDefault makes name the profile used at startup.
func (c *Config) SetDefault(name string) error {
	if _, ok := c.Servers[name]; !ok {
		return fmt.Errorf("%w: %s", errUnknownServer, name)
	}
	c.DefaultServer = name
	return c.Save()
}

// GetServer returns the named profile, or the default for "".
func (c *Config) GetServer(name string) (*ServerConfig, error) {
	if name == "" {
		name = c.DefaultServer
	}
	server, ok := c.Servers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownServer, name)
	}
	return &server, nil
}

// ServerNames returns profile names sorted.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func validateServerURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server URL must be http(s)://host[:port], got %q", rawURL)
	}
	return nil
}
