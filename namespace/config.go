package namespace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hanyuan666/yarp/contact"
)

// Config describes which naming space this process belongs to: the
// space's name and where its server lives. It is read from the conf
// file shared by every process in the space.
type Config struct {
	Namespace string `toml:"namespace"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Carrier   string `toml:"carrier"`
}

const confFileName = "conf.toml"

// ConfigPath returns the conf file location: $YARP_CONF when set, else
// ~/.yarp/conf.toml.
func ConfigPath() string {
	if p := os.Getenv("YARP_CONF"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return confFileName
	}
	return filepath.Join(home, ".yarp", confFileName)
}

// LoadConfig reads the conf file. A missing file is not an error: the
// zero config means "no naming space", and $YARP_NAMESPACE still
// applies on top.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("namespace: read conf %s: %w", path, err)
	}
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("namespace: parse conf %s: %w", path, err)
	}
	if !meta.IsDefined("carrier") {
		cfg.Carrier = "tcp"
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if ns := strings.TrimSpace(os.Getenv("YARP_NAMESPACE")); ns != "" {
		c.Namespace = ns
	}
	if c.Carrier == "" {
		c.Carrier = "tcp"
	}
}

// SaveConfig writes the conf file, creating its directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("namespace: create conf dir: %w", err)
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("namespace: encode conf: %w", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("namespace: write conf %s: %w", path, err)
	}
	return nil
}

// ServerContact returns the configured name-server contact; invalid
// when the config names no server.
func (c Config) ServerContact() contact.Contact {
	name := c.Namespace
	if name == "" {
		name = "/root"
	}
	return contact.Contact{
		Name:    name,
		Carrier: c.Carrier,
		Host:    c.Host,
		Port:    c.Port,
	}
}
