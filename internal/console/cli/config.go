package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the console's own configuration, separate from the server's.
type Config struct {
	// APIURL is the API origin including /api/v1. Empty means offline demo
	// mode backed by the bundled fixtures.
	APIURL       string        `mapstructure:"api_url"`
	StatePath    string        `mapstructure:"state_path"`
	AccessPolicy string        `mapstructure:"access_policy"`
	StaleTime    time.Duration `mapstructure:"stale_time"`
	FixtureDelay time.Duration `mapstructure:"fixture_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AutoSelect   bool          `mapstructure:"auto_select"`
	LogLevel     string        `mapstructure:"log_level"`
	// JoinURL is the web page invite link tokens are appended to.
	JoinURL      string        `mapstructure:"join_url"`
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "suitehub", "state.json")
}

// LoadConfig reads SUITEHUB_* variables (a .env file in the working
// directory is loaded first) and an optional YAML file.
func LoadConfig(path string) (Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("api_url", "")
	v.SetDefault("state_path", defaultStatePath())
	v.SetDefault("access_policy", "registered")
	v.SetDefault("stale_time", 0)
	v.SetDefault("fixture_delay", 300*time.Millisecond)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("auto_select", true)
	v.SetDefault("log_level", "warn")
	v.SetDefault("join_url", "https://app.suitehub.io/join")

	v.SetEnvPrefix("suitehub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}
