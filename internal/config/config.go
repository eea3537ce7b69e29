package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/go-tangra/go-tangra-bios/internal/bios"
)

// Config holds the biosctl configuration.
type Config struct {
	ToolPath    string        `mapstructure:"tool_path"`
	WorkDir     string        `mapstructure:"work_dir"`
	DumpFile    string        `mapstructure:"dump_file"`
	ScriptFile  string        `mapstructure:"script_file"`
	BackupFile  string        `mapstructure:"backup_file"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
	SkipBackup  bool          `mapstructure:"skip_backup"`

	DatabasePath  string        `mapstructure:"database"`
	RetentionDays int           `mapstructure:"retention_days"`
	PurgeInterval time.Duration `mapstructure:"purge_interval"`

	Listen        string `mapstructure:"listen"`
	EnableSwagger bool   `mapstructure:"enable_swagger"`
	ApiSecret     string `mapstructure:"api_secret"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Load reads configuration from file and environment. A missing config file
// is not an error; an unreadable or malformed one is.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("biosctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/biosctl")
	}

	v.SetDefault("tool_path", "SCEWIN_64.exe")
	v.SetDefault("work_dir", "")
	v.SetDefault("dump_file", "bios_out.txt")
	v.SetDefault("script_file", "bios_set.txt")
	v.SetDefault("backup_file", "bios_backup.txt")
	v.SetDefault("tool_timeout", "0s")
	v.SetDefault("skip_backup", false)
	v.SetDefault("database", "biosctl.db")
	v.SetDefault("retention_days", 0)
	v.SetDefault("purge_interval", "24h")
	v.SetDefault("listen", ":9560")
	v.SetDefault("enable_swagger", true)
	v.SetDefault("api_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetEnvPrefix("BIOSCTL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Paths returns the service working files. Relative file names are joined
// to the work directory, which defaults to the OS temp directory.
func (c *Config) Paths() bios.Paths {
	p := bios.DefaultPaths(c.WorkDir)
	dir := filepath.Dir(p.Dump)
	join := func(name, def string) string {
		switch {
		case name == "":
			return def
		case filepath.IsAbs(name):
			return name
		default:
			return filepath.Join(dir, name)
		}
	}
	return bios.Paths{
		Dump:   join(c.DumpFile, p.Dump),
		Script: join(c.ScriptFile, p.Script),
		Backup: join(c.BackupFile, p.Backup),
	}
}
