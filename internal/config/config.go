package config

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"curtailwatch/internal/axis"
	"curtailwatch/internal/curtailment"
	"curtailwatch/internal/engine"
	"curtailwatch/internal/logging"
	"curtailwatch/internal/series"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Axis      AxisConfig      `mapstructure:"axis"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
	Server    ServerConfig    `mapstructure:"server"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	// Timezone is used to read naive timestamps and to derive series dates.
	Timezone string `mapstructure:"timezone"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// SchedulerConfig governs the watch cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	// Lookback is how much measurement history each watch pass re-analyses.
	Lookback time.Duration `mapstructure:"lookback"`
}

// AnalysisConfig holds the curtailment heuristic settings.
type AnalysisConfig struct {
	IrradianceThreshold float64 `mapstructure:"irradiance_threshold"`
	DiffThreshold       float64 `mapstructure:"diff_threshold"`
	GroupDimension      string  `mapstructure:"group_dimension"`
	Granularity         string  `mapstructure:"granularity"`
	Overlay             bool    `mapstructure:"overlay"`
}

// AxisConfig holds display range settings.
type AxisConfig struct {
	ScaleFactor      float64                  `mapstructure:"scale_factor"`
	UseDefaultLimits bool                     `mapstructure:"use_default_limits"`
	Overrides        map[string]axis.Override `mapstructure:"overrides"`
	Window           axis.WindowConfig        `mapstructure:"window"`
}

// WeatherConfig covers the historical irradiance archive.
type WeatherConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets chart and CSV export behaviour.
type ExportConfig struct {
	MaxDataPoints      int     `mapstructure:"max_data_points"`
	Width              int     `mapstructure:"width"`
	Height             int     `mapstructure:"height"`
	CurtailmentColor   string  `mapstructure:"curtailment_color"`
	CurtailmentOpacity float64 `mapstructure:"curtailment_opacity"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CURTAILWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "curtailwatch")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.timezone", "Local")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.stderr", true)

	v.SetDefault("scheduler.interval", "15m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x63757274))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.lookback", "24h")

	v.SetDefault("analysis.irradiance_threshold", curtailment.DefaultIrradianceThreshold)
	v.SetDefault("analysis.diff_threshold", curtailment.DefaultDiffThreshold)
	v.SetDefault("analysis.group_dimension", "")
	v.SetDefault("analysis.granularity", "hour")
	v.SetDefault("analysis.overlay", false)

	v.SetDefault("axis.scale_factor", 1.0)
	v.SetDefault("axis.use_default_limits", true)
	v.SetDefault("axis.window.hour.start", 0)
	v.SetDefault("axis.window.hour.end", 23)
	v.SetDefault("axis.window.day.start", 1)
	v.SetDefault("axis.window.day.end", 31)
	v.SetDefault("axis.window.month.start", 1)
	v.SetDefault("axis.window.month.end", 12)

	v.SetDefault("weather.base_url", "https://archive-api.open-meteo.com/v1")
	v.SetDefault("weather.request_timeout", "15s")
	v.SetDefault("weather.user_agent", "curtailwatch/1.0")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
	v.SetDefault("export.width", 1280)
	v.SetDefault("export.height", 720)
	v.SetDefault("export.curtailment_color", "#ff4646")
	v.SetDefault("export.curtailment_opacity", 0.3)

	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.max_body_bytes", int64(50<<20))

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			lenientFloatHook(),
		)
	}
}

// lenientFloatHook turns unparsable numeric strings into NaN so the analysis
// settings fall back to their defaults instead of aborting startup.
func lenientFloatHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
			return data, nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(data.(string)), 64)
		if err != nil {
			return math.NaN(), nil
		}
		return parsed, nil
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Export.Width <= 0 || c.Export.Height <= 0 {
		return fmt.Errorf("export.width and export.height must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Scheduler.Lookback <= 0 {
		return fmt.Errorf("scheduler.lookback must be greater than zero")
	}
	if _, err := series.ParseGranularity(c.Analysis.Granularity); err != nil {
		return fmt.Errorf("analysis.granularity: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// Location resolves app.timezone.
func (c *Config) Location() (*time.Location, error) {
	name := c.App.Timezone
	if name == "" {
		name = "Local"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("app.timezone: %w", err)
	}
	return loc, nil
}

// Thresholds returns the curtailment thresholds with defaults applied to
// unusable values.
func (c *Config) Thresholds() curtailment.Thresholds {
	return curtailment.Thresholds{
		Irradiance: c.Analysis.IrradianceThreshold,
		Diff:       c.Analysis.DiffThreshold,
	}.Normalize()
}

// EngineOptions translates configuration into analysis options.
func (c *Config) EngineOptions() engine.Options {
	granularity, err := series.ParseGranularity(c.Analysis.Granularity)
	if err != nil {
		granularity = series.GranularityPoint
	}
	scale := c.Axis.ScaleFactor
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale == 0 {
		scale = 1
	}
	return engine.Options{
		GroupDimension: c.Analysis.GroupDimension,
		Thresholds:     c.Thresholds(),
		Granularity:    granularity,
		Overlay:        c.Analysis.Overlay,
		Axis: axis.Options{
			ScaleFactor:      scale,
			UseDefaultLimits: c.Axis.UseDefaultLimits,
		},
		AxisOverrides: c.Axis.Overrides,
		Window:        c.Axis.Window,
	}
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
