package config

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	Service   Service   `mapstructure:"service" validate:"required"`
	Countdown Countdown `mapstructure:"countdown" validate:"required"`
	Display   Display   `mapstructure:"display" validate:"required"`
	Dashboard Dashboard `mapstructure:"dashboard" validate:"required"`
	Logging   Logging   `mapstructure:"logging" validate:"required"`
	Latency   Latency   `mapstructure:"latency" validate:"required"`
	Alerts    Alerts    `mapstructure:"alerts" validate:"required"`
	API       API       `mapstructure:"api" validate:"required"`
}

type Service struct {
	// TickInterval is in milliseconds.
	TickInterval *int `mapstructure:"tickInterval" validate:"required,min=1"`
}

// Interval returns TickInterval as a duration.
func (s Service) Interval() time.Duration {
	return time.Duration(*s.TickInterval) * time.Millisecond
}

type Countdown struct {
	Name  *string `mapstructure:"name" validate:"required"`
	Start *int    `mapstructure:"start" validate:"required"`
}

type Display struct {
	Name    *string `mapstructure:"name" validate:"required"`
	Enabled *bool   `mapstructure:"enabled" validate:"required"`
}

type Dashboard struct {
	Enabled *bool `mapstructure:"enabled" validate:"required"`
}

type Logging struct {
	Driver *string `mapstructure:"driver" validate:"required,oneof=noop stdout influxdb"`
	// InfluxDB must be set if Driver is influxdb.
	InfluxDB InfluxDB `mapstructure:"influxdb"`
}

type InfluxDB struct {
	Host   *string `mapstructure:"host"`
	Token  *string `mapstructure:"token"`
	Org    *string `mapstructure:"org"`
	Bucket *string `mapstructure:"bucket"`
}

type Latency struct {
	Collector *string `mapstructure:"collector" validate:"required,oneof=tachymeter array"`
	// Window is the number of ticks the tachymeter collector keeps.
	Window *int `mapstructure:"window" validate:"required,min=1"`
}

type Alerts struct {
	Driver *string `mapstructure:"driver" validate:"required,oneof=log queue"`
	// Redis must be set if Driver is queue.
	Redis Redis `mapstructure:"redis"`
}

type Redis struct {
	Addr     *string `mapstructure:"addr"`
	Password *string `mapstructure:"password"`
	DB       *int    `mapstructure:"db"`
	Queue    *string `mapstructure:"queue"`
}

type API struct {
	Enabled *bool `mapstructure:"enabled" validate:"required"`
	Port    *int  `mapstructure:"port" validate:"required,min=1,max=65535"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Service.TickInterval", 100)

	v.SetDefault("Countdown.Name", "countdown")
	v.SetDefault("Countdown.Start", 10)
	v.SetDefault("Display.Name", "clock")
	v.SetDefault("Display.Enabled", true)
	v.SetDefault("Dashboard.Enabled", true)

	v.SetDefault("Logging.Driver", "noop")
	v.SetDefault("Latency.Collector", "tachymeter")
	v.SetDefault("Latency.Window", 100)

	v.SetDefault("Alerts.Driver", "log")
	v.SetDefault("Alerts.Redis.Password", "")
	v.SetDefault("Alerts.Redis.DB", 0)
	v.SetDefault("Alerts.Redis.Queue", "countdowns")

	v.SetDefault("API.Enabled", true)
	v.SetDefault("API.Port", 8079)
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterStructValidation(validateLogging, Logging{})
	validate.RegisterStructValidation(validateAlerts, Alerts{})
	return validate
}

type requiredString struct {
	name  string
	value *string
}

func requireStrings(sl validator.StructLevel, prefix, param string, fields []requiredString) {
	for _, field := range fields {
		if field.value == nil || *field.value == "" {
			sl.ReportError(field.value, prefix+"."+field.name, field.name, "required_if", param)
		}
	}
}

func validateLogging(sl validator.StructLevel) {
	logging := sl.Current().Interface().(Logging)
	if logging.Driver == nil || *logging.Driver != "influxdb" {
		return
	}

	requireStrings(sl, "InfluxDB", "Driver influxdb", []requiredString{
		{"Host", logging.InfluxDB.Host},
		{"Token", logging.InfluxDB.Token},
		{"Org", logging.InfluxDB.Org},
		{"Bucket", logging.InfluxDB.Bucket},
	})
}

func validateAlerts(sl validator.StructLevel) {
	alerts := sl.Current().Interface().(Alerts)
	if alerts.Driver == nil || *alerts.Driver != "queue" {
		return
	}

	requireStrings(sl, "Redis", "Driver queue", []requiredString{
		{"Addr", alerts.Redis.Addr},
		{"Queue", alerts.Redis.Queue},
	})
	if alerts.Redis.DB == nil {
		sl.ReportError(alerts.Redis.DB, "Redis.DB", "DB", "required_if", "Driver queue")
	}
}

// Load applies defaults to v, then unmarshals and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := newValidator().Struct(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ReadConfig reads config.yaml from the working directory or /app, with
// environment variables such as SERVICE_TICKINTERVAL taking precedence. Any
// error is fatal.
func ReadConfig() *Config {
	v := viper.GetViper()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("no config.yaml found in . or /app; using defaults and environment")
		} else {
			log.Fatalf("error when reading config file: err = %s", err)
		}
	}

	config, err := Load(v)
	if err == nil {
		return config
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		log.Fatalf("unable to load config: err = %s", err)
	}

	log.Printf("encountered validation errors:\n")
	for _, err := range validationErrors {
		fmt.Printf("\t%s\n", err.Error())
	}
	fmt.Println("Check your configuration file and try again.")
	os.Exit(1)

	return nil
}
