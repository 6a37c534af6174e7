// Package config loads the daemon settings from defaults, an optional YAML
// file, a .env file and HVAC_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. HVAC_MQTT_BROKER.
const EnvPrefix = "HVAC"

// Settings is everything the daemon needs besides the controller
// configuration, which lives in the store.
type Settings struct {
	LogLevel  string        `mapstructure:"log_level"`
	Tick      time.Duration `mapstructure:"tick"`
	Heartbeat time.Duration `mapstructure:"heartbeat"`
	GPIO      GPIO          `mapstructure:"gpio"`
	MQTT      MQTT          `mapstructure:"mqtt"`
	HTTP      HTTP          `mapstructure:"http"`
	Store     Store         `mapstructure:"store"`
	History   History       `mapstructure:"history"`
}

// GPIO pins use BCM numbering.
type GPIO struct {
	Chip       string `mapstructure:"chip"`
	PinFan     int    `mapstructure:"pin_fan"`
	PinCool    int    `mapstructure:"pin_cool"`
	PinReverse int    `mapstructure:"pin_reverse"`
	PinHeat    int    `mapstructure:"pin_heat"`
}

type MQTT struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Prefix   string `mapstructure:"prefix"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// WSBroker is the websocket URL handed to the status page; "=broker"
	// derives it from Broker and "off" disables it.
	WSBroker string `mapstructure:"ws_broker"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"` // empty disables the server
}

type Store struct {
	Path     string        `mapstructure:"path"`
	Autosave time.Duration `mapstructure:"autosave"`
}

type History struct {
	Path string `mapstructure:"path"` // empty disables the cycle log
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("tick", time.Second)
	v.SetDefault("heartbeat", 15*time.Minute)

	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("gpio.pin_fan", 17)
	v.SetDefault("gpio.pin_cool", 27)
	v.SetDefault("gpio.pin_reverse", 22)
	v.SetDefault("gpio.pin_heat", 23)

	v.SetDefault("mqtt.broker", "tcp://192.168.1.200:1883")
	v.SetDefault("mqtt.client_id", "hvac-controller")
	v.SetDefault("mqtt.prefix", "hvac")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.ws_broker", "=broker")

	v.SetDefault("http.addr", ":80")

	v.SetDefault("store.path", "/var/lib/hvac/config.yml")
	v.SetDefault("store.autosave", 5*time.Minute)

	v.SetDefault("history.path", "/var/lib/hvac/history.db")
}

// Load reads the settings. path names an explicit YAML file; when empty,
// configs/hvac.yml is used if it exists. envFile is loaded with godotenv when
// present; existing environment variables win over it.
func Load(path, envFile string) (Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("hvac")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Settings{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the daemon cannot run with.
func (s Settings) Validate() error {
	// Every controller timer counts ticks as seconds.
	if s.Tick != time.Second {
		return fmt.Errorf("tick must be 1s, got %v", s.Tick)
	}
	if s.MQTT.Prefix == "" {
		return errors.New("mqtt prefix must not be empty")
	}
	pins := map[int]string{}
	for name, pin := range map[string]int{
		"fan":     s.GPIO.PinFan,
		"cool":    s.GPIO.PinCool,
		"reverse": s.GPIO.PinReverse,
		"heat":    s.GPIO.PinHeat,
	} {
		if pin < 0 {
			return fmt.Errorf("gpio pin_%s: invalid pin %d", name, pin)
		}
		if other, ok := pins[pin]; ok {
			return fmt.Errorf("gpio pin %d assigned to both %s and %s", pin, other, name)
		}
		pins[pin] = name
	}
	return nil
}
