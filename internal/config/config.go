package config

import (
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	LogZapMode                  string `mapstructure:"LOG_ZAP_MODE"`
	PrintConfigurationToLogs    string `mapstructure:"PRINT_CONFIGURATION_TO_LOGS"`
	EchoHost                    string `mapstructure:"ECHO_HOST"`
	EchoPort                    int    `mapstructure:"ECHO_PORT"`
	ArcticRequestTimeoutSeconds int    `mapstructure:"ARCTIC_REQUEST_TIMEOUT_SECONDS"`
}

var lock = &sync.Mutex{}
var config *Config

var Get = get

func get() Config {
	lock.Lock()
	defer lock.Unlock()
	if config == nil {
		c := loadConfig()
		config = &c
	}
	return *config
}

func loadConfig() Config {
	viperAddConfigFile()
	viperAddDefaults()
	viperAddEnv()
	cfg := initializeCfg()
	debugConfig(cfg)
	return cfg
}

func viperAddConfigFile() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("env")
}

// Defaults reproduce the fixture's fixed behavior when nothing is configured.
func viperAddDefaults() {
	viper.SetDefault("LOG_ZAP_MODE", "production")
	viper.SetDefault("PRINT_CONFIGURATION_TO_LOGS", "false")
	viper.SetDefault("ECHO_HOST", "127.0.0.1")
	viper.SetDefault("ECHO_PORT", 8000)
	viper.SetDefault("ARCTIC_REQUEST_TIMEOUT_SECONDS", 10)
}

func viperAddEnv() {
	viper.AutomaticEnv()
	// Bind every field so env values reach Unmarshal even when absent from the config file (https://github.com/spf13/viper/issues/584)
	fieldsOfConfig := reflect.TypeOf(Config{})
	for i := 0; i < fieldsOfConfig.NumField(); i++ {
		mapStructureVal := fieldsOfConfig.Field(i).Tag.Get("mapstructure")
		err := viper.BindEnv(mapStructureVal)
		if err != nil {
			panic(fmt.Sprintf("Error binding env val '%v': %v", mapStructureVal, err))
		}
	}
}

func initializeCfg() Config {
	var cfg Config
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("fatal error reading config file: %v", err))
		}
	}

	err = viper.Unmarshal(&cfg)
	if err != nil {
		panic(fmt.Sprintf("error unmarshaling config: %v", err))
	}
	return cfg
}

func debugConfig(cfg Config) {
	if cfg.PrintConfigurationToLogs == "true" {
		b, err := json.Marshal(cfg)
		var result string
		if err != nil {
			result = "[FAILED TO CONVERT CONF TO STRING]"
		} else {
			result = string(b)
		}
		log.Printf("[APP CONFIGURATION]: %v\n", result)
	}
}
