// Copyright (c) 2022-present, DiceDB/SevenDB contributors
// All rights reserved. Licensed under the BSD 3-Clause License. See LICENSE file in the project root for full license information.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SevenBenchVersion is overridable at build time via -ldflags.
var SevenBenchVersion = "0.1.0"

// EnvPrefix is the prefix for environment variable overrides, e.g.
// SEVENBENCH_CLOCK_DRIFT_RATE overrides --clock-drift-rate.
const EnvPrefix = "SEVENBENCH"

var Config *BenchConfig

// BenchConfig is the flat configuration surface of a benchmark run. Values are
// resolved in order: explicit flag > environment variable > config file > default.
type BenchConfig struct {
	Host     string `mapstructure:"host" default:"localhost" description:"the host address of the key-value service"`
	Port     int    `mapstructure:"port" default:"7379" description:"the port of the key-value service"`
	ClientID int    `mapstructure:"client-id" default:"1" description:"unique id of this client; stamped on every history operation"`

	LogLevel string `mapstructure:"log-level" default:"info" description:"the log level"`

	OutputDir   string `mapstructure:"output-dir" default:"results" description:"directory for run artifacts (csv, summary, history)"`
	CSVFile     string `mapstructure:"csv-file" default:"" description:"per-request latency csv path; defaults to <output-dir>/client-<id>.csv"`
	SummaryFile string `mapstructure:"summary-file" default:"" description:"run summary json path; defaults to <output-dir>/summary-<id>.json"`

	Phases   []string `mapstructure:"phases" default:"10000:0.5:10" description:"workload phases as duration_ms:read_ratio:request_delay_ms triples"`
	Keyspace int      `mapstructure:"keyspace" default:"1000" description:"number of distinct keys the workload draws from"`
	Seed     int64    `mapstructure:"seed" default:"0" description:"seed for the read/write coin; 0 derives one from the wall clock"`

	History     bool   `mapstructure:"history" default:"false" description:"record a linearizability-checkable operation history"`
	HistoryFile string `mapstructure:"history-file" default:"" description:"history json path; defaults to <output-dir>/history-<id>.json"`

	ClockDriftRate   float64 `mapstructure:"clock-drift-rate" default:"50" description:"simulated clock drift in microseconds per real second"`
	ClockUncertainty float64 `mapstructure:"clock-uncertainty" default:"100" description:"simulated clock sync uncertainty, plus/minus microseconds"`
	ClockSyncFreq    float64 `mapstructure:"clock-sync-freq" default:"100" description:"simulated clock resync frequency in Hz"`

	MetricsPort int `mapstructure:"metrics-port" default:"0" description:"serve a /metrics endpoint on this port while the run is active; 0 disables"`
}

func init() {
	// Ensure Config is non-nil with default values for tests and simple runs.
	if Config == nil {
		Config = defaultConfig()
	}
}

// defaultConfig builds a BenchConfig from the struct's default tags.
func defaultConfig() *BenchConfig {
	c := &BenchConfig{}
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		def := t.Field(i).Tag.Get("default")
		f := v.Field(i)
		switch f.Kind() {
		case reflect.String:
			f.SetString(def)
		case reflect.Int, reflect.Int64:
			n, _ := strconv.ParseInt(def, 10, 64)
			f.SetInt(n)
		case reflect.Bool:
			b, _ := strconv.ParseBool(def)
			f.SetBool(b)
		case reflect.Float64:
			x, _ := strconv.ParseFloat(def, 64)
			f.SetFloat(x)
		case reflect.Slice:
			if f.Type().Elem().Kind() == reflect.String && def != "" {
				f.Set(reflect.ValueOf(strings.Split(def, ",")))
			}
		}
	}
	return c
}

// Load resolves the configuration from sevenbench.yaml (if present in the
// working directory), SEVENBENCH_* environment variables, and the given flag
// set, then normalizes derived paths. It panics on malformed input: a run with
// a broken configuration must not start.
func Load(flags *pflag.FlagSet) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("sevenbench")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	flags.VisitAll(func(flag *pflag.Flag) {
		if flag.Name == "help" {
			return
		}
		// Environment overrides sit between explicit flags and file values.
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag.Name, "-", "_"))
		if flag.Value.Type() == "stringSlice" || flag.Value.Type() == "stringArray" {
			switch {
			case flag.Changed:
				if ss, err := flags.GetStringSlice(flag.Name); err == nil {
					viper.Set(flag.Name, ss)
				}
			case os.Getenv(envKey) != "":
				viper.Set(flag.Name, strings.Split(os.Getenv(envKey), ","))
			case !viper.IsSet(flag.Name):
				if ss, err := flags.GetStringSlice(flag.Name); err == nil {
					viper.Set(flag.Name, ss)
				}
			}
			return
		}
		switch {
		case flag.Changed:
			viper.Set(flag.Name, flag.Value.String())
		case os.Getenv(envKey) != "":
			viper.Set(flag.Name, os.Getenv(envKey))
		case !viper.IsSet(flag.Name):
			viper.Set(flag.Name, flag.Value.String())
		}
	})

	if err := viper.Unmarshal(&Config); err != nil {
		panic(err)
	}

	// --- Path normalization ---
	// Artifacts default under OutputDir so that independently launched clients
	// with distinct ids never clobber each other's files.
	if Config.OutputDir == "" {
		Config.OutputDir = "results"
	}
	if err := os.MkdirAll(Config.OutputDir, 0o755); err != nil {
		panic(fmt.Errorf("could not create output-dir '%s': %w", Config.OutputDir, err))
	}
	if Config.CSVFile == "" {
		Config.CSVFile = filepath.Join(Config.OutputDir, fmt.Sprintf("client-%d.csv", Config.ClientID))
	}
	if Config.SummaryFile == "" {
		Config.SummaryFile = filepath.Join(Config.OutputDir, fmt.Sprintf("summary-%d.json", Config.ClientID))
	}
	if Config.History && Config.HistoryFile == "" {
		Config.HistoryFile = filepath.Join(Config.OutputDir, fmt.Sprintf("history-%d.json", Config.ClientID))
	}
}
