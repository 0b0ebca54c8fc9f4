// Package config provides helper functionality to read service configurations from JSON config files or OS ENV
// variables. The default configuration can be overriden first by:
//
// - a valid JSON config file (see cmd/conf.json for a sample), then by
//
// - a .env file in the working directory, if present, and then by
//
// - OS ENV variables: prefixed with RPAY_ (ie. RPAY_DBTYPE, RPAY_DBCONN, ...). All OS ENV variables should be valid
// strings, except for RPAY_BLOCKCHAINS which should be a string with a valid JSON format. For example:
// # export RPAY_BLOCKCHAINS='[{"name":"sepolia","driver":"ethereum","node":"https://sepolia.infura.io/v3/KEY"}]'
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of the OS ENV variables read.
const EnvPrefix = "RPAY"

// Default configuration variables
var (
	DBTypeDefault        = "memory"
	DBConnDefault        = ""
	RestfulEPDefault     = ""
	PortDefault          = "3030"
	SSLPortDefault       = ""
	SSLCertDefault       = ""
	SSLKeyDefault        = ""
	MbTypeDefault        = ""
	MbConnDefault        = ""
	BcDefault            = Chains{{Name: "sim", Driver: "sim", Decimals: 18}}
	NetworkDefault       = "sim"
	SeedDefault          = "642ce4e20f09c9f4d285c2b336063eaafbe4cb06dece8134f3a64bdd8f8c0c24df73e1a2e7056359b6db61e179ff45e5ada51d14f07b30becb6d92b961d35df4"
	TimeoutDefault       = Duration(30 * time.Second)
	SweepScheduleDefault = "@every 1m"
	SweepLeaseDefault    = Duration(5 * time.Minute)
	GraceDefault         = Duration(10 * time.Minute)
	RateLimitDefault     = 100
)

// BlockConfig defines the required fields for blockchain/network connection configuration. Node contains the url (ie.
// https://localhost:8545) and Secret is an optional field when Basic Authentication is required by the blockchain
// server. Driver selects the network implementation ("ethereum" or "sim").
type BlockConfig struct {
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Node     string `json:"node"`
	Secret   string `json:"secret"`
	Decimals int32  `json:"decimals"`
}

// Chains is the list of configured networks. It decodes from a JSON array in OS ENV variables.
type Chains []BlockConfig

// Decode implements envconfig.Decoder.
func (c *Chains) Decode(value string) error {
	return json.Unmarshal([]byte(value), c)
}

// Duration is a time.Duration read as "30s", "5m", ... from JSON and OS ENV variables.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration should be a string: %w", err)
	}

	return d.Decode(s)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}

	*d = Duration(v)

	return nil
}

// ServiceConfig contains the required fields for the wallet and reconciler services. Database, API endpoint, ports,
// SSL cert and key, message broker type and url, a slice for blockchain configs, the network used for payments, the
// seed for the HD wallet and the payment core options.
type ServiceConfig struct {
	DBType            string   `json:"dbtype" envconfig:"DBTYPE"`
	DBConn            string   `json:"dbconn" envconfig:"DBCONN"`
	RestfulEndpoint   string   `json:"endpoint" envconfig:"ENDPOINT"`
	Port              string   `json:"port" envconfig:"PORT"`
	SSLPort           string   `json:"sslport" envconfig:"SSLPORT"`
	SSLCert           string   `json:"sslcert" envconfig:"SSLCERT"`
	SSLKey            string   `json:"sslkey" envconfig:"SSLKEY"`
	MbType            string   `json:"mbtype" envconfig:"MBTYPE"`
	MbConn            string   `json:"mbconn" envconfig:"MBCONN"`
	Bc                Chains   `json:"blockchains" envconfig:"BLOCKCHAINS"`
	Network           string   `json:"network" envconfig:"NETWORK"`
	Seed              string   `json:"hdseed" envconfig:"SEED"`
	Timeout           Duration `json:"timeout" envconfig:"TIMEOUT"`
	SweepSchedule     string   `json:"sweepSchedule" envconfig:"SWEEP_SCHEDULE"`
	SweepFailFast     bool     `json:"sweepFailFast" envconfig:"SWEEP_FAILFAST"`
	SweepLease        Duration `json:"sweepLease" envconfig:"SWEEP_LEASE"`
	OverwriteAccounts bool     `json:"overwriteAccounts" envconfig:"OVERWRITE_ACCOUNTS"`
	Redis             string   `json:"redis" envconfig:"REDIS"`
	RateLimit         int      `json:"rateLimit" envconfig:"RATE_LIMIT"`
	Grace             Duration `json:"grace" envconfig:"GRACE"`
}

// ExtractConfiguration reads from the given JSON filename and returns the ServiceConfig or an error otherwise.
func ExtractConfiguration(filename string) (ServiceConfig, error) {
	conf := ServiceConfig{
		DBType:          DBTypeDefault,
		DBConn:          DBConnDefault,
		RestfulEndpoint: RestfulEPDefault,
		Port:            PortDefault,
		SSLPort:         SSLPortDefault,
		SSLCert:         SSLCertDefault,
		SSLKey:          SSLKeyDefault,
		MbType:          MbTypeDefault,
		MbConn:          MbConnDefault,
		Bc:              append(Chains{}, BcDefault...),
		Network:         NetworkDefault,
		Seed:            SeedDefault,
		Timeout:         TimeoutDefault,
		SweepSchedule:   SweepScheduleDefault,
		SweepLease:      SweepLeaseDefault,
		RateLimit:       RateLimitDefault,
		Grace:           GraceDefault,
	}
	// read from config file first
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			log.Println("Configuration file not found.")

			return conf, err
		}
		defer file.Close()

		if err = json.NewDecoder(file).Decode(&conf); err != nil {
			return conf, err
		}
	}
	// then a .env file, it does not override variables already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error reading .env file: %v", err)
	}
	// and then override config values with OS ENV variables
	if err := envconfig.Process(EnvPrefix, &conf); err != nil {
		log.Println("Error reading configuration from OS ENV.")

		return conf, err
	}

	return conf, nil
}

// Chain returns the configuration of the named network.
func (c ServiceConfig) Chain(name string) (BlockConfig, bool) {
	for _, b := range c.Bc {
		if b.Name == name {
			return b, true
		}
	}

	return BlockConfig{}, false
}
