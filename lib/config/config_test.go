// config_test.go tests config files
package config

import (
	"testing"
	"time"
)

// fileToTest is a relative path to the configuration file to test (ie. rpay/cmd/conf.json)
var fileToTest string = "../../cmd/conf.json"

// TestConfig extracts config from a file and checks values loaded
func TestConfig(t *testing.T) {
	//extract configuration
	conf, err := ExtractConfiguration(fileToTest)
	if err != nil {
		t.Fatalf("Error reading config file:%v\n", err)
	}
	// lets check the port
	if conf.Port != "3030" {
		t.Errorf("config port is not the expected %s", conf.Port)
	}
	// and the blockchains
	if len(conf.Bc) != 3 {
		t.Errorf("blockchains do not match the expected %v", conf.Bc)
	} else if conf.Bc[0].Name != "sim" || conf.Bc[1].Name != "sepolia" || conf.Bc[2].Name != "mainNet" {
		t.Errorf("blockchains do not match the expected %v", conf.Bc)
	}
	// durations are read as strings
	if time.Duration(conf.Timeout) != 30*time.Second || time.Duration(conf.Grace) != 10*time.Minute {
		t.Errorf("durations do not match the expected %v %v", conf.Timeout, conf.Grace)
	}
	// the seed was not in the file
	if conf.Seed != SeedDefault {
		t.Errorf("seed is not the default one %s", conf.Seed)
	}
	if b, ok := conf.Chain(conf.Network); !ok || b.Driver != "sim" {
		t.Errorf("payment network %s not found in %v", conf.Network, conf.Bc)
	}
}

// TestConfigEnv checks OS ENV variables override the file values.
func TestConfigEnv(t *testing.T) {
	t.Setenv("RPAY_PORT", "4040")
	t.Setenv("RPAY_TIMEOUT", "5s")
	t.Setenv("RPAY_SWEEP_FAILFAST", "true")
	t.Setenv("RPAY_SWEEP_LEASE", "90s")
	t.Setenv("RPAY_BLOCKCHAINS", `[{"name":"local","driver":"ethereum","node":"http://localhost:8545"}]`)

	conf, err := ExtractConfiguration(fileToTest)
	if err != nil {
		t.Fatalf("Error reading config:%v\n", err)
	}

	if conf.Port != "4040" || time.Duration(conf.Timeout) != 5*time.Second || !conf.SweepFailFast ||
		time.Duration(conf.SweepLease) != 90*time.Second {
		t.Errorf("OS ENV not applied: %+v", conf)
	}

	if len(conf.Bc) != 1 || conf.Bc[0].Name != "local" || conf.Bc[0].Node != "http://localhost:8545" {
		t.Errorf("blockchains do not match the expected %v", conf.Bc)
	}
	// untouched values keep the file ones
	if conf.SweepSchedule != "@every 1m" {
		t.Errorf("sweep schedule changed: %s", conf.SweepSchedule)
	}
}

// TestConfigDefaults reads no file at all.
func TestConfigDefaults(t *testing.T) {
	conf, err := ExtractConfiguration("")
	if err != nil {
		t.Fatalf("Error reading config:%v\n", err)
	}

	if conf.DBType != DBTypeDefault || conf.Network != NetworkDefault || len(conf.Bc) != 1 ||
		conf.SweepLease != SweepLeaseDefault {
		t.Errorf("defaults not applied: %+v", conf)
	}

	if _, err = ExtractConfiguration("does-not-exist.json"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
