// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads the YAML file that describes the networks the
// privatedns command validates.
//
// Example:
//
//	log_level: info
//	connect_timeout: 10s
//	networks:
//	  - id: 100
//	    mark: 0x10064
//	    servers: ["8.8.8.8", "8.8.4.4"]
//	    hostname: dns.google
//	  - id: 101
//	    servers: ["1.1.1.1"]
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/H0llyW00dzZ/privatedns/src/logging"
	"github.com/H0llyW00dzZ/privatedns/src/privatedns"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the root of the configuration file.
type Config struct {
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// ConnectTimeout bounds one validation attempt. Zero keeps the
	// coordinator default.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ProbeZone overrides the zone probe queries are sent for.
	ProbeZone string `yaml:"probe_zone"`

	// MaxWorkers caps live validation workers. Zero keeps the default.
	MaxWorkers int `yaml:"max_workers"`

	Networks []Network `yaml:"networks"`
}

// Network is the Private DNS configuration of one network.
type Network struct {
	ID       int      `yaml:"id"`
	Mark     uint32   `yaml:"mark"`
	Servers  []string `yaml:"servers"`
	Hostname string   `yaml:"hostname"`

	// CACertificateFile is a PEM file, relative to the configuration
	// file, used instead of the system roots in strict mode.
	CACertificateFile string `yaml:"ca_certificate_file"`

	// CACertificate holds the contents of CACertificateFile once loaded.
	CACertificate string `yaml:"-"`
}

// Load reads, decodes and validates the configuration file at path.
// CA certificate files are resolved relative to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(bytes.NewReader(data), filepath.Dir(path))
}

// Parse decodes and validates a configuration. Unknown keys are
// rejected. baseDir resolves relative CA certificate paths.
func Parse(r io.Reader, baseDir string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.loadCertificates(baseDir); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the whole configuration and reports every problem
// at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err))
	}
	if c.ConnectTimeout < 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: connect_timeout must not be negative", ErrInvalidConfig))
	}
	if c.MaxWorkers < 0 {
		errs = multierror.Append(errs, fmt.Errorf("%w: max_workers must not be negative", ErrInvalidConfig))
	}

	seen := make(map[int]struct{}, len(c.Networks))
	for i, n := range c.Networks {
		if _, dup := seen[n.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("%w: networks[%d]: duplicate id %d", ErrInvalidConfig, i, n.ID))
		}
		seen[n.ID] = struct{}{}

		for _, s := range n.Servers {
			if _, err := privatedns.ParseAddressKey(s); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%w: networks[%d]: %w", ErrInvalidConfig, i, err))
			}
		}
		if n.Hostname != "" && !privatedns.IsValidHostname(n.Hostname) {
			errs = multierror.Append(errs, fmt.Errorf("%w: networks[%d]: invalid hostname %q", ErrInvalidConfig, i, n.Hostname))
		}
		if n.CACertificateFile != "" && n.Hostname == "" {
			errs = multierror.Append(errs, fmt.Errorf("%w: networks[%d]: ca_certificate_file requires hostname", ErrInvalidConfig, i))
		}
	}

	return errs.ErrorOrNil()
}

func (c *Config) loadCertificates(baseDir string) error {
	var errs *multierror.Error
	for i := range c.Networks {
		n := &c.Networks[i]
		if n.CACertificateFile == "" {
			continue
		}
		path := n.CACertificateFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		pem, err := os.ReadFile(path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%w: networks[%d]: %w", ErrInvalidConfig, i, err))
			continue
		}
		n.CACertificate = string(pem)
	}
	return errs.ErrorOrNil()
}

// CoordinatorOptions returns the coordinator options the file asks for.
func (c *Config) CoordinatorOptions() []privatedns.Option {
	var opts []privatedns.Option
	if c.ConnectTimeout > 0 {
		opts = append(opts, privatedns.WithConnectTimeout(c.ConnectTimeout))
	}
	if c.ProbeZone != "" {
		opts = append(opts, privatedns.WithProbeZone(c.ProbeZone))
	}
	if c.MaxWorkers > 0 {
		opts = append(opts, privatedns.WithMaxWorkers(c.MaxWorkers))
	}
	return opts
}

// ResolverConfig converts the network to the form [privatedns.Service]
// accepts.
func (n Network) ResolverConfig() privatedns.ResolverConfig {
	return privatedns.ResolverConfig{
		NetID:         n.ID,
		Mark:          n.Mark,
		Servers:       n.Servers,
		TLSName:       n.Hostname,
		CACertificate: n.CACertificate,
	}
}
