// Package config defines adapter options and their YAML representation.
//
// The SDK deliberately avoids any configuration-binding framework: hosts
// construct Options directly or load them from a YAML document. Validation
// is explicit and defaults are applied by Normalize.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/adapterkit/errors"
)

// Options describes one adapter instance.
type Options struct {
	// ID is the stable adapter identifier, used in feature URIs, metric
	// labels, and store scoping. Required.
	ID string `yaml:"id"`

	// Name is the human-readable display name. Defaults to ID.
	Name string `yaml:"name"`

	// Description describes the adapter for discovery surfaces.
	Description string `yaml:"description"`

	// PollInterval is the tick interval for polling subscription pumps.
	PollInterval time.Duration `yaml:"poll_interval"`

	// QueueCapacity is the per-subscriber delivery queue capacity.
	QueueCapacity int `yaml:"queue_capacity"`

	// EagerPump starts subscription pumps at adapter start rather than on
	// first subscriber.
	EagerPump bool `yaml:"eager_pump"`
}

// DefaultOptions returns options with defaults applied for the given ID.
func DefaultOptions(id string) Options {
	opts := Options{ID: id}
	opts.Normalize()
	return opts
}

// Normalize fills unset fields with defaults.
func (o *Options) Normalize() {
	if o.Name == "" {
		o.Name = o.ID
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = 100
	}
}

// Validate checks required fields. Call after Normalize.
func (o *Options) Validate() error {
	if o.ID == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Options", "Validate", "adapter id")
	}
	if o.PollInterval < 10*time.Millisecond {
		return errors.WrapInvalid(
			fmt.Errorf("poll interval %s is below the 10ms floor", o.PollInterval),
			"Options", "Validate", "poll interval")
	}
	return nil
}

// Parse decodes options from a YAML document, normalizes, and validates.
func Parse(data []byte) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.WrapInvalid(err, "config", "Parse", "yaml decode")
	}

	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// LoadFile reads and parses options from a YAML file.
func LoadFile(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.WrapTransient(err, "config", "LoadFile", "read "+path)
	}
	return Parse(data)
}
