package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cochaviz/sdc-clients/internal/logging"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvVMAPIURL = "VMAPI_URL"
	EnvWFAPIURL = "WFAPI_URL"
	EnvTimeout  = "VMAPI_TIMEOUT"
	EnvNATSURL  = "VMAPI_NATS_URL"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultEventSubject = "vmapi.machines"
)

// Duration lets YAML carry "30s" style durations.
type Duration struct {
	time.Duration
}

// UnmarshalYAML accepts duration strings or integer nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid duration value")
	}

	var asString string
	if err := value.Decode(&asString); err == nil {
		if strings.TrimSpace(asString) == "" {
			d.Duration = 0
			return nil
		}
		if parsed, err := time.ParseDuration(asString); err == nil {
			d.Duration = parsed
			return nil
		}
	}

	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		d.Duration = time.Duration(asInt)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

// MarshalYAML writes the duration back in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Settings is the client configuration document.
type Settings struct {
	VMAPIURL string         `yaml:"vmapiURL"`
	WFAPIURL string         `yaml:"wfapiURL,omitempty"`
	Timeout  Duration       `yaml:"timeout"`
	Workers  int            `yaml:"workers,omitempty"`
	Log      LogSettings    `yaml:"log"`
	Events   EventsSettings `yaml:"events,omitempty"`
}

// LogSettings selects log verbosity and output format.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EventsSettings enables publishing normalised machines to NATS. An empty
// NATSURL disables it.
type EventsSettings struct {
	NATSURL string `yaml:"natsURL,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Default returns the settings used when nothing else is configured.
func Default() Settings {
	return Settings{
		Timeout: Duration{DefaultTimeout},
		Log: LogSettings{
			Level:  "warning",
			Format: "text",
		},
		Events: EventsSettings{
			Subject: DefaultEventSubject,
		},
	}
}

// Load layers the YAML file at path over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Settings, error) {
	settings := Default()
	if strings.TrimSpace(path) == "" {
		return settings, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := decode(f, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func decode(r io.Reader, into *Settings) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside of tests.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup(EnvVMAPIURL); ok && v != "" {
		s.VMAPIURL = v
	}
	if v, ok := lookup(EnvWFAPIURL); ok && v != "" {
		s.WFAPIURL = v
	}
	if v, ok := lookup(EnvNATSURL); ok && v != "" {
		s.Events.NATSURL = v
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		s.Timeout = Duration{d}
	}
	return nil
}

// parseDuration accepts "45s" or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(secs) * time.Second, nil
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.VMAPIURL) == "" {
		errs = append(errs, fmt.Errorf("vmapiURL is required (flag --vmapi-url or %s)", EnvVMAPIURL))
	} else if err := checkURL(s.VMAPIURL); err != nil {
		errs = append(errs, fmt.Errorf("vmapiURL: %w", err))
	}
	if s.WFAPIURL != "" {
		if err := checkURL(s.WFAPIURL); err != nil {
			errs = append(errs, fmt.Errorf("wfapiURL: %w", err))
		}
	}
	if s.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative"))
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseMode(s.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	if s.Events.NATSURL != "" && strings.TrimSpace(s.Events.Subject) == "" {
		errs = append(errs, fmt.Errorf("events.subject is required when events.natsURL is set"))
	}
	return errors.Join(errs...)
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
