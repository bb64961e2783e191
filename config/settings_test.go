package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vmapi.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
vmapiURL: http://vmapi.coal.example.com
timeout: 45s
workers: 8
log:
  level: debug
events:
  natsURL: nats://127.0.0.1:4222
`)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Settings{
		VMAPIURL: "http://vmapi.coal.example.com",
		Timeout:  Duration{45 * time.Second},
		Workers:  8,
		Log:      LogSettings{Level: "debug", Format: "text"},
		Events:   EventsSettings{NATSURL: "nats://127.0.0.1:4222", Subject: DefaultEventSubject},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Load() mismatch (-want +got):\n%s", diff)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestLoadEmptyPathAndEmptyFile(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", writeConfig(t, "")} {
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%q) error = %v", path, err)
		}
		if diff := cmp.Diff(Default(), got); diff != "" {
			t.Fatalf("Load(%q) mismatch (-want +got):\n%s", path, diff)
		}
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "vmapiUrl: http://typo.example.com\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load() error = %v, want parse error", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load() of a missing file succeeded")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvVMAPIURL: "http://vmapi.env.example.com",
		EnvTimeout:  "12",
		EnvNATSURL:  "nats://nats.env:4222",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	s := Default()
	s.VMAPIURL = "http://from-file.example.com"
	s.WFAPIURL = "http://wfapi.example.com"
	if err := s.ApplyEnv(lookup); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if s.VMAPIURL != "http://vmapi.env.example.com" {
		t.Fatalf("VMAPIURL = %q", s.VMAPIURL)
	}
	if s.WFAPIURL != "http://wfapi.example.com" {
		t.Fatalf("WFAPIURL = %q, want file value kept", s.WFAPIURL)
	}
	if s.Timeout.Duration != 12*time.Second {
		t.Fatalf("Timeout = %v, want 12s", s.Timeout)
	}
	if s.Events.NATSURL != "nats://nats.env:4222" {
		t.Fatalf("Events.NATSURL = %q", s.Events.NATSURL)
	}

	env[EnvTimeout] = "soon"
	if err := s.ApplyEnv(lookup); err == nil {
		t.Fatalf("ApplyEnv() with bad timeout succeeded")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Default()
	valid.VMAPIURL = "https://vmapi.example.com"

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"missing url", func(s *Settings) { s.VMAPIURL = "" }, "vmapiURL is required"},
		{"bad scheme", func(s *Settings) { s.VMAPIURL = "tcp://vmapi" }, "unsupported scheme"},
		{"bad wfapi", func(s *Settings) { s.WFAPIURL = "wfapi" }, "wfapiURL"},
		{"negative workers", func(s *Settings) { s.Workers = -1 }, "workers"},
		{"bad level", func(s *Settings) { s.Log.Level = "loud" }, "log.level"},
		{"bad format", func(s *Settings) { s.Log.Format = "xml" }, "log.format"},
		{"events without subject", func(s *Settings) {
			s.Events.NATSURL = "nats://x"
			s.Events.Subject = ""
		}, "events.subject"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
