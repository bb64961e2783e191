package vmapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientListVMs(t *testing.T) {
	t.Parallel()

	requests := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[" + kvmRecord + "]"))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	vms, err := client.ListVMs(context.Background(), NewFilter().WithState(StateRunning).WithAlias("build").Build())
	if err != nil {
		t.Fatalf("ListVMs() error = %v", err)
	}
	if len(vms) != 1 || vms[0].Alias == nil || *vms[0].Alias != "build-42" {
		t.Fatalf("ListVMs() = %+v", vms)
	}
	req := <-requests
	if gotPath := req.URL.Path; gotPath != "/vms" {
		t.Fatalf("path = %q, want /vms", gotPath)
	}
	if gotQuery := req.URL.RawQuery; gotQuery != "alias=build&state=running" {
		t.Fatalf("query = %q, want %q", gotQuery, "alias=build&state=running")
	}
	if req.Header.Get("x-request-id") == "" {
		t.Fatalf("x-request-id header not set")
	}
}

func TestClientListVMsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"ValidationFailed","message":"Invalid VM parameters"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = client.ListVMs(context.Background(), NewFilter().Build())
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("ListVMs() error = %v, want *TransportError", err)
	}
	if transport.StatusCode != http.StatusConflict {
		t.Fatalf("StatusCode = %d, want %d", transport.StatusCode, http.StatusConflict)
	}
	if transport.Message != "ValidationFailed: Invalid VM parameters" {
		t.Fatalf("Message = %q", transport.Message)
	}
}

func TestClientListVMsRejectsRecordWithoutUUID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"alias":"orphan"}]`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = client.ListVMs(context.Background(), NewFilter().Build())
	if !errors.Is(err, ErrMissingUUID) {
		t.Fatalf("ListVMs() error = %v, want ErrMissingUUID", err)
	}
}

func TestClientTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client, err := NewClient(srv.URL, "", WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = client.ListVMs(context.Background(), NewFilter().Build())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("ListVMs() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestNewClientRejectsBadURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		vmapi, wfapi string
		wantErr      string
	}{
		{"", "", "vmapi url"},
		{"ftp://vmapi.local", "", "vmapi url"},
		{"http://", "", "vmapi url"},
		{"http://vmapi.local", "::", "wfapi url"},
	}
	for _, tt := range tests {
		_, err := NewClient(tt.vmapi, tt.wfapi)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Fatalf("NewClient(%q, %q) error = %v, want %q", tt.vmapi, tt.wfapi, err, tt.wantErr)
		}
	}

	client, err := NewClient("http://vmapi.local", "http://wfapi.local")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.WFAPIURL() != "http://wfapi.local" {
		t.Fatalf("WFAPIURL() = %q", client.WFAPIURL())
	}
}
