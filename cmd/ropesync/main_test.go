package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRopesyncCLI_HelpAndSubcommands(t *testing.T) {
	tests := []struct {
		wantOut string
		args    []string
		wantErr bool
	}{
		{wantOut: "publishes a revisioned text document", args: []string{"--help"}},
		{wantOut: "--watch", args: []string{"serve", "--help"}},
		{wantOut: "--lines", args: []string{"mirror", "--help"}},
		{wantOut: "ropesync dev", args: []string{"version"}},
		{wantOut: "unknown command", args: []string{"unknown"}, wantErr: true},
		{args: []string{"serve", "extra"}, wantErr: true},
	}

	for _, tt := range tests {
		rootCmd := newRootCmd()
		buf := new(bytes.Buffer)
		rootCmd.SetOut(buf)
		rootCmd.SetErr(buf)
		rootCmd.SetArgs(tt.args)

		err := rootCmd.Execute()
		if tt.wantErr && err == nil {
			t.Errorf("args %v: expected error, got nil", tt.args)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("args %v: unexpected error: %v", tt.args, err)
		}

		out := buf.String()
		if err != nil {
			out += err.Error()
		}
		if !strings.Contains(out, tt.wantOut) {
			t.Errorf("args %v: output %q does not contain %q", tt.args, out, tt.wantOut)
		}
	}
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("ROPESYNC_SERVER_QUEUE_SIZE", "0")

	rootCmd := newRootCmd()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"serve"})

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "server.queue_size") {
		t.Fatalf("expected queue_size validation error, got %v", err)
	}
}

func TestMirror_InvalidURL(t *testing.T) {
	rootCmd := newRootCmd()
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"mirror", "--url", "http://localhost/sync"})

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "client.url") {
		t.Fatalf("expected client.url validation error, got %v", err)
	}
}
