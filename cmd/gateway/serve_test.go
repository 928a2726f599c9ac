package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeCommandFlags(t *testing.T) {
	root := newRootCmd()

	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("Find(serve) error = %v", err)
	}

	for _, name := range []string{"config", "port", "log-level", "env-file"} {
		if serve.Flags().Lookup(name) == nil {
			t.Errorf("serve is missing --%s", name)
		}
	}
	if got := serve.Flags().Lookup("port").DefValue; got != "0" {
		t.Errorf("--port default = %s, want 0", got)
	}
}

func TestServeRejectsArgs(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"serve", "extra"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected an error for positional arguments")
	}
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "WARN", "error"} {
		if _, err := newLogger(level); err != nil {
			t.Errorf("newLogger(%q) error = %v", level, err)
		}
	}

	_, err := newLogger("loud")
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Errorf("newLogger(loud) error = %v", err)
	}
}
