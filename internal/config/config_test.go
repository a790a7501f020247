package config

import (
	"os"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.BasePath != "/v0" {
		t.Fatalf("expected /v0 base path, got %q", cfg.Server.BasePath)
	}
	if len(cfg.Board.Columns) != 5 {
		t.Fatalf("expected 5 board columns, got %v", cfg.Board.Columns)
	}
}

func TestFromYAMLKeepsDefaultsForMissingSections(t *testing.T) {
	cfg, err := FromYAML([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug, got %q", cfg.Log.Level)
	}
	if cfg.Defaults.TaskStatus != "todo" {
		t.Fatalf("expected default task status todo, got %q", cfg.Defaults.TaskStatus)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"board:\n  columns: [later]\n":           "board.columns",
		"defaults:\n  persona_color: blue\n":     "persona_color",
		"defaults:\n  task_priority: urgent\n":   "task_priority",
		"board:\n  direction: sideways\n":        "direction",
		"server:\n  base_path: v0\n":             "base_path",
		"log:\n  format: xml\n":                  "log.format",
	}
	for doc, want := range cases {
		_, err := FromYAML([]byte(doc))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("yaml %q: expected error mentioning %s, got %v", doc, want, err)
		}
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefault(dir, false)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
	if _, err := WriteDefault(dir, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if _, err := WriteDefault(dir, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr == "" {
		t.Fatalf("expected server addr")
	}
}
