package main

import (
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"lifeline/internal/app"
	"lifeline/internal/config"
	"lifeline/internal/domain"
	"lifeline/internal/view"
)

func TestSetEnvValueKeepsOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := setEnvValue(path, "LIFELINE_SERVER", "http://127.0.0.1:8420"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := setEnvValue(path, "LIFELINE_TOKEN", "abc"); err != nil {
		t.Fatalf("second write: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if env["LIFELINE_SERVER"] != "http://127.0.0.1:8420" || env["LIFELINE_TOKEN"] != "abc" {
		t.Fatalf("unexpected env %v", env)
	}
}

func TestListFlagsQuery(t *testing.T) {
	s := &app.Session{Config: config.Default()}

	lf := listFlags{personaID: view.All, workstreamID: "ws1", statuses: []string{"In Progress", "bogus"}, sort: "priority", desc: true}
	f, sort, err := lf.query(s)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if f.WorkstreamID != "ws1" || len(f.Statuses) != 1 || f.Statuses[0] != domain.TaskInProgress {
		t.Fatalf("unexpected filters %+v", f)
	}
	if sort.Field != view.Priority || sort.Direction != view.Desc {
		t.Fatalf("unexpected sort %+v", sort)
	}

	lf = listFlags{sort: "color"}
	if _, _, err := lf.query(s); err == nil {
		t.Fatal("expected unknown sort field error")
	}

	lf = listFlags{}
	f, sort, err = lf.query(s)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(f.Statuses) != len(view.DefaultFilters().Statuses) {
		t.Fatalf("expected every status selected, got %v", f.Statuses)
	}
	if sort != view.DefaultSort() {
		t.Fatalf("expected configured default sort, got %+v", sort)
	}
}
