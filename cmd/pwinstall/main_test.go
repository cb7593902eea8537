package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lemachinarbo/RockShell/internal/engine/mock"
	"github.com/lemachinarbo/RockShell/internal/logging"
)

// isolate keeps the user's config and DDEV environment out of the run.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IS_DDEV_PROJECT", "")
	t.Setenv("DDEV_PROJECT", "")
}

func TestRunUsageErrors(t *testing.T) {
	isolate(t)

	cases := [][]string{
		{"--no-such-flag"},
		{"extra-arg"},
		{"--config", filepath.Join(t.TempDir(), "missing.yaml")},
	}
	for _, args := range cases {
		var out, errOut bytes.Buffer
		if code := run(context.Background(), args, &out, &errOut); code != exitUsage {
			t.Fatalf("run(%q)=%d; want %d (stderr %q)", args, code, exitUsage, errOut.String())
		}
	}
}

func TestRunVersion(t *testing.T) {
	var out bytes.Buffer
	if code := run(context.Background(), []string{"--version"}, &out, &bytes.Buffer{}); code != exitOK {
		t.Fatalf("--version exit=%d", code)
	}
	if !strings.Contains(out.String(), Version) {
		t.Fatalf("version output %q", out.String())
	}
}

func TestDefaultsMergesConfigFile(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	yml := "defaults:\n  timezone: Europe/Berlin\n  dbName: shop\n"
	if err := os.WriteFile(filepath.Join(dir, "pwinstall.yaml"), []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	if code := run(context.Background(), []string{"defaults", "--docroot", dir}, &out, &bytes.Buffer{}); code != exitOK {
		t.Fatalf("defaults exit=%d", code)
	}
	for _, want := range []string{"timezone: Europe/Berlin", "dbName: shop", "dbCharset: utf8mb4"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("defaults output missing %q:\n%s", want, out.String())
		}
	}
}

func TestLazyInstallAgainstMock(t *testing.T) {
	isolate(t)

	m := mock.New(mock.Options{AdminNotices: 1})
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	docroot := t.TempDir()
	args := []string{
		"--docroot", docroot,
		"--host", strings.TrimPrefix(srv.URL, "http://"),
		"--lazy", "--log", "--quiet",
		"--pass", "s3cretpw",
	}
	var out, errOut bytes.Buffer
	if code := run(context.Background(), args, &out, &errOut); code != exitOK {
		t.Fatalf("run exit=%d\nstdout:\n%s\nstderr:\n%s", code, out.String(), errOut.String())
	}
	if m.Stage() != mock.StageFinish {
		t.Fatalf("mock stage=%s; want finish", m.Stage())
	}
	if !strings.Contains(out.String(), "INSTALL SUCCESSFUL") {
		t.Fatalf("stdout lacks success line:\n%s", out.String())
	}

	data, err := os.ReadFile(filepath.Join(docroot, logging.LogFileName))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if !strings.Contains(string(data), "| Result | Completed |") {
		t.Fatalf("run log lacks result:\n%s", data)
	}
	if strings.Contains(string(data), "s3cretpw") {
		t.Fatalf("run log leaks the password")
	}
}
