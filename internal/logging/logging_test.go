package logging

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestDir(t *testing.T) {
	t.Setenv("LOGS_FOLDER", "")
	if got := Dir("/tmp/fv"); got != filepath.Join("/tmp/fv", "logs") {
		t.Fatalf("Dir = %q", got)
	}
	if got := Dir(""); got != "logs" {
		t.Fatalf("Dir(\"\") = %q", got)
	}
	t.Setenv("LOGS_FOLDER", "/var/log/fv")
	if got := Dir("/tmp/fv"); got != "/var/log/fv" {
		t.Fatalf("Dir with LOGS_FOLDER = %q", got)
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	f := levelFilter{min: zerolog.WarnLevel, w: &buf}
	if _, err := f.WriteLevel(zerolog.InfoLevel, []byte("info\n")); err != nil {
		t.Fatalf("WriteLevel: %v", err)
	}
	if _, err := f.WriteLevel(zerolog.ErrorLevel, []byte("error\n")); err != nil {
		t.Fatalf("WriteLevel: %v", err)
	}
	if buf.String() != "error\n" {
		t.Fatalf("filtered output = %q", buf.String())
	}
}

func TestInitCreatesLogDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOGS_FOLDER", filepath.Join(dir, "nested", "logs"))
	if err := Init(false, ""); err != nil {
		t.Fatalf("Init: %v", err)
	}
}
