package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitWriteClose(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	Info("hello %s", "world")
	Error("bad %s", "thing")

	logPath := filepath.Join(dir, "brainforge_"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "[INFO]") || !strings.Contains(content, "hello world") {
		t.Fatalf("info entry missing: %s", content)
	}
	if !strings.Contains(content, "[ERROR]") || !strings.Contains(content, "bad thing") {
		t.Fatalf("error entry missing: %s", content)
	}

	if err := Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := Close(); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}

	// After Close the package falls back to the default logger.
	Info("after close")
}

func TestCloseWithoutInit(t *testing.T) {
	if err := Close(); err != nil {
		t.Fatalf("close without init should be a no-op: %v", err)
	}
}
