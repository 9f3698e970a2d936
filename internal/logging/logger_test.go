package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskPayload(t *testing.T) {
	payload := map[string]any{
		"password":    "123456789",
		"app_version": "2.11.21",
	}

	masked := MaskPayload(payload)

	if masked["password"] != "***" {
		t.Errorf("masked password = %v, want ***", masked["password"])
	}
	if masked["app_version"] != "2.11.21" {
		t.Errorf("app_version = %v, want 2.11.21", masked["app_version"])
	}
	if payload["password"] != "123456789" {
		t.Error("MaskPayload modified its input")
	}
}

func TestLogGatewayRequestNeverContainsPassword(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogGatewayRequest("/cgi-bin/cgi/GatewayLogin", MaskPayload(map[string]any{
		"password":    "s3cret",
		"app_version": "2.11.21",
	}))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	for k, v := range entries[0].ContextMap() {
		if strings.Contains(strings.ToLower(toString(v)), "s3cret") {
			t.Errorf("field %s leaked the password: %v", k, v)
		}
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a", maxBodyLog+10)
	got := excerpt([]byte(long))
	if !strings.HasSuffix(got, "...") {
		t.Error("long body should be truncated")
	}
	if len(got) != maxBodyLog+3 {
		t.Errorf("excerpt length = %d, want %d", len(got), maxBodyLog+3)
	}

	if got := excerpt([]byte("short")); got != "short" {
		t.Errorf("excerpt(short) = %q", got)
	}
}

func TestGetLoggerDefaultsToNop(t *testing.T) {
	SetLogger(nil)
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		var b strings.Builder
		for k, inner := range val {
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(toString(inner))
			b.WriteString(" ")
		}
		return b.String()
	}
	return ""
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zap.ErrorLevel) {
		t.Error("logger should be silent without a level")
	}
}

func TestInitializeRejectsUnknownLevel(t *testing.T) {
	defer SetLogger(nil)
	if err := Initialize("chatty"); err == nil {
		t.Error("Initialize(chatty) should fail")
	}
}

func TestInitializeToFile(t *testing.T) {
	defer SetLogger(nil)
	path := filepath.Join(t.TempDir(), "normanctl.log")

	if err := InitializeTo("WARN", path); err != nil {
		t.Fatalf("InitializeTo() error = %v", err)
	}
	Info("dropped")
	Warn("kept")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Errorf("log file = %q", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("log file should not contain color codes")
	}
}
