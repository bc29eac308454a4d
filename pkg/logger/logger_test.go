package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	// 未初始化时也不能 panic
	Log.Info("noop logger", zap.String("k", "v"))
}

func TestSetMode(t *testing.T) {
	SetMode("debug")
	if Level() != zap.DebugLevel {
		t.Fatalf("expected debug level, got %v", Level())
	}
	SetMode("release")
	if Level() != zap.InfoLevel {
		t.Fatalf("expected info level, got %v", Level())
	}
}
