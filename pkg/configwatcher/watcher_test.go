package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"newsreel_backend/internal/config"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	write := func(mode string) {
		body := "server:\n  mode: " + mode + "\nstorage:\n  local_path: " + filepath.Join(dir, "uploads") + "\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("release")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 50*time.Millisecond, func(cfg *config.Config) {
			reloaded <- cfg
		})
	}()

	// 等待 watcher 就绪
	time.Sleep(200 * time.Millisecond)
	write("debug")

	select {
	case cfg := <-reloaded:
		if cfg.Server.Mode != "debug" {
			t.Fatalf("expected reloaded mode debug, got %q", cfg.Server.Mode)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop after cancel")
	}
}
