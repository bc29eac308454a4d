package service

import (
	"context"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/util"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Storage: config.StorageConfig{Type: util.StorageLocal, LocalPath: dir, PublicBaseURL: "http://cdn.test/"}}
	svc, err := NewStorageService(cfg)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	ctx := context.Background()

	key, err := svc.SaveImage(ctx, util.DirAvatars, pngFile(t, "avatar"), "avatar")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "users/avatars/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if got := svc.GetURL(key); got != "http://cdn.test/uploads/"+key {
		t.Fatalf("unexpected url %q", got)
	}
	if svc.GetURL("") != "" {
		t.Fatalf("empty key must map to empty url")
	}

	path := filepath.Join(dir, filepath.FromSlash(key))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file missing: %v", err)
	}
	if err := svc.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing object must succeed: %v", err)
	}
}

func TestSaveImageRejectsNonImages(t *testing.T) {
	svc := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}}
	_, err := svc.SaveImage(context.Background(), util.DirMemes, fileHeader(t, "image", "x.png", []byte("%PDF-1.4 not an image")), "image")
	if util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
