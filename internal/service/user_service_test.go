package service

import (
	"context"
	"errors"
	"newsreel_backend/internal/testutil"
	"newsreel_backend/internal/util"
	"os"
	"path/filepath"
	"testing"
)

func TestGetUserFlags(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateUser(t, h.db, "subject")
	viewer := testutil.CreateUser(t, h.db, "viewer")
	ctx := context.Background()

	p, err := h.profiles.Get(ctx, subject.ID, viewer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.IsReviewed || p.IsSubscribed {
		t.Fatalf("expected no flags yet")
	}

	if _, err := h.follows.Follow(ctx, viewer.ID, subject.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if _, err := h.reviews.Create(ctx, viewer.ID, reviewOf(subject.ID, 4)); err != nil {
		t.Fatalf("review: %v", err)
	}
	p, err = h.profiles.Get(ctx, subject.ID, viewer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !p.IsReviewed || !p.IsSubscribed || p.Subscribers != 1 || p.OwnReviews != 1 {
		t.Fatalf("unexpected profile %+v", p)
	}

	anon, err := h.profiles.Get(ctx, subject.ID, 0)
	if err != nil || anon.IsReviewed || anon.IsSubscribed {
		t.Fatalf("anonymous viewer must see no flags: %v", err)
	}
	if _, err := h.profiles.Get(ctx, 9999, 0); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	h := newHarness(t)
	a := testutil.CreateUser(t, h.db, "alice")
	testutil.CreateUser(t, h.db, "bob")
	ctx := context.Background()

	if _, err := h.profiles.Update(ctx, a.ID, a.ID+1, UpdateUserRequest{Bio: util.StringPtr("x")}, nil); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if _, err := h.profiles.Update(ctx, a.ID, a.ID, UpdateUserRequest{Username: util.StringPtr("bob")}, nil); util.KindOf(err) != util.KindConflict {
		t.Fatalf("expected username conflict, got %v", err)
	}

	p, err := h.profiles.Update(ctx, a.ID, a.ID, UpdateUserRequest{
		Username: util.StringPtr("alice2"),
		Bio:      util.StringPtr("  reporter  "),
		Twitter:  util.StringPtr(""),
	}, pngFile(t, "avatar"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.Username != "alice2" || p.Bio == nil || *p.Bio != "reporter" || p.Twitter != nil {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p.Avatar == "" || p.Avatar != p.AvatarThumbnail {
		t.Fatalf("avatar and thumbnail must match: %q %q", p.Avatar, p.AvatarThumbnail)
	}
	first := testutil.Reload(t, h.db, a.ID).Avatar

	if _, err := h.profiles.Update(ctx, a.ID, a.ID, UpdateUserRequest{}, pngFile(t, "avatar")); err != nil {
		t.Fatalf("second avatar: %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Storage.LocalPath, filepath.FromSlash(first))); !os.IsNotExist(err) {
		t.Fatalf("previous avatar should be deleted, stat err=%v", err)
	}
}
