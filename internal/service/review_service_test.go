package service

import (
	"context"
	"errors"
	"newsreel_backend/internal/testutil"
	"newsreel_backend/internal/util"
	"strconv"
	"testing"
)

func reviewOf(subject uint, score int) ReviewRequest {
	return ReviewRequest{
		User:         subject,
		Text:         "solid reporting",
		Ethics:       score,
		Trust:        score,
		Accuracy:     score,
		Fairness:     score,
		Contribution: score,
		Expertise:    score,
	}
}

func TestCreateReviewUpdatesStats(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateUser(t, h.db, "subject")
	a := testutil.CreateUser(t, h.db, "alice")
	b := testutil.CreateUser(t, h.db, "bob")
	ctx := context.Background()

	first, err := h.reviews.Create(ctx, a.ID, reviewOf(subject.ID, 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Rating != 5 || first.Author.Username != "alice" {
		t.Fatalf("unexpected review %+v", first)
	}

	req := reviewOf(subject.ID, 2)
	req.Expertise = 5
	if _, err := h.reviews.Create(ctx, b.ID, req); err != nil {
		t.Fatalf("second: %v", err)
	}

	u := testutil.Reload(t, h.db, subject.ID)
	if u.OwnReviews != 2 {
		t.Fatalf("expected own_reviews=2, got %d", u.OwnReviews)
	}
	if u.Ethics != 3.5 || u.Expertise != 5 {
		t.Fatalf("unexpected averages ethics=%v expertise=%v", u.Ethics, u.Expertise)
	}
	// (5 + 2.5) / 2
	if u.Rating != 3.75 {
		t.Fatalf("expected rating 3.75, got %v", u.Rating)
	}
	if got := testutil.Reload(t, h.db, a.ID).Reviews; got != 1 {
		t.Fatalf("expected author reviews=1, got %d", got)
	}
}

func TestCreateReviewRules(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateUser(t, h.db, "subject")
	a := testutil.CreateUser(t, h.db, "alice")
	ctx := context.Background()

	if _, err := h.reviews.Create(ctx, subject.ID, reviewOf(subject.ID, 3)); !errors.Is(err, util.ErrCannotReviewSelf) {
		t.Fatalf("expected self review error, got %v", err)
	}
	if _, err := h.reviews.Create(ctx, a.ID, reviewOf(9999, 3)); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected invalid pk, got %v", err)
	}
	bad := reviewOf(subject.ID, 3)
	bad.Trust = 6
	_, err := h.reviews.Create(ctx, a.ID, bad)
	var appErr *util.AppError
	if !errors.As(err, &appErr) || appErr.Fields["trust"] == "" {
		t.Fatalf("expected trust range error, got %v", err)
	}

	if _, err := h.reviews.Create(ctx, a.ID, reviewOf(subject.ID, 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.reviews.Create(ctx, a.ID, reviewOf(subject.ID, 4)); !errors.Is(err, util.ErrAlreadyReviewed) {
		t.Fatalf("expected already reviewed, got %v", err)
	}
	if got := testutil.Reload(t, h.db, subject.ID).OwnReviews; got != 1 {
		t.Fatalf("duplicate must not count, got %d", got)
	}
}

func TestDeleteReviewResetsStats(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateUser(t, h.db, "subject")
	a := testutil.CreateUser(t, h.db, "alice")
	ctx := context.Background()

	review, err := h.reviews.Create(ctx, a.ID, reviewOf(subject.ID, 4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.reviews.Reply(ctx, review.ID, subject.ID, "thanks"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := h.reports.Create(ctx, subject.ID, ReportRequest{Review: &review.ID}); err != nil {
		t.Fatalf("report: %v", err)
	}

	if err := h.reviews.Delete(ctx, review.ID, subject.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("only the author may delete, got %v", err)
	}
	if err := h.reviews.Delete(ctx, review.ID, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	u := testutil.Reload(t, h.db, subject.ID)
	if u.OwnReviews != 0 || u.Rating != 0 || u.Trust != 0 {
		t.Fatalf("expected stats reset, got own=%d rating=%v trust=%v", u.OwnReviews, u.Rating, u.Trust)
	}
	if got := testutil.Reload(t, h.db, a.ID).Reviews; got != 0 {
		t.Fatalf("expected author reviews=0, got %d", got)
	}
	for _, table := range []string{"replies", "reports", "reviews"} {
		var n int64
		h.db.Table(table).Count(&n)
		if n != 0 {
			t.Fatalf("expected %s empty, got %d", table, n)
		}
	}
}

func TestReviewVotesAndReply(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateUser(t, h.db, "subject")
	a := testutil.CreateUser(t, h.db, "alice")
	b := testutil.CreateUser(t, h.db, "bob")
	ctx := context.Background()

	review, _ := h.reviews.Create(ctx, a.ID, reviewOf(subject.ID, 4))

	resp, err := h.reviews.Vote(ctx, review.ID, b.ID, true)
	if err != nil || resp.AgreedNum != 1 || !resp.IsAgreed {
		t.Fatalf("agree: %v %+v", err, resp)
	}
	resp, err = h.reviews.Vote(ctx, review.ID, b.ID, false)
	if err != nil || resp.AgreedNum != 0 || resp.DisagreedNum != 1 || !resp.IsDisagreed {
		t.Fatalf("switch to disagree: %v %+v", err, resp)
	}

	if _, err := h.reviews.VoteReply(ctx, review.ID, b.ID, true); !errors.Is(err, util.ErrReplyNotFound) {
		t.Fatalf("expected reply not found, got %v", err)
	}
	if _, err := h.reviews.Reply(ctx, review.ID, b.ID, "not mine"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("only the subject may reply, got %v", err)
	}
	if _, err := h.reviews.Reply(ctx, review.ID, subject.ID, "thanks"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	if _, err := h.reviews.Reply(ctx, review.ID, subject.ID, "again"); !errors.Is(err, util.ErrAlreadyReplied) {
		t.Fatalf("expected already replied, got %v", err)
	}

	resp, err = h.reviews.VoteReply(ctx, review.ID, a.ID, true)
	if err != nil {
		t.Fatalf("vote reply: %v", err)
	}
	if resp.Reply == nil || resp.Reply.Text != "thanks" || resp.Reply.AgreedNum != 1 {
		t.Fatalf("unexpected reply %+v", resp.Reply)
	}
}

func TestListReviews(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateUser(t, h.db, "subject")
	a := testutil.CreateUser(t, h.db, "alice")
	b := testutil.CreateUser(t, h.db, "bob")
	ctx := context.Background()

	low, _ := h.reviews.Create(ctx, a.ID, reviewOf(subject.ID, 1))
	high, _ := h.reviews.Create(ctx, b.ID, reviewOf(subject.ID, 5))

	if _, _, err := h.reviews.List(ctx, "", "", 0, 1, 10); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected error for missing user_id, got %v", err)
	}
	if _, _, err := h.reviews.List(ctx, "abc", "", 0, 1, 10); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected invalid user_id, got %v", err)
	}

	key := strconv.FormatUint(uint64(subject.ID), 10)
	list, total, err := h.reviews.List(ctx, key, "-rating", 0, 1, 10)
	if err != nil || total != 2 {
		t.Fatalf("list: %v total=%d", err, total)
	}
	if list[0].ID != high.ID || list[1].ID != low.ID {
		t.Fatalf("expected rating descending")
	}
	list, _, err = h.reviews.List(ctx, key, "id", 0, 1, 10)
	if err != nil || list[0].ID != low.ID {
		t.Fatalf("expected id ascending: %v", err)
	}
	if _, _, err := h.reviews.List(ctx, key, "text", 0, 1, 10); util.KindOf(err) != util.KindValidation {
		t.Fatalf("expected invalid ordering, got %v", err)
	}
}
