package model

import "testing"

func TestReviewComputeRating(t *testing.T) {
	r := &Review{Ethics: 5, Trust: 4, Accuracy: 4, Fairness: 3, Contribution: 5, Expertise: 4}
	if got := r.ComputeRating(); got != 4.17 {
		t.Fatalf("expected 4.17, got %v", got)
	}
	if err := r.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if r.Rating != 4.17 {
		t.Fatalf("rating not set, got %v", r.Rating)
	}
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		3.3333: 3.33,
		4.1666: 4.17,
		2.125:  2.12,
		3.625:  3.62,
		5:      5,
		0:      0,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestReportTargetCount(t *testing.T) {
	id := uint(3)
	r := &Report{PostID: &id}
	if r.TargetCount() != 1 {
		t.Fatalf("expected 1 target")
	}
	r.ReviewID = &id
	if r.TargetCount() != 2 {
		t.Fatalf("expected 2 targets")
	}
}

func TestPostTypeValid(t *testing.T) {
	if !PostTypePoll.Valid() {
		t.Fatalf("poll should be valid")
	}
	if PostType("video").Valid() {
		t.Fatalf("video should be invalid")
	}
}
