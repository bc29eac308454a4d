package service

import (
	"context"
	"errors"
	"newsreel_backend/internal/model"
	"newsreel_backend/internal/testutil"
	"newsreel_backend/internal/util"
	"testing"
)

func percents(views []ChoiceView) []int {
	out := make([]int, len(views))
	for i, v := range views {
		if v.Votes == nil {
			out[i] = -1
			continue
		}
		out[i] = *v.Votes
	}
	return out
}

func TestBuildChoiceViews(t *testing.T) {
	cases := []struct {
		name   string
		votes  []int
		voted  map[uint]bool
		expect []int
	}{
		{"three way tie", []int{1, 1, 1}, map[uint]bool{1: true}, []int{34, 33, 33}},
		{"even split", []int{1, 1}, map[uint]bool{2: true}, []int{50, 50}},
		{"two of three", []int{2, 1, 0}, map[uint]bool{1: true}, []int{67, 33, 0}},
		{"largest not first", []int{1, 4, 1}, map[uint]bool{3: true}, []int{16, 67, 16}},
		{"not voted", []int{3, 1}, nil, []int{-1, -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			choices := make([]model.Choice, len(tc.votes))
			total := 0
			for i, v := range tc.votes {
				choices[i] = model.Choice{ID: uint(i + 1), ChoiceText: "c", Votes: v}
				total += v
			}
			got := percents(BuildChoiceViews(choices, total, tc.voted))
			for i := range got {
				if got[i] != tc.expect[i] {
					t.Fatalf("expected %v, got %v", tc.expect, got)
				}
			}
		})
	}
}

func TestBuildChoiceViewsZeroTotal(t *testing.T) {
	choices := []model.Choice{{ID: 1, ChoiceText: "a"}, {ID: 2, ChoiceText: "b"}}
	views := BuildChoiceViews(choices, 0, map[uint]bool{1: true})
	for _, v := range views {
		if v.Votes == nil || *v.Votes != 0 {
			t.Fatalf("expected zero percent without a max choice, got %v", percents(views))
		}
	}
	if !*views[0].IsVoted || *views[1].IsVoted {
		t.Fatalf("unexpected is_voted flags")
	}
}

func TestVotePollChoice(t *testing.T) {
	h := newHarness(t)
	a := testutil.CreateUser(t, h.db, "alice")
	b := testutil.CreateUser(t, h.db, "bob")
	ctx := context.Background()

	poll, err := h.posts.CreatePoll(ctx, a.ID, PollRequest{Question: "tabs?", Category: "tech", ChoicesText: []string{"yes", "no"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	yes, no := poll.Choices[0].ID, poll.Choices[1].ID

	resp, err := h.polls.VotePollChoice(ctx, poll.ID, yes, b.ID)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if *resp.Votes != 1 || *resp.Choices[0].Votes != 100 || !*resp.Choices[0].IsVoted {
		t.Fatalf("unexpected poll after vote: %+v", resp.Choices)
	}

	// 同一选项再投一次不改变计数
	again, err := h.polls.VotePollChoice(ctx, poll.ID, yes, b.ID)
	if err != nil {
		t.Fatalf("repeat vote: %v", err)
	}
	if *again.Votes != 1 {
		t.Fatalf("repeat vote must be a no-op, votes=%d", *again.Votes)
	}

	if _, err := h.polls.VotePollChoice(ctx, poll.ID, no, b.ID); !errors.Is(err, util.ErrAlreadyVotedInPoll) {
		t.Fatalf("expected already voted, got %v", err)
	}
	var c model.Choice
	h.db.First(&c, no)
	if c.Votes != 0 {
		t.Fatalf("rejected vote must not count, got %d", c.Votes)
	}

	if _, err := h.polls.VotePollChoice(ctx, poll.ID, no+100, a.ID); !errors.Is(err, util.ErrChoiceNotFound) {
		t.Fatalf("expected choice not found, got %v", err)
	}
	if _, err := h.polls.VotePollChoice(ctx, poll.ID+100, yes, a.ID); !errors.Is(err, util.ErrPostNotFound) {
		t.Fatalf("expected post not found, got %v", err)
	}

	psa, err := h.posts.CreatePSA(ctx, a.ID, PSARequest{Text: "x", Category: "c", Slug: "s"})
	if err != nil {
		t.Fatalf("create psa: %v", err)
	}
	if _, err := h.polls.VotePollChoice(ctx, psa.ID, yes, a.ID); !errors.Is(err, util.ErrChoiceNotFound) {
		t.Fatalf("voting on a non-poll post: got %v", err)
	}
}

func TestVoteChoiceFromAnotherPoll(t *testing.T) {
	h := newHarness(t)
	a := testutil.CreateUser(t, h.db, "alice")
	ctx := context.Background()

	first, _ := h.posts.CreatePoll(ctx, a.ID, PollRequest{Question: "one", Category: "c", ChoicesText: []string{"a", "b"}})
	second, _ := h.posts.CreatePoll(ctx, a.ID, PollRequest{Question: "two", Category: "c", ChoicesText: []string{"a", "b"}})

	if _, err := h.polls.VotePollChoice(ctx, first.ID, second.Choices[0].ID, a.ID); !errors.Is(err, util.ErrChoiceNotFound) {
		t.Fatalf("expected choice not found, got %v", err)
	}
}
