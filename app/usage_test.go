package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
)

func accountWithUsage(u models.Usage) models.Account {
	return models.Account{ID: "acct-1", GithubID: "42", Plan: models.PlanStarter, Usage: u}
}

func TestEvaluateQuota(t *testing.T) {
	cases := []struct {
		name      string
		usage     models.Usage
		projected int
		want      QuotaIssue
	}{
		{
			name:      "well within both ceilings",
			usage:     models.Usage{ReposCount: 1, ReposLimit: 4, LocCount: 500, LocLimit: 100000},
			projected: 300,
			want:      QuotaIssueNone,
		},
		{
			name:      "projected lands exactly on the loc ceiling",
			usage:     models.Usage{ReposCount: 1, ReposLimit: 4, LocCount: 99000, LocLimit: 100000},
			projected: 1000,
			want:      QuotaIssueNone,
		},
		{
			name:      "projected overshoots the loc ceiling by one",
			usage:     models.Usage{ReposCount: 1, ReposLimit: 4, LocCount: 99000, LocLimit: 100000},
			projected: 1001,
			want:      QuotaIssueLoc,
		},
		{
			name:      "repo count equal to the limit still passes",
			usage:     models.Usage{ReposCount: 4, ReposLimit: 4, LocCount: 0, LocLimit: 100000},
			projected: 10,
			want:      QuotaIssueNone,
		},
		{
			name:      "repo count over the limit",
			usage:     models.Usage{ReposCount: 5, ReposLimit: 4, LocCount: 0, LocLimit: 100000},
			projected: 10,
			want:      QuotaIssueRepos,
		},
		{
			name:      "both ceilings violated reports loc",
			usage:     models.Usage{ReposCount: 5, ReposLimit: 4, LocCount: 100000, LocLimit: 100000},
			projected: 1,
			want:      QuotaIssueLoc,
		},
		{
			name:      "inert account with zero ceilings",
			usage:     models.Usage{},
			projected: 1,
			want:      QuotaIssueLoc,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EvaluateQuota(accountWithUsage(tc.usage), tc.projected)
			if got != tc.want {
				t.Fatalf("quota issue: got %q want %q", got, tc.want)
			}
		})
	}
}

// commentRecorder implements GithubService and records every call.
type commentRecorder struct {
	mu         sync.Mutex
	files      []models.ChangedFile
	listErr    error
	postErr    error
	listParams []models.RequestParams
	comments   []string
}

func (r *commentRecorder) ListFiles(_ context.Context, params models.RequestParams) ([]models.ChangedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listParams = append(r.listParams, params)
	return r.files, r.listErr
}

func (r *commentRecorder) CreateComment(_ context.Context, _ models.RequestParams, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments = append(r.comments, body)
	return r.postErr
}

func TestCheckQuotaAllows(t *testing.T) {
	rec := &commentRecorder{}
	acct := accountWithUsage(models.Usage{ReposCount: 1, ReposLimit: 4, LocCount: 0, LocLimit: 100000})

	if !CheckQuota(context.Background(), rec, acct, models.RequestParams{}, 500) {
		t.Fatalf("expected quota check to pass")
	}
	if len(rec.comments) != 0 {
		t.Fatalf("no comment expected on an allowed run, got %d", len(rec.comments))
	}
}

func TestCheckQuotaDeniedPostsLimitComment(t *testing.T) {
	rec := &commentRecorder{}
	acct := accountWithUsage(models.Usage{ReposCount: 1, ReposLimit: 4, LocCount: 99999, LocLimit: 100000})

	if CheckQuota(context.Background(), rec, acct, models.RequestParams{}, 500) {
		t.Fatalf("expected quota check to fail")
	}
	if len(rec.comments) != 1 {
		t.Fatalf("expected one denial comment, got %d", len(rec.comments))
	}
	want := fmt.Sprintf("limit of %d lines of code", acct.Usage.LocLimit)
	if !strings.Contains(rec.comments[0], want) {
		t.Fatalf("denial comment missing %q: %s", want, rec.comments[0])
	}
}

func TestQuotaIssueCommentNamesTheRepoLimit(t *testing.T) {
	acct := accountWithUsage(models.Usage{ReposCount: 5, ReposLimit: 4})
	body := quotaIssueComment(QuotaIssueRepos, acct)
	if !strings.Contains(body, "limit of 4 repos") {
		t.Fatalf("repo denial comment missing limit: %s", body)
	}
}

func TestCanAddRepo(t *testing.T) {
	// Below the ceiling on both the set and the counter.
	if !canAddRepo(2, 2, 4) {
		t.Fatalf("add below the ceiling refused")
	}
	// Set already at the ceiling.
	if canAddRepo(4, 4, 4) {
		t.Fatalf("add at the ceiling allowed")
	}
	// Counter lagging the set by one mid-removal must not block the add.
	if !canAddRepo(3, 4, 4) {
		t.Fatalf("counter lag of one blocked the add")
	}
}
