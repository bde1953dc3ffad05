// Package app enforces per-account repo and lines-of-code quotas.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
)

// QuotaIssue names which ceiling a denied request ran into.
type QuotaIssue string

const (
	QuotaIssueNone  QuotaIssue = ""
	QuotaIssueLoc   QuotaIssue = "loc"
	QuotaIssueRepos QuotaIssue = "repos"
)

// EvaluateQuota applies both quota predicates and reports the violated one.
// The lines-of-code check is additive: projected lines plus already-consumed
// lines must stay within the ceiling, boundaries inclusive. When both
// predicates fail, the lines-of-code violation is reported.
func EvaluateQuota(acct models.Account, projectedLines int) QuotaIssue {
	withinLoc := projectedLines+acct.Usage.LocCount <= acct.Usage.LocLimit
	withinRepos := acct.Usage.ReposCount <= acct.Usage.ReposLimit

	if withinLoc && withinRepos {
		return QuotaIssueNone
	}
	if !withinLoc {
		return QuotaIssueLoc
	}
	return QuotaIssueRepos
}

// CheckQuota evaluates the account against the projected cost of this
// analysis. On denial it posts an explanatory comment on the pull request
// naming the exact limit; failure to post is logged, not surfaced.
func CheckQuota(ctx context.Context, gh GithubService, acct models.Account, params models.RequestParams, projectedLines int) bool {
	issue := EvaluateQuota(acct, projectedLines)
	if issue == QuotaIssueNone {
		return true
	}

	body := quotaIssueComment(issue, acct)
	if err := gh.CreateComment(ctx, params, body); err != nil {
		log.Printf("failed to post comment about billing problem: %v", err)
	}
	return false
}

func quotaIssueComment(issue QuotaIssue, acct models.Account) string {
	if issue == QuotaIssueLoc {
		return strings.Join([]string{
			"## :robot: Explain this PR :robot:",
			fmt.Sprintf("You have reached the limit of %d lines of code for this month.", acct.Usage.LocLimit),
			"Wait until the next month to resume the service or upgrade your subscription.",
			"If this is a mistake, please [contact us](https://tally.so/r/3jZG9E) and we will fix it ASAP",
		}, "\n")
	}
	return strings.Join([]string{
		"## :robot: Explain this PR :robot:",
		fmt.Sprintf("You have reached the limit of %d repos.", acct.Usage.ReposLimit),
		"Please remove a repo from your account to resume the service.",
		"If this is a mistake, please [contact us](https://tally.so/r/3jZG9E) and we will fix it ASAP",
	}, "\n")
}

// CommitUsage increments the account's consumed lines after a paid
// summarization. The check-then-commit pair is intentionally two round-trips;
// a failure here is logged and never rolls back the already-posted comment.
func CommitUsage(ctx context.Context, accountID string, linesChanged int) {
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx, `
		UPDATE accounts
		SET loc_count = loc_count + $1, updated_at = now()
		WHERE id = $2;
	`, linesChanged, accountID)
	if err != nil {
		log.Printf("failed to commit usage account=%s lines=%d err=%v", accountID, linesChanged, err)
	}
}
