// Account persistence. Repo names are lowercased on every read and write so
// the reverse lookup from a webhook payload stays case-insensitive.
package app

import (
	"context"
	"database/sql"
	"log"
	"strings"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
	"github.com/ExplainThisPR/explain-this-pr/auth"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const accountColumns = `
	id, github_id, COALESCE(email, ''), COALESCE(name, ''), plan, repos,
	repos_count, repos_limit, loc_count, loc_limit,
	COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
	created_at, updated_at
`

func scanAccount(row *sql.Row) (models.Account, error) {
	var acct models.Account
	err := row.Scan(
		&acct.ID,
		&acct.GithubID,
		&acct.Email,
		&acct.Name,
		&acct.Plan,
		pq.Array(&acct.Repos),
		&acct.Usage.ReposCount,
		&acct.Usage.ReposLimit,
		&acct.Usage.LocCount,
		&acct.Usage.LocLimit,
		&acct.StripeCustomerID,
		&acct.StripeSubscriptionID,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return models.Account{}, err
	}
	return acct, nil
}

// findAccountByRepo resolves the account whose repo set contains the given
// "owner/name" string. This is a set-membership query, not a key fetch.
func findAccountByRepo(ctx context.Context, fullName string) (models.Account, error) {
	if db == nil {
		return models.Account{}, sql.ErrNoRows
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE repos @> ARRAY[$1]::text[]
		LIMIT 1;
	`, strings.ToLower(fullName))
	return scanAccount(row)
}

func findAccountByGithubID(ctx context.Context, githubID string) (models.Account, error) {
	if db == nil {
		return models.Account{}, sql.ErrNoRows
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE github_id = $1;
	`, githubID)
	return scanAccount(row)
}

// EnsureAccount creates an account for the given GitHub identity if none
// exists. New accounts start with zero usage and zero ceilings: they stay
// inert until a plan is applied by a billing event.
func EnsureAccount(ctx context.Context, githubID, email, name string) error {
	if db == nil {
		return nil
	}
	if githubID == "" {
		return nil
	}

	const q = `
		INSERT INTO accounts (
			id, github_id, email, name, plan, repos,
			repos_count, repos_limit, loc_count, loc_limit,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, '{}', 0, 0, 0, 0, now(), now())
		ON CONFLICT (github_id) DO NOTHING;
	`
	_, err := db.ExecContext(ctx, q,
		uuid.NewString(),
		githubID,
		nullIfEmpty(email),
		nullIfEmpty(name),
		models.PlanFree,
	)
	return err
}

// EnsureAccountFromClaims creates an account row for a signed-in user.
func EnsureAccountFromClaims(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.Subject == "" {
		return nil
	}
	email := readStringClaim(claims.Raw, "email")
	name := readStringClaim(claims.Raw, "name")
	return EnsureAccount(ctx, claims.Subject, email, name)
}

// canAddRepo reports whether one more repo fits under the account's ceiling.
// The repo set itself is authoritative; the denormalized counter may lag it
// by one while a concurrent removal is in flight, so it gets a +1 allowance.
func canAddRepo(repoSetSize, reposCount, reposLimit int) bool {
	if repoSetSize >= reposLimit {
		return false
	}
	return reposCount+1 <= reposLimit+1
}

// AddRepos unions the given repo names into the account's set, one at a
// time, re-validating the ceiling before each. Returns false when any repo
// was refused. Already-present repos are a no-op.
func AddRepos(ctx context.Context, githubID string, fullNames []string) bool {
	if db == nil {
		return false
	}

	acct, err := findAccountByGithubID(ctx, githubID)
	if err != nil {
		log.Printf("[AddRepos] account not found github_id=%s err=%v", githubID, err)
		return false
	}

	ok := true
	for _, name := range fullNames {
		lower := strings.ToLower(name)
		if containsRepo(acct.Repos, lower) {
			continue
		}
		if !canAddRepo(len(acct.Repos), acct.Usage.ReposCount, acct.Usage.ReposLimit) {
			log.Printf("[AddRepos] account has reached repo limit github_id=%s limit=%d", githubID, acct.Usage.ReposLimit)
			ok = false
			continue
		}

		_, err := db.ExecContext(ctx, `
			UPDATE accounts
			SET repos = array_append(repos, $1),
				repos_count = cardinality(repos) + 1,
				updated_at = now()
			WHERE github_id = $2 AND NOT (repos @> ARRAY[$1]::text[]);
		`, lower, githubID)
		if err != nil {
			log.Printf("[AddRepos] failed to add repo %s github_id=%s err=%v", lower, githubID, err)
			ok = false
			continue
		}
		acct.Repos = append(acct.Repos, lower)
		acct.Usage.ReposCount = len(acct.Repos)
	}
	return ok
}

// RemoveRepos removes the given repo names from the account's set. Removal
// is idempotent; missing repos are skipped.
func RemoveRepos(ctx context.Context, githubID string, fullNames []string) bool {
	if db == nil {
		return false
	}

	ok := true
	for _, name := range fullNames {
		lower := strings.ToLower(name)
		_, err := db.ExecContext(ctx, `
			UPDATE accounts
			SET repos = array_remove(repos, $1),
				repos_count = GREATEST(cardinality(repos) - 1, 0),
				updated_at = now()
			WHERE github_id = $2 AND repos @> ARRAY[$1]::text[];
		`, lower, githubID)
		if err != nil {
			log.Printf("[RemoveRepos] failed to remove repo %s github_id=%s err=%v", lower, githubID, err)
			ok = false
		}
	}
	return ok
}

// ApplyPlan overwrites the account's usage ceilings and plan. Consumed
// counters are left alone. Unrecognized plan names fall back to free limits.
func ApplyPlan(ctx context.Context, githubID string, plan models.Plan) error {
	if db == nil {
		return nil
	}

	limits := models.LimitsForPlan(plan)
	_, err := db.ExecContext(ctx, `
		UPDATE accounts
		SET plan = $1, repos_limit = $2, loc_limit = $3, updated_at = now()
		WHERE github_id = $4;
	`, plan, limits.ReposLimit, limits.LocLimit, githubID)
	return err
}

func containsRepo(repos []string, name string) bool {
	for _, r := range repos {
		if r == name {
			return true
		}
	}
	return false
}

func readStringClaim(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	val, ok := raw[key]
	if !ok {
		return ""
	}
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
