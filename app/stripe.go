package app

import (
	"context"
	"errors"
	"log"

	"github.com/ExplainThisPR/explain-this-pr/app/config"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
)

// InitStripe wires the Stripe API key from the environment.
func InitStripe() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for stripe: %v", err)
	}
	stripe.Key = cfg.Stripe.SecretKey
}

// ensureStripeCustomer finds or creates a Stripe Customer for the given
// account. It uses accounts.stripe_customer_id when present, otherwise
// creates a new customer with metadata github_id = <githubID> and stores it.
func ensureStripeCustomer(ctx context.Context, githubID, email string) (string, error) {
	if db == nil {
		return "", errors.New("db not initialized")
	}
	if githubID == "" {
		return "", errors.New("missing github id")
	}

	acct, err := findAccountByGithubID(ctx, githubID)
	if err != nil {
		return "", err
	}

	if acct.StripeCustomerID != "" {
		return acct.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Metadata: map[string]string{
			"github_id": githubID,
		},
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	cust, err := customer.New(params)
	if err != nil {
		return "", err
	}

	_, err = db.ExecContext(
		ctx,
		`
			UPDATE accounts
			SET stripe_customer_id = $1, updated_at = now()
			WHERE github_id = $2;
		`,
		cust.ID,
		githubID,
	)
	if err != nil {
		return "", err
	}

	return cust.ID, nil
}
