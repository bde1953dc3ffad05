// Package models defines account plan and usage tracking fields.
package models

import (
	"strings"
	"time"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanPro     Plan = "pro"
)

// PlanLimits are the usage ceilings a plan grants for one billing period.
type PlanLimits struct {
	ReposLimit int
	LocLimit   int
}

var planLimits = map[Plan]PlanLimits{
	PlanFree:    {ReposLimit: 1, LocLimit: 25000},
	PlanStarter: {ReposLimit: 4, LocLimit: 100000},
	PlanPro:     {ReposLimit: 30, LocLimit: 800000},
}

// LimitsForPlan maps a plan name to its ceilings. Unrecognized plans fall
// back to the free tier.
func LimitsForPlan(p Plan) PlanLimits {
	if limits, ok := planLimits[p]; ok {
		return limits
	}
	return planLimits[PlanFree]
}

// PlanFromName normalizes a marketplace listing name such as "Starter Pack"
// or "Pro Pack" to a plan. Unrecognized names map to free.
func PlanFromName(name string) Plan {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "pro"):
		return PlanPro
	case strings.Contains(lower, "starter"):
		return PlanStarter
	default:
		return PlanFree
	}
}

// Usage tracks what an account has consumed against its plan ceilings.
// ReposCount is denormalized from the repos set and may lag it by one while
// an install event is in flight.
type Usage struct {
	ReposCount int `json:"repos_count"`
	ReposLimit int `json:"repos_limit"`
	LocCount   int `json:"loc_count"`
	LocLimit   int `json:"loc_limit"`
}

// Account is the billed entity owning zero or more repositories. Repo names
// are stored lowercased as "owner/name" so the reverse lookup from a webhook
// payload is case-insensitive.
type Account struct {
	ID                   string
	GithubID             string
	Email                string
	Name                 string
	Plan                 Plan
	Repos                []string
	Usage                Usage
	StripeCustomerID     string
	StripeSubscriptionID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
