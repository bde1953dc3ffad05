package app

import (
	"context"
	"log"
)

// bumpPublicStats increments the single global counter row after a completed
// analysis. Best-effort: failures are logged and never affect the response.
func bumpPublicStats(ctx context.Context, linesAnalyzed int) {
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx, `
		UPDATE public_stats
		SET runs = runs + 1, loc_analyzed = loc_analyzed + $1, last_run_at = now();
	`, linesAnalyzed)
	if err != nil {
		log.Printf("failed to update public stats: %v", err)
	}
}
