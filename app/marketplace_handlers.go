package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ExplainThisPR/explain-this-pr/app/config"
	"github.com/ExplainThisPR/explain-this-pr/app/models"

	"github.com/gin-gonic/gin"
)

// marketplaceEvent is the GitHub Marketplace purchase payload subset we use.
type marketplaceEvent struct {
	Action              string `json:"action"`
	MarketplacePurchase struct {
		Account struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
		} `json:"account"`
		Plan struct {
			Name string `json:"name"`
		} `json:"plan"`
	} `json:"marketplace_purchase"`
}

// MarketplaceWebhook syncs plan ceilings from GitHub Marketplace purchase
// events. Deliveries are signed with the same shared secret as the app
// webhook.
func MarketplaceWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Printf("marketplace webhook body read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("marketplace webhook config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "webhook not configured"})
		return
	}

	if !VerifySignature(cfg.Github.WebhookSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		log.Printf("marketplace webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"message": "Forbidden. Signature verification failed."})
		return
	}

	var event marketplaceEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("marketplace event unmarshal failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}

	githubID := strconv.FormatInt(event.MarketplacePurchase.Account.ID, 10)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := EnsureAccount(ctx, githubID, "", event.MarketplacePurchase.Account.Login); err != nil {
		log.Printf("failed to ensure account github_id=%s: %v", githubID, err)
	}

	switch event.Action {
	case "purchased", "changed":
		plan := models.PlanFromName(event.MarketplacePurchase.Plan.Name)
		if err := ApplyPlan(ctx, githubID, plan); err != nil {
			log.Printf("failed to apply plan %q github_id=%s: %v", plan, githubID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update account"})
			return
		}
	case "cancelled":
		// Cancellation resets to the free tier; the account is never deleted.
		if err := ApplyPlan(ctx, githubID, models.PlanFree); err != nil {
			log.Printf("failed to reset plan github_id=%s: %v", githubID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update account"})
			return
		}
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Nothing for me to do."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Well, done!"})
}
