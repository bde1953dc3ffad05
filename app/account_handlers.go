// Public health and authenticated account endpoints.
package app

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
	"github.com/ExplainThisPR/explain-this-pr/auth"

	"github.com/gin-gonic/gin"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the plan and usage ledger for the authenticated account.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if db == nil {
		c.JSON(http.StatusOK, gin.H{
			"plan":  models.PlanFree,
			"usage": models.Usage{},
			"repos": []string{},
		})
		return
	}

	acct, err := findAccountByGithubID(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = EnsureAccountFromClaims(c.Request.Context(), claims)
			acct, err = findAccountByGithubID(c.Request.Context(), claims.Subject)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":  acct.Plan,
		"usage": acct.Usage,
		"repos": acct.Repos,
	})
}
