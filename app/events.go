// Package app classifies and handles inbound GitHub webhook deliveries.
package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"

	"github.com/ExplainThisPR/explain-this-pr/app/models"
)

const (
	explainLabel   = "explainthispr"
	explainMention = "@explainthispr"
)

// VerifySignature checks an X-Hub-Signature-256 header value against the
// HMAC-SHA256 of the raw request body. The comparison is constant-time.
func VerifySignature(secret string, body []byte, headerSignature string) bool {
	if headerSignature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(headerSignature))
}

// classifyPayload is the subset of the event body the classifier inspects.
type classifyPayload struct {
	Action string `json:"action"`
	Label  *struct {
		Name string `json:"name"`
	} `json:"label"`
	Comment *struct {
		Body string `json:"body"`
	} `json:"comment"`
	Sender *struct {
		Login string `json:"login"`
	} `json:"sender"`
	RepositoriesAdded   []repositoryRef `json:"repositories_added"`
	RepositoriesRemoved []repositoryRef `json:"repositories_removed"`
}

type repositoryRef struct {
	FullName string `json:"full_name"`
}

// Classify validates the delivery signature and maps the payload onto one of
// the closed set of intents. A bad or missing signature short-circuits before
// any parsing. Classify never touches the network.
func Classify(secret, botLogin, headerSignature string, body []byte) models.Intent {
	if !VerifySignature(secret, body, headerSignature) {
		log.Printf("webhook signature verification failed")
		return models.IntentBadRequest
	}

	var payload classifyPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("webhook payload unmarshal failed: %v", err)
		return models.IntentNotHandled
	}

	switch {
	case payload.Action == "labeled" && payload.Label != nil &&
		strings.EqualFold(payload.Label.Name, explainLabel):
		return models.IntentExplainByLabel
	case payload.Action == "created" && payload.Comment != nil &&
		strings.ToLower(strings.TrimSpace(payload.Comment.Body)) == explainMention:
		return models.IntentExplainByComment
	case payload.Sender != nil && payload.Sender.Login == botLogin:
		// The bot commenting on its own analysis must not trigger another run.
		return models.IntentCommentByBot
	case payload.Action == "added" && len(payload.RepositoriesAdded) > 0:
		return models.IntentRepoAdded
	case payload.Action == "removed" && len(payload.RepositoriesRemoved) > 0:
		return models.IntentRepoRemoved
	default:
		log.Printf("webhook event not handled action=%q", payload.Action)
		return models.IntentNotHandled
	}
}
