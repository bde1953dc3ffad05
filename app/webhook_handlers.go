package app

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ExplainThisPR/explain-this-pr/app/config"
	"github.com/ExplainThisPR/explain-this-pr/app/models"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = int64(1 << 20)

// Summarizer produces the final comment body for a set of batches.
type Summarizer interface {
	Summarize(ctx context.Context, batches []models.FileBatch) string
}

// Package-level services so tests can swap in fakes.
var (
	ghService      GithubService
	summaryService Summarizer
	accountByRepo  = findAccountByRepo
	commitUsage    = CommitUsage
)

// InitServices wires the GitHub and summary clients from config. Called once
// at startup.
func InitServices(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	gh, err := NewGithubService(cfg.Github)
	if err != nil {
		return err
	}
	engine, err := NewSummaryEngine(ctx, cfg.Gemini.APIKey, DefaultSummaryConfig(cfg.Gemini.Model))
	if err != nil {
		return err
	}

	ghService = gh
	summaryService = engine
	return nil
}

// webhookEvent is the full shape of the payloads the orchestrator consumes.
type webhookEvent struct {
	Action       string `json:"action"`
	Installation struct {
		ID      int64 `json:"id"`
		Account struct {
			ID    int64  `json:"id"`
			Login string `json:"login"`
		} `json:"account"`
	} `json:"installation"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	PullRequest struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue struct {
		Number int `json:"number"`
	} `json:"issue"`
	Sender struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	} `json:"sender"`
	RepositoriesAdded   []repositoryRef `json:"repositories_added"`
	RepositoriesRemoved []repositoryRef `json:"repositories_removed"`
}

// GithubWebhook is the entrypoint for all GitHub App event deliveries.
func GithubWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Printf("webhook body read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("webhook config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "webhook not configured"})
		return
	}

	intent := Classify(cfg.Github.WebhookSecret, cfg.Github.BotLogin, c.GetHeader("X-Hub-Signature-256"), body)
	log.Printf("webhook classified intent=%s", intent)

	switch intent {
	case models.IntentBadRequest:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Forbidden. Signature verification failed."})
	case models.IntentRepoAdded, models.IntentRepoRemoved:
		handleRepoEvent(c, intent, body)
	case models.IntentExplainByLabel, models.IntentExplainByComment:
		handleAnalysisEvent(c, intent, body)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Nothing for me to do."})
	}
}

// handleRepoEvent applies repo set changes from installation events. These
// branches never enter summarization.
func handleRepoEvent(c *gin.Context, intent models.Intent, body []byte) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("repo event unmarshal failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}

	githubID := strconv.FormatInt(event.Installation.Account.ID, 10)
	if event.Installation.Account.ID == 0 {
		githubID = strconv.FormatInt(event.Sender.ID, 10)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var ok bool
	if intent == models.IntentRepoAdded {
		ok = AddRepos(ctx, githubID, repoFullNames(event.RepositoriesAdded))
	} else {
		ok = RemoveRepos(ctx, githubID, repoFullNames(event.RepositoriesRemoved))
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "Some repositories could not be updated."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Well, done!"})
}

// handleAnalysisEvent runs the full pipeline: fetch diff, filter, chunk,
// check quota, summarize, and post the comment. The comment post and the
// usage commit run concurrently; both only require the quota check to have
// passed.
func handleAnalysisEvent(c *gin.Context, intent models.Intent, body []byte) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("analysis event unmarshal failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid payload"})
		return
	}

	params := models.RequestParams{
		InstallationID: event.Installation.ID,
		RepoOwner:      event.Repository.Owner.Login,
		RepoName:       event.Repository.Name,
		PullNumber:     event.PullRequest.Number,
	}
	// Comment events carry the PR number on the issue object.
	if intent == models.IntentExplainByComment {
		params.PullNumber = event.Issue.Number
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 90*time.Second)
	defer cancel()

	files, err := ghService.ListFiles(ctx, params)
	if err != nil {
		log.Printf("failed to list files for %s/%s#%d: %v", params.RepoOwner, params.RepoName, params.PullNumber, err)
		c.JSON(http.StatusOK, gin.H{"message": "Could not fetch the pull request files."})
		return
	}

	filtered := FilterFiles(files)
	chunks := ChunkFiles(filtered, chunkCharLimit)
	linesChanged := sumChanges(filtered)

	fullName := params.RepoOwner + "/" + params.RepoName
	acct, err := accountByRepo(ctx, fullName)
	if err != nil {
		log.Printf("account not found based on repo %q: %v", fullName, err)
		c.JSON(http.StatusForbidden, gin.H{"message": "No account found for this repository."})
		return
	}

	if !CheckQuota(ctx, ghService, acct, params, linesChanged) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Usage limit reached."})
		return
	}

	comment := summaryService.Summarize(ctx, chunks)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := ghService.CreateComment(ctx, params, comment); err != nil {
			log.Printf("failed to create comment: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		commitUsage(ctx, acct.ID, linesChanged)
	}()
	wg.Wait()

	bumpPublicStats(ctx, linesChanged)
	c.JSON(http.StatusOK, gin.H{"message": "Well, done!"})
}

type playgroundRequest struct {
	DiffBody string `json:"diff_body"`
}

// PlaygroundExplain analyzes a client-submitted diff without touching
// GitHub or any account quota. Only the public stats counter records it.
func PlaygroundExplain(c *gin.Context) {
	var req playgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "The request body must contain diff_body."})
		return
	}

	files, ok := parseDiff(req.DiffBody)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "The diff is not in a format I can process."})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 90*time.Second)
	defer cancel()

	filtered := FilterFiles(files)
	chunks := ChunkFiles(filtered, chunkCharLimit)
	comment := summaryService.Summarize(ctx, chunks)

	bumpPublicStats(ctx, sumChanges(filtered))
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// parseDiff validates a raw diff submission: a JSON array of changed files
// whose first element carries the fields the pipeline relies on.
func parseDiff(diff string) ([]models.ChangedFile, bool) {
	var files []models.ChangedFile
	if err := json.Unmarshal([]byte(diff), &files); err != nil {
		return nil, false
	}
	if len(files) == 0 {
		return nil, false
	}
	first := files[0]
	if first.Filename == "" || first.Status == "" || first.Changes == 0 {
		return nil, false
	}
	return files, true
}

func repoFullNames(refs []repositoryRef) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.FullName != "" {
			names = append(names, ref.FullName)
		}
	}
	return names
}
