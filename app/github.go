package app

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ExplainThisPR/explain-this-pr/app/config"
	"github.com/ExplainThisPR/explain-this-pr/app/models"

	"github.com/golang-jwt/jwt/v5"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GithubService is the outbound surface of the GitHub API the pipeline needs.
type GithubService interface {
	ListFiles(ctx context.Context, params models.RequestParams) ([]models.ChangedFile, error)
	CreateComment(ctx context.Context, params models.RequestParams, body string) error
}

// githubAppService authenticates as a GitHub App installation: it mints a
// short-lived App JWT, exchanges it for an installation token, and calls the
// REST API with that token.
type githubAppService struct {
	appID      int64
	privateKey *rsa.PrivateKey
}

func NewGithubService(cfg config.GithubConfig) (GithubService, error) {
	if cfg.AppID == 0 || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("GITHUB_APP_ID and GITHUB_PRIVATE_KEY must be set")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse GitHub App private key: %w", err)
	}
	return &githubAppService{appID: cfg.AppID, privateKey: key}, nil
}

func (s *githubAppService) appJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer: strconv.FormatInt(s.appID, 10),
		// 30s of backdating tolerates clock drift between us and GitHub.
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
}

// installationClient exchanges an installation id for an authenticated client.
func (s *githubAppService) installationClient(ctx context.Context, installationID int64) (*gogithub.Client, error) {
	signed, err := s.appJWT()
	if err != nil {
		return nil, fmt.Errorf("failed to sign app JWT: %w", err)
	}

	appClient := gogithub.NewClient(nil).WithAuthToken(signed)
	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	return gogithub.NewClient(oauth2.NewClient(ctx, ts)), nil
}

func (s *githubAppService) ListFiles(ctx context.Context, params models.RequestParams) ([]models.ChangedFile, error) {
	client, err := s.installationClient(ctx, params.InstallationID)
	if err != nil {
		return nil, err
	}

	var out []models.ChangedFile
	opts := &gogithub.ListOptions{PerPage: 100}
	for {
		files, resp, err := client.PullRequests.ListFiles(ctx, params.RepoOwner, params.RepoName, params.PullNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing files for %s/%s#%d: %w", params.RepoOwner, params.RepoName, params.PullNumber, err)
		}
		for _, f := range files {
			out = append(out, models.ChangedFile{
				Filename: f.GetFilename(),
				Status:   f.GetStatus(),
				Changes:  f.GetChanges(),
				Patch:    f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (s *githubAppService) CreateComment(ctx context.Context, params models.RequestParams, body string) error {
	client, err := s.installationClient(ctx, params.InstallationID)
	if err != nil {
		return err
	}

	_, _, err = client.Issues.CreateComment(ctx, params.RepoOwner, params.RepoName, params.PullNumber, &gogithub.IssueComment{
		Body: gogithub.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating comment on %s/%s#%d: %w", params.RepoOwner, params.RepoName, params.PullNumber, err)
	}
	log.Printf("comment added to PR %s/%s#%d", params.RepoOwner, params.RepoName, params.PullNumber)
	return nil
}
