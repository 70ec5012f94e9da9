package publisher

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GitHubAPI adapts an authenticated go-github client to PlatformAPI
// for one repository.
type GitHubAPI struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubAPI builds a token-authenticated client for owner/repo.
// Authentication beyond the token handle is out of scope here.
func NewGitHubAPI(ctx context.Context, token, owner, repo string) (*GitHubAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("github owner and repo are required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubAPI{
		client: github.NewClient(oauth2.NewClient(ctx, ts)),
		owner:  owner,
		repo:   repo,
	}, nil
}

// NewGitHubAPIFromClient wraps an existing client, mainly for tests
// pointed at a local fake server.
func NewGitHubAPIFromClient(client *github.Client, owner, repo string) *GitHubAPI {
	return &GitHubAPI{client: client, owner: owner, repo: repo}
}

// CreateBatchReview submits one review carrying all comments.
func (g *GitHubAPI) CreateBatchReview(ctx context.Context, prNumber int, review *github.PullRequestReviewRequest) error {
	_, _, err := g.client.PullRequests.CreateReview(ctx, g.owner, g.repo, prNumber, review)
	return err
}

// CreateSingleComment posts one line comment outside a review.
func (g *GitHubAPI) CreateSingleComment(ctx context.Context, prNumber int, comment *github.PullRequestComment) error {
	_, _, err := g.client.PullRequests.CreateComment(ctx, g.owner, g.repo, prNumber, comment)
	return err
}
