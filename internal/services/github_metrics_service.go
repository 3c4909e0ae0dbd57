package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/devpulse/internal/models"
	"github.com/alimgiray/devpulse/pkg/config"
	"github.com/alimgiray/devpulse/pkg/logger"
	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// MetricsSource fetches activity metrics for one developer. Implementations
// never fail: on any error they log and return zeroed metrics.
type MetricsSource interface {
	FetchMetrics(ctx context.Context, username string, opts models.FetchOptions) models.Metrics
}

const contributionsQuery = `
query($username: String!, $since: DateTime!, $privacy: RepositoryPrivacy) {
  user(login: $username) {
    organizations(first: 100) {
      nodes {
        login
      }
    }
    pullRequests(first: 100, states: MERGED, orderBy: {field: CREATED_AT, direction: DESC}) {
      nodes {
        additions
        deletions
      }
    }
    contributionsCollection(from: $since) {
      totalCommitContributions
      totalPullRequestContributions
      totalPullRequestReviewContributions
    }
    repositoriesContributedTo(first: 100, privacy: $privacy) {
      nodes {
        nameWithOwner
        owner {
          login
        }
      }
      totalCount
    }
  }
}`

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type contributionsResponse struct {
	Data struct {
		User *contributionsUser `json:"user"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type contributionsUser struct {
	Organizations struct {
		Nodes []struct {
			Login string `json:"login"`
		} `json:"nodes"`
	} `json:"organizations"`
	PullRequests struct {
		Nodes []struct {
			Additions int `json:"additions"`
			Deletions int `json:"deletions"`
		} `json:"nodes"`
	} `json:"pullRequests"`
	ContributionsCollection struct {
		TotalCommitContributions            int `json:"totalCommitContributions"`
		TotalPullRequestContributions       int `json:"totalPullRequestContributions"`
		TotalPullRequestReviewContributions int `json:"totalPullRequestReviewContributions"`
	} `json:"contributionsCollection"`
	RepositoriesContributedTo struct {
		Nodes []struct {
			NameWithOwner string `json:"nameWithOwner"`
			Owner         struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"nodes"`
		TotalCount int `json:"totalCount"`
	} `json:"repositoriesContributedTo"`
}

// GitHubMetricsService reads contribution metrics from the GitHub GraphQL API
type GitHubMetricsService struct {
	client *github.Client
	now    func() time.Time
}

// NewGitHubMetricsService creates a client for cfg.APIURL, authenticated when
// a token is configured.
func NewGitHubMetricsService(cfg config.GitHubConfig) (*GitHubMetricsService, error) {
	var httpClient *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	} else {
		logger.Warnf("No GitHub token provided. API rate limits may apply.")
		httpClient = &http.Client{}
	}
	if cfg.HTTPTimeout > 0 {
		httpClient.Timeout = cfg.HTTPTimeout
	}

	client := github.NewClient(httpClient)
	if cfg.APIURL != "" {
		apiURL := cfg.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.APIURL, err)
		}
		client.BaseURL = baseURL
	}

	return &GitHubMetricsService{
		client: client,
		now:    time.Now,
	}, nil
}

// FetchMetrics returns the developer's metrics for the configured window.
// Failures are logged and produce zeroed metrics.
func (s *GitHubMetricsService) FetchMetrics(ctx context.Context, username string, opts models.FetchOptions) models.Metrics {
	log := logger.WithField("username", username)

	user, err := s.fetchContributions(ctx, username, opts)
	if err != nil {
		log.WithError(err).Error("Failed to fetch contributions")
		return models.Metrics{}
	}
	if user == nil {
		log.Info("No data found, returning zeroed metrics")
		return models.Metrics{}
	}

	repos := user.RepositoriesContributedTo.Nodes
	repositoriesContributed := len(repos)
	if opts.OnlyOrganizations {
		orgs := make(map[string]bool, len(user.Organizations.Nodes))
		for _, org := range user.Organizations.Nodes {
			orgs[org.Login] = true
		}

		repositoriesContributed = 0
		for _, repo := range repos {
			if orgs[repo.Owner.Login] {
				repositoriesContributed++
			}
		}
		log.WithField("organizations", len(orgs)).Debug("Filtered contributed repositories by organization")
	}

	metrics := models.Metrics{
		Commits:                 user.ContributionsCollection.TotalCommitContributions,
		PullRequests:            user.ContributionsCollection.TotalPullRequestContributions,
		Reviews:                 user.ContributionsCollection.TotalPullRequestReviewContributions,
		RepositoriesContributed: repositoriesContributed,
	}
	for _, pr := range user.PullRequests.Nodes {
		metrics.LinesAdded += pr.Additions
		metrics.LinesRemoved += pr.Deletions
	}

	log.WithFields(logrus.Fields{
		"commits":       metrics.Commits,
		"pull_requests": metrics.PullRequests,
		"reviews":       metrics.Reviews,
		"repositories":  metrics.RepositoriesContributed,
		"lines_added":   metrics.LinesAdded,
		"lines_removed": metrics.LinesRemoved,
	}).Debug("Fetched metrics")

	return metrics
}

func (s *GitHubMetricsService) fetchContributions(ctx context.Context, username string, opts models.FetchOptions) (*contributionsUser, error) {
	var privacy interface{}
	if opts.ExcludePrivate {
		privacy = "PUBLIC"
	}

	payload := &graphQLRequest{
		Query: contributionsQuery,
		Variables: map[string]interface{}{
			"username": username,
			"since":    opts.Since(s.now()).UTC().Format(time.RFC3339),
			"privacy":  privacy,
		},
	}

	req, err := s.client.NewRequest(http.MethodPost, "graphql", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	var response contributionsResponse
	if _, err := s.client.Do(ctx, req, &response); err != nil {
		return nil, fmt.Errorf("graphql request failed: %w", err)
	}

	if len(response.Errors) > 0 {
		messages := make([]string, len(response.Errors))
		for i, e := range response.Errors {
			messages[i] = e.Message
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(messages, "; "))
	}

	return response.Data.User, nil
}
