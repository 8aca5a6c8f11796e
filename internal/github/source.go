// Package github lists an organisation's (or user's) repositories through
// the GitHub REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"cemetery-go/internal/cemetery"
	"cemetery-go/internal/config"
)

const (
	// DefaultRequestsPerSecond keeps an unauthenticated scan well under
	// GitHub's secondary rate limits.
	DefaultRequestsPerSecond = 2

	perPage = 100
)

// Source is a cemetery.RepositorySource backed by the GitHub API.
type Source struct {
	httpClient *http.Client
	baseURL    *url.URL // nil means api.github.com
	limiter    *rate.Limiter
	logger     cemetery.Logger
}

// NewSource creates a GitHub source from the scanner section of the host
// config. httpClient may be nil.
func NewSource(cfg config.ScannerConfig, httpClient *http.Client, logger cemetery.Logger) (*Source, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	var baseURL *url.URL
	if cfg.APIBaseURL != "" {
		raw := cfg.APIBaseURL
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing api_base_url: %w", err)
		}
		baseURL = u
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	return &Source{
		httpClient: httpClient,
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}, nil
}

func (s *Source) Name(target cemetery.ScanTarget) string {
	return "github:" + target.Owner
}

func (s *Source) client(token string) *gh.Client {
	c := gh.NewClient(s.httpClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	if s.baseURL != nil {
		c.BaseURL = s.baseURL
	}
	return c
}

// ListRepositories returns every repository of target.Owner. The owner is
// tried as an organisation first and as a user when no such organisation
// exists. Any failed page fails the whole listing.
func (s *Source) ListRepositories(ctx context.Context, target cemetery.ScanTarget) ([]*cemetery.RepositoryRecord, error) {
	if target.Owner == "" {
		return nil, fmt.Errorf("no target organisation configured")
	}
	client := s.client(target.Token)

	repos, err := s.listByOrg(ctx, client, target.Owner)
	if isNotFound(err) {
		s.logger.Debug("no such organisation, listing user repositories", "owner", target.Owner)
		repos, err = s.listByUser(ctx, client, target.Owner)
	}
	if err != nil {
		return nil, classify(target.Owner, err)
	}

	records := make([]*cemetery.RepositoryRecord, 0, len(repos))
	for _, r := range repos {
		records = append(records, toRecord(r))
	}
	s.logger.Debug("github listing complete", "owner", target.Owner, "repositories", len(records))
	return records, nil
}

func (s *Source) listByOrg(ctx context.Context, client *gh.Client, org string) ([]*gh.Repository, error) {
	opts := &gh.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var all []*gh.Repository
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, repos...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (s *Source) listByUser(ctx context.Context, client *gh.Client, user string) ([]*gh.Repository, error) {
	opts := &gh.RepositoryListByUserOptions{
		Type:        "owner",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var all []*gh.Repository
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		repos, resp, err := client.Repositories.ListByUser(ctx, user, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, repos...)
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func isNotFound(err error) bool {
	var errResp *gh.ErrorResponse
	return errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound
}

// classify wraps API failures with cemetery.ErrNetwork. Context errors pass
// through unchanged so callers can tell a cancelled scan apart.
func classify(owner string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: listing %s: rate limited until %s: %w",
			cemetery.ErrNetwork, owner, rateErr.Rate.Reset.UTC().Format(time.RFC3339), err)
	}
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: listing %s: secondary rate limit: %w", cemetery.ErrNetwork, owner, err)
	}
	return fmt.Errorf("%w: listing %s: %w", cemetery.ErrNetwork, owner, err)
}

// toRecord maps a repository. Records without updated_at fall back to
// pushed_at; records with neither are left for the scanner to reject.
func toRecord(r *gh.Repository) *cemetery.RepositoryRecord {
	updated := r.GetUpdatedAt().Time
	if updated.IsZero() {
		updated = r.GetPushedAt().Time
	}

	var id string
	if r.ID != nil {
		id = strconv.FormatInt(r.GetID(), 10)
	}

	return &cemetery.RepositoryRecord{
		ID:              id,
		FullName:        r.GetFullName(),
		UpdatedAt:       updated.UTC(),
		StargazersCount: r.GetStargazersCount(),
		Language:        r.GetLanguage(),
		URL:             r.GetHTMLURL(),
		Topics:          r.Topics,
	}
}

var _ cemetery.RepositorySource = (*Source)(nil)
