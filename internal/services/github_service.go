package services

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/jqzhao-umich/github-report/internal/apperrors"
)

// GitHubService owns the authenticated REST client and the identity of
// the token owner, which collectors exclude from attribution.
type GitHubService struct {
	client *github.Client
	token  string
	login  string
}

func NewGitHubService(token string) *GitHubService {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	return &GitHubService{
		client: github.NewClient(tc),
		token:  token,
	}
}

// Client returns the underlying go-github client
func (s *GitHubService) Client() *github.Client {
	return s.client
}

// SetBaseURL points the REST client at a different API root. Used in tests.
func (s *GitHubService) SetBaseURL(baseURL string) error {
	parsed, err := s.client.BaseURL.Parse(baseURL)
	if err != nil {
		return err
	}
	s.client.BaseURL = parsed
	return nil
}

// AuthenticatedLogin verifies the token and returns the login it belongs
// to. The result is cached for the lifetime of the service.
func (s *GitHubService) AuthenticatedLogin(ctx context.Context) (string, error) {
	if s.login != "" {
		return s.login, nil
	}
	if s.token == "" {
		return "", &apperrors.AuthenticationError{Err: fmt.Errorf("GITHUB_TOKEN is not set")}
	}

	user, _, err := s.client.Users.Get(ctx, "")
	if err != nil {
		return "", &apperrors.AuthenticationError{Err: err}
	}
	if user.GetLogin() == "" {
		return "", &apperrors.AuthenticationError{Err: fmt.Errorf("empty login in user response")}
	}

	s.login = user.GetLogin()
	return s.login, nil
}

// VerifyOrgAccess checks that the organization exists and is visible to the token
func (s *GitHubService) VerifyOrgAccess(ctx context.Context, orgName string) error {
	org, _, err := s.client.Organizations.Get(ctx, orgName)
	if err != nil {
		return &apperrors.AccessError{Resource: "organization " + orgName, Err: err}
	}
	if org.GetLogin() == "" {
		return &apperrors.AccessError{Resource: "organization " + orgName, Err: fmt.Errorf("empty organization response")}
	}
	return nil
}
