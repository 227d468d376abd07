package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jqzhao-umich/github-report/internal/apperrors"
	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/config"
	"github.com/jqzhao-umich/github-report/pkg/logger"
	"github.com/jqzhao-umich/github-report/pkg/retry"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

// IterationService resolves the reporting window from a GitHub Projects
// iteration field, falling back to environment-supplied bounds.
type IterationService struct {
	httpClient *http.Client
	graphQLURL string
	token      string
	fallback   config.IterationConfig
	retry      retry.Policy
}

func NewIterationService(token string, fallback config.IterationConfig) *IterationService {
	return &IterationService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		graphQLURL: defaultGraphQLURL,
		token:      token,
		fallback:   fallback,
		retry:      retry.DefaultPolicy(),
	}
}

// SetGraphQLURL overrides the GraphQL endpoint. Used in tests.
func (s *IterationService) SetGraphQLURL(url string) {
	s.graphQLURL = url
}

type projectIteration struct {
	Title     string `json:"title"`
	StartDate string `json:"startDate"`
	Duration  int    `json:"duration"`
}

// Resolve determines the target reporting iteration for now.
//
// On the first day of a new iteration the previous one is returned, so
// the report covers the iteration that just ended. Network, auth and
// data-shape failures degrade to the environment fallback; if that is
// also absent, ErrNoIteration is returned and the caller runs unfiltered.
func (s *IterationService) Resolve(ctx context.Context, orgName, projectName string, now time.Time) (*models.Iteration, error) {
	projectID, err := s.findProject(ctx, orgName, projectName)
	if err != nil {
		logger.WithError(err).Warnf("Could not find project %q, falling back to environment variables", projectName)
		return s.fallbackIteration(orgName, projectName)
	}

	iterations, err := s.fetchIterations(ctx, projectID)
	if err != nil {
		logger.WithError(err).Warn("Could not fetch iteration field configuration, falling back to environment variables")
		return s.fallbackIteration(orgName, projectName)
	}
	if len(iterations) == 0 {
		logger.Warnf("Project %q has no configured iterations, falling back to environment variables", projectName)
		return s.fallbackIteration(orgName, projectName)
	}

	target, ok := findTargetIteration(iterations, now.UTC())
	if !ok {
		logger.Warnf("No usable iteration in project %q, falling back to environment variables", projectName)
		return s.fallbackIteration(orgName, projectName)
	}

	target.Path = orgName + "/" + projectName
	return target, nil
}

// findTargetIteration scans iterations in declaration order and picks the
// reporting window for today (the UTC calendar date of now).
func findTargetIteration(iterations []projectIteration, now time.Time) (*models.Iteration, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for idx, it := range iterations {
		start, err := parseIterationDate(it.StartDate)
		if err != nil || it.Duration <= 0 {
			continue
		}
		end := start.AddDate(0, 0, it.Duration)

		if today.Before(start) || today.After(end) {
			continue
		}

		// First-day rule: report on the iteration that just ended
		if today.Equal(start) {
			if idx > 0 {
				return iterationWindow(iterations[idx-1])
			}
			return previousOf(it, start), true
		}

		return iterationWindow(it)
	}

	// No iteration contains today: use the most recent one that has ended
	for idx := len(iterations) - 1; idx >= 0; idx-- {
		it := iterations[idx]
		start, err := parseIterationDate(it.StartDate)
		if err != nil || it.Duration <= 0 {
			continue
		}
		if start.AddDate(0, 0, it.Duration).Before(today) {
			logger.Warnf("Today is outside every configured iteration, using most recent past iteration %q", it.Title)
			return iterationWindow(it)
		}
	}

	// Still nothing: default to the first configured iteration
	first := iterations[0]
	logger.Warnf("No current or past iteration found, defaulting to first configured iteration %q", first.Title)
	return iterationWindow(first)
}

// iterationWindow computes the window of one configured iteration
func iterationWindow(it projectIteration) (*models.Iteration, bool) {
	start, err := parseIterationDate(it.StartDate)
	if err != nil || it.Duration <= 0 {
		return nil, false
	}
	return &models.Iteration{
		Name:      it.Title,
		StartDate: start,
		EndDate:   start.AddDate(0, 0, it.Duration),
	}, true
}

// previousOf derives the iteration immediately before the first configured
// one: same duration, ending the day before it starts, trailing numeric
// token in the title decremented.
func previousOf(it projectIteration, start time.Time) *models.Iteration {
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(it.Duration - 1))

	title := "Previous Iteration"
	if m := trailingNumber.FindStringSubmatch(strings.TrimSpace(it.Title)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			title = strings.TrimSpace(it.Title)
			title = title[:len(title)-len(m[1])] + strconv.Itoa(n-1)
		}
	}

	return &models.Iteration{
		Name:      title,
		StartDate: prevStart,
		EndDate:   prevEnd,
	}
}

var trailingNumber = regexp.MustCompile(`(\d+)$`)

func (s *IterationService) fallbackIteration(orgName, projectName string) (*models.Iteration, error) {
	if s.fallback.Start == "" || s.fallback.End == "" {
		return nil, apperrors.ErrNoIteration
	}

	// A malformed fallback window never aborts the run: the caller
	// degrades to an unfiltered report
	start, err := parseIterationDate(s.fallback.Start)
	if err != nil {
		logger.WithError(err).Warnf("Invalid GITHUB_ITERATION_START %q, reporting without a window", s.fallback.Start)
		return nil, apperrors.ErrNoIteration
	}
	end, err := parseIterationDate(s.fallback.End)
	if err != nil {
		logger.WithError(err).Warnf("Invalid GITHUB_ITERATION_END %q, reporting without a window", s.fallback.End)
		return nil, apperrors.ErrNoIteration
	}
	if end.Before(start) {
		logger.Warnf("GITHUB_ITERATION_END %s precedes GITHUB_ITERATION_START %s, reporting without a window", s.fallback.End, s.fallback.Start)
		return nil, apperrors.ErrNoIteration
	}

	logger.Info("Using iteration info from environment variables")
	return &models.Iteration{
		Name:      s.fallback.Name,
		StartDate: start,
		EndDate:   end,
		Path:      orgName + "/" + projectName,
	}, nil
}

// parseIterationDate accepts both date-only and RFC 3339 timestamps.
// Values without an offset are treated as UTC.
func parseIterationDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", value)
}

func (s *IterationService) findProject(ctx context.Context, orgName, projectName string) (string, error) {
	const query = `
	query($orgName: String!) {
	  organization(login: $orgName) {
	    projectsV2(first: 20) {
	      nodes {
	        id
	        title
	        number
	      }
	    }
	  }
	}`

	var result struct {
		Data struct {
			Organization struct {
				ProjectsV2 struct {
					Nodes []struct {
						ID    string `json:"id"`
						Title string `json:"title"`
					} `json:"nodes"`
				} `json:"projectsV2"`
			} `json:"organization"`
		} `json:"data"`
	}

	if err := s.postGraphQL(ctx, query, map[string]any{"orgName": orgName}, &result); err != nil {
		return "", err
	}

	for _, node := range result.Data.Organization.ProjectsV2.Nodes {
		if node.Title == projectName {
			return node.ID, nil
		}
	}
	return "", fmt.Errorf("project %q not found in organization %q", projectName, orgName)
}

func (s *IterationService) fetchIterations(ctx context.Context, projectID string) ([]projectIteration, error) {
	const query = `
	query($projectId: ID!) {
	  node(id: $projectId) {
	    ... on ProjectV2 {
	      fields(first: 50) {
	        nodes {
	          ... on ProjectV2IterationField {
	            name
	            configuration {
	              iterations {
	                title
	                startDate
	                duration
	              }
	            }
	          }
	        }
	      }
	    }
	  }
	}`

	var result struct {
		Data struct {
			Node struct {
				Fields struct {
					Nodes []struct {
						Name          string `json:"name"`
						Configuration *struct {
							Iterations []projectIteration `json:"iterations"`
						} `json:"configuration"`
					} `json:"nodes"`
				} `json:"fields"`
			} `json:"node"`
		} `json:"data"`
	}

	if err := s.postGraphQL(ctx, query, map[string]any{"projectId": projectID}, &result); err != nil {
		return nil, err
	}

	for _, field := range result.Data.Node.Fields.Nodes {
		if field.Configuration != nil && len(field.Configuration.Iterations) > 0 {
			return field.Configuration.Iterations, nil
		}
	}
	return nil, nil
}

func (s *IterationService) postGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	bodyBytes, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	return s.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.graphQLURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("GraphQL request failed with status %d", resp.StatusCode)
		}

		var envelope struct {
			Errors []struct {
				Message string `json:"message"`
			} `json:"errors"`
		}
		var raw json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if len(envelope.Errors) > 0 {
			return fmt.Errorf("GraphQL error: %s", envelope.Errors[0].Message)
		}
		return json.Unmarshal(raw, out)
	})
}
