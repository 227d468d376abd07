package services

import (
	"context"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/jqzhao-umich/github-report/internal/apperrors"
	"github.com/jqzhao-umich/github-report/internal/models"
	"github.com/jqzhao-umich/github-report/pkg/logger"
)

// MemberService builds the organization member directory and the
// email-to-login lookup used for commit attribution.
type MemberService struct {
	gh *GitHubService
}

func NewMemberService(gh *GitHubService) *MemberService {
	return &MemberService{gh: gh}
}

// Build lists organization members (minus excludeLogin), initializes
// zeroed stats for each, and collects their emails into a lowercase
// email-to-login map. Email lookup failures for one member are logged
// and skipped; they never abort the build.
func (s *MemberService) Build(ctx context.Context, orgName, excludeLogin string) (*models.OrgActivity, map[string]string, error) {
	members, err := s.listMembers(ctx, orgName)
	if err != nil {
		return nil, nil, &apperrors.AccessError{Resource: "members of " + orgName, Err: err}
	}
	logger.Infof("Found %d members in %s", len(members), orgName)

	var logins []string
	for _, member := range members {
		login := member.GetLogin()
		if login == "" {
			continue
		}
		if excludeLogin != "" && login == excludeLogin {
			logger.Debugf("Skipping excluded user %s", login)
			continue
		}
		logins = append(logins, login)
	}

	activity := models.NewOrgActivity(logins)
	emailToLogin := make(map[string]string)

	for _, login := range logins {
		for _, email := range s.memberEmails(ctx, login) {
			email = strings.ToLower(email)
			if existing, ok := emailToLogin[email]; ok {
				if existing != login {
					// Two members sharing a verified email: first seen wins
					logger.Warnf("Email %s claimed by both %s and %s, keeping %s", email, existing, login, existing)
				}
				continue
			}
			emailToLogin[email] = login
		}
	}

	logger.Infof("Built %d email mappings for %d members", len(emailToLogin), len(logins))
	return activity, emailToLogin, nil
}

func (s *MemberService) listMembers(ctx context.Context, orgName string) ([]*github.User, error) {
	var allMembers []*github.User
	opts := &github.ListMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		members, resp, err := s.gh.Client().Organizations.ListMembers(ctx, orgName, opts)
		if err != nil {
			return nil, err
		}
		allMembers = append(allMembers, members...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allMembers, nil
}

// memberEmails returns the emails usable for attributing this member's
// commits: the public profile email plus, for the token owner (the only
// account the API exposes them for), all verified secondary emails.
func (s *MemberService) memberEmails(ctx context.Context, login string) []string {
	var emails []string

	user, _, err := s.gh.Client().Users.Get(ctx, login)
	if err != nil {
		logger.WithError(err).Warnf("Could not fetch profile for %s", login)
		return emails
	}
	if user.GetEmail() != "" {
		emails = append(emails, user.GetEmail())
	}

	authenticated, err := s.gh.AuthenticatedLogin(ctx)
	if err != nil || authenticated != login {
		return emails
	}

	listed, _, err := s.gh.Client().Users.ListEmails(ctx, &github.ListOptions{PerPage: 100})
	if err != nil {
		logger.WithError(err).Warnf("Could not list verified emails for %s", login)
		return emails
	}
	for _, entry := range listed {
		if entry.GetVerified() && entry.GetEmail() != "" {
			emails = append(emails, entry.GetEmail())
		}
	}

	return emails
}
