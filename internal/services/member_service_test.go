package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberDirectory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/testorg/members", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"login":"alice"},{"login":"bob"},{"login":"runner"}]`))
	})
	mux.HandleFunc("/users/alice", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"alice","email":"Alice@Example.com"}`))
	})
	mux.HandleFunc("/users/bob", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Conflicting claim on alice's address
		_, _ = w.Write([]byte(`{"login":"bob","email":"alice@example.com"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"runner"}`))
	})

	gh, _ := newTestGitHubService(t, mux)
	svc := NewMemberService(gh)

	activity, emailToLogin, err := svc.Build(context.Background(), "testorg", "runner")
	require.NoError(t, err)

	t.Run("Excluded login is dropped from the directory", func(t *testing.T) {
		assert.Equal(t, []string{"alice", "bob"}, activity.MemberLogins)
		_, tracked := activity.MemberStats["runner"]
		assert.False(t, tracked)
	})

	t.Run("Stats start at zero", func(t *testing.T) {
		require.Contains(t, activity.MemberStats, "alice")
		assert.False(t, activity.MemberStats["alice"].HasActivity())
	})

	t.Run("Emails are lowercased and first claim wins", func(t *testing.T) {
		assert.Equal(t, "alice", emailToLogin["alice@example.com"])
	})
}

func TestMemberDirectoryListFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/testorg/members", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	gh, _ := newTestGitHubService(t, mux)
	svc := NewMemberService(gh)

	_, _, err := svc.Build(context.Background(), "testorg", "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "members of testorg")
}
