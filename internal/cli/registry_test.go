package cli

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_CredentialUsageErrors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	ref := "registry.example.com/tools/hello:v1"

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "username without password", args: []string{"-u", "ci"}},
		{name: "password without username", stdin: "secret\n", args: []string{"--password-stdin"}},
		{name: "anonymous with username", stdin: "secret\n", args: []string{"--anonymous", "-u", "ci", "--password-stdin"}},
		{name: "empty password", stdin: "\n", args: []string{"-u", "ci", "--password-stdin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := append([]string{"push"}, tt.args...)
			res := tsh(t, tt.stdin, append(args, f.archive, ref)...)
			assert.Equal(t, ExitUsage, res.code, res.stderr)
		})
	}
}

// challengeServer rejects every request with a basic-auth challenge and
// records the headers it was sent.
type challengeServer struct {
	mu         sync.Mutex
	authHeader string
	userAgent  string
}

func (s *challengeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if h := r.Header.Get("Authorization"); h != "" {
		s.authHeader = h
	}
	s.userAgent = r.Header.Get("User-Agent")
	s.mu.Unlock()

	w.Header().Set("WWW-Authenticate", `Basic realm="tsh-test"`)
	w.WriteHeader(http.StatusUnauthorized)
}

func TestPush_SendsStaticCredentials(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "network")
	srv := &challengeServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	host := strings.TrimPrefix(ts.URL, "http://")

	res := tsh(t, "s3cret\n", "push", "--plain-http", "-u", "ci", "--password-stdin", f.archive, host+"/tools/hello:v1")
	require.Equal(t, ExitFailure, res.code, res.stderr)

	srv.mu.Lock()
	defer srv.mu.Unlock()
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.SetBasicAuth("ci", "s3cret")
	assert.Equal(t, req.Header.Get("Authorization"), srv.authHeader)
	assert.True(t, strings.HasPrefix(srv.userAgent, "tsh/"), srv.userAgent)
}
