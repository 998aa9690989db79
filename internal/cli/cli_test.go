package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ngone6325/graft"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestVersion tests the version command
func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "graft version "+Version)
}

// TestInspect tests the registration table dump
func TestInspect(t *testing.T) {
	out, err := run(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "REQUESTED")
	assert.Contains(t, out, "model.IUserRepo")
	assert.Contains(t, out, "*model.UserRepo")
	assert.Contains(t, out, "consolidated by *model.Broadcast")
}

// TestInspectJSON tests the JSON form of the registration table
func TestInspectJSON(t *testing.T) {
	out, err := run(t, "inspect", "--json")
	require.NoError(t, err)

	var entries []entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	found := false
	for _, e := range entries {
		if e.Requested == "model.IUserLog" {
			found = true
			assert.Equal(t, "*model.UserLog", e.Implementation)
			assert.Equal(t, "scoped", e.Lifetime)
		}
	}
	assert.True(t, found)
}

// TestResolve tests resolving a type by name
func TestResolve(t *testing.T) {
	out, err := run(t, "resolve", "model.IUserService", "--detect-cycles")
	require.NoError(t, err)
	assert.Contains(t, out, "model.IUserService => *model.UserService")

	out, err = run(t, "resolve", "model.IUserLog")
	require.NoError(t, err)
	assert.Contains(t, out, "model.IUserLog => *model.UserLog")

	out, err = run(t, "resolve", "*model.UserRepo")
	assert.ErrorIs(t, err, graft.ErrNotResolvable, "described but only registered under its interface")
	assert.Contains(t, out, "resolution failed")

	_, err = run(t, "resolve", "model.Nope")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = run(t, "resolve")
	assert.Error(t, err)
}

// TestRouter tests that each request gets its own scope
func TestRouter(t *testing.T) {
	a := &app{}
	require.NoError(t, a.setup(NewRootCommand(), &bytes.Buffer{}))
	h := newRouter(a.container)

	get := func() userResponse {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp userResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first, second := get(), get()
	assert.Equal(t, "user_10086", first.Name)
	assert.Equal(t, []string{"user_log: user_id=10086"}, first.LogEntries)
	assert.Equal(t, first.RepoUUID, second.RepoUUID)
	assert.NotEqual(t, first.LogUUID, second.LogUUID)
	assert.NotEqual(t, first.ServiceUUID, second.ServiceUUID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}
