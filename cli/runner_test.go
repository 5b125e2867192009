package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/khub/mock"
	"github.com/viant/khub/settings"
)

func TestParsePairs(t *testing.T) {
	var testCases = []struct {
		description string
		pairs       []string
		expect      map[string]any
		expectErr   bool
	}{
		{
			description: "typed scalars",
			pairs:       []string{"streaming=false", "temperature=0.7", "max_tokens=256", "model=qwen-plus", "default_kb_id=null"},
			expect:      map[string]any{"streaming": false, "temperature": 0.7, "max_tokens": 256, "model": "qwen-plus", "default_kb_id": nil},
		},
		{description: "missing separator", pairs: []string{"streaming"}, expectErr: true},
		{description: "empty key", pairs: []string{"=1"}, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual, err := parsePairs(testCase.pairs)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, actual)
		})
	}
}

func TestRun(t *testing.T) {
	server, err := mock.NewHTTPTestServer(mock.WithAccount("alice", "alice@example.com", "secret"), mock.WithReply("Hel", "lo"))
	require.NoError(t, err)
	defer server.Close()
	ctx := context.Background()
	store := filepath.Join(t.TempDir(), "credentials.json")
	run := func(args ...string) (string, error) {
		out := &bytes.Buffer{}
		err := RunWithOutput(ctx, append([]string{"--url", server.URL, "--store", store}, args...), out)
		return out.String(), err
	}

	out, err := run("login", "-i", "alice", "-p", "secret")
	require.NoError(t, err)
	assert.Equal(t, "logged in as alice\n", out)

	out, err = run("settings", "set", "streaming=false", "temperature=0.5")
	require.NoError(t, err)
	current := &settings.Settings{}
	require.NoError(t, json.Unmarshal([]byte(out), current))
	assert.Equal(t, false, current.Fields["streaming"])
	assert.Equal(t, 2, current.Version)

	out, err = run("chat", "new", "--title", "demo")
	require.NoError(t, err)
	conv := struct {
		ID int `json:"id"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(out), &conv))
	id := strconv.Itoa(conv.ID)

	out, err = run("chat", "send", "--stream", id, "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", out)

	out, err = run("chat", "send", id, "again")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", out)
	assert.Equal(t, []string{"hello there", "Hello", "again", "Hello"}, server.Messages(conv.ID))

	server.ExpireAccessTokens()
	out, err = run("chat", "history", id, "--limit", "2")
	require.NoError(t, err)
	var messages []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &messages))
	assert.Len(t, messages, 2)
	assert.Equal(t, 1, server.RefreshCalls())

	_, err = run("logout")
	require.NoError(t, err)
	_, err = run("chat", "list")
	assert.Error(t, err)
}

func TestRun_Help(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, RunWithOutput(context.Background(), []string{"--help"}, out))
	assert.Contains(t, out.String(), "login")
}
