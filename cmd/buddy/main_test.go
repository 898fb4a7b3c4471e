package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := rootCMD()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveFromCandidatesFile(t *testing.T) {
	cfg := writeFile(t, "config.json", `{"telemetry":{"enabled":false}}`)
	cands := writeFile(t, "cands.json", `[{"id":"a","text":"Menu"},{"id":"b","text":"Settings"},{"id":"c","text":"Billing"}]`)

	out, err := run(t, "-c", cfg, "resolve", "--goal", "change my password", "--candidates", cands)
	require.NoError(t, err)

	var got struct {
		Outcome string `json:"outcome"`
		Primary struct {
			Target string `json:"target"`
		} `json:"primary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "used_alternate", got.Outcome)
	assert.Equal(t, "b", got.Primary.Target)
}

func TestResolveRequiresOneSource(t *testing.T) {
	_, err := run(t, "resolve", "--goal", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url or --candidates")
}

func TestTokenCommand(t *testing.T) {
	cfg := writeFile(t, "config.json", `{"server":{"jwt_secret":"s3cret"}}`)
	out, err := run(t, "-c", cfg, "token", "--sub", "ext")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")))

	noSecret := writeFile(t, "config.json", `{}`)
	_, err = run(t, "-c", noSecret, "token")
	assert.Error(t, err)
}

func TestBuildAppRejectsRedisSessionsWithoutRedis(t *testing.T) {
	cfg := writeFile(t, "config.json", `{"session":{"backend":"redis"}}`)
	_, err := run(t, "-c", cfg, "resolve", "--goal", "x", "--candidates", "-")
	assert.Error(t, err)
}
