package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "gate.sqlite"))
	t.Setenv("PASSWORD_MODE", "plain")
	t.Setenv("JWT_SECRET", "cli-secret")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"gatectl"}, args...))
	return out.String(), err
}

// firstColumn returns the first field of the first data row of a table.
func firstColumn(t *testing.T, table string) string {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(table), "\n")
	require.GreaterOrEqual(t, len(lines), 2, table)
	return strings.Fields(lines[1])[0]
}

func TestGatectl_InviteAndUserFlow(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "schema up to date (sqlite)")

	out, err = run(t, "invite", "wave", "--count", "3", "--days", "2")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
	code := firstColumn(t, out)

	out, err = run(t, "invite", "list")
	require.NoError(t, err)
	require.Contains(t, out, code)

	out, err = run(t, "user", "register", "--username", "alice", "--password", "pw", "--invite", code, "--external-id", "42")
	require.NoError(t, err)
	require.Equal(t, "1", firstColumn(t, out))
	require.Contains(t, out, "not set")

	_, err = run(t, "user", "register", "--username", "bob", "--password", "pw", "--invite", code, "--external-id", "43")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already used")

	out, err = run(t, "user", "ban", "1")
	require.NoError(t, err)
	require.Contains(t, out, "user 1 is now banned")

	out, err = run(t, "user", "get", "1")
	require.NoError(t, err)
	require.Contains(t, out, "banned")

	out, err = run(t, "user", "reset-hwid", "1")
	require.NoError(t, err)
	require.Contains(t, out, "hwid cleared for user 1")

	_, err = run(t, "user", "unban", "99")
	require.Error(t, err)

	_, err = run(t, "user", "get", "abc")
	require.Error(t, err)

	out, err = run(t, "user", "list")
	require.NoError(t, err)
	require.Contains(t, out, "alice")
}

func TestGatectl_TokenIssue(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "issue", "--role", "owner", "--subject", "bob")
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	_, err = run(t, "token", "issue", "--role", "admin", "--subject", "bob")
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "")
	_, err = run(t, "token", "issue", "--role", "owner", "--subject", "bob")
	require.Error(t, err)
}
