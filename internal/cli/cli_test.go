package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes one rollcall invocation against the given database.
// Each call builds a fresh command tree, the way separate process runs
// would.
func runCLI(t *testing.T, db string, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(bytes.NewReader(nil))
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err = cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "rollcall.db")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// seedAdmin enrolls and signs in an admin so privileged commands work.
func seedAdmin(t *testing.T, db string) {
	t.Helper()
	_, err := runCLI(t, db, "enroll",
		"--name", "Esi Owusu", "--code", "11111",
		"--email", "esi@example.com", "--password", "pw", "--role", "admin")
	require.NoError(t, err)
	_, err = runCLI(t, db, "login", "--email", "esi@example.com", "--password", "pw")
	require.NoError(t, err)
}

func TestEnrollAndCheckin(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	out, err := runCLI(t, db, "enroll",
		"--name", "Ama Serwaa", "--code", "54321",
		"--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Ama Serwaa")

	out, err = runCLI(t, db, "checkin", "54321", "--yes", "--method", "QR Scan")
	require.NoError(t, err)
	assert.Contains(t, out, "Checked in Ama Serwaa")

	out, err = runCLI(t, db, "attendance")
	require.NoError(t, err)
	assert.Contains(t, out, "ama@example.com")
	assert.Contains(t, out, "QR Scan")
}

func TestCheckin_RejectionsExitWithFailure(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "checkin", "12ab5", "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = runCLI(t, db, "checkin", "99999", "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCheckin_RequiresSignIn(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, "checkin", "54321", "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCheckin_WithoutAccountStillSucceeds(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "enroll", "--name", "Afia Mensah", "--code", "67890")
	require.NoError(t, err)

	out, err := runCLI(t, db, "checkin", "67890", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing recorded")
}

func TestGrantLifecycle(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "enroll",
		"--name", "Ama Serwaa", "--code", "54321",
		"--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)

	// Create a grant as admin; pull the credentials from JSON output.
	out, err := runCLI(t, db, "--format", "json", "grant", "create", "54321")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	creds, ok := data["credentials"].(map[string]interface{})
	require.True(t, ok)
	username := creds["username"].(string)
	password := creds["password"].(string)

	// A second grant while one is live is refused.
	_, err = runCLI(t, db, "grant", "create", "54321")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err = runCLI(t, db, "grant", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Ama Serwaa")

	// The member signs in and activates.
	_, err = runCLI(t, db, "login", "--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)

	out, err = runCLI(t, db, "grant", "activate", "--username", username, "--password", password)
	require.NoError(t, err)
	assert.Contains(t, out, "Temporary usher until")

	// Elevated account may run checkin.
	_, err = runCLI(t, db, "checkin", "54321", "--yes")
	require.NoError(t, err)
}

func TestGrantActivate_WrongCredentials(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "enroll",
		"--name", "Ama Serwaa", "--code", "54321",
		"--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)
	_, err = runCLI(t, db, "grant", "create", "54321")
	require.NoError(t, err)

	_, err = runCLI(t, db, "login", "--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)

	_, err = runCLI(t, db, "grant", "activate", "--username", "usher00000", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGrantRevoke(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "enroll",
		"--name", "Ama Serwaa", "--code", "54321",
		"--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)
	_, err = runCLI(t, db, "grant", "create", "54321")
	require.NoError(t, err)

	out, err := runCLI(t, db, "grant", "revoke", "54321")
	require.NoError(t, err)
	assert.Contains(t, out, "Revoked grant")

	// Revoked member can be granted again.
	_, err = runCLI(t, db, "grant", "create", "54321")
	require.NoError(t, err)
}

func TestGrantCommands_RequireAdmin(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "enroll",
		"--name", "Ama Serwaa", "--code", "54321",
		"--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)
	_, err = runCLI(t, db, "login", "--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)

	_, err = runCLI(t, db, "grant", "create", "54321")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLogin_WrongPassword(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "login", "--email", "esi@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLogout(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	out, err := runCLI(t, db, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out")

	_, err = runCLI(t, db, "attendance")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEnroll_DuplicateCode(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, "enroll", "--name", "A", "--code", "54321")
	require.NoError(t, err)
	_, err = runCLI(t, db, "enroll", "--name", "B", "--code", "54321")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestEnroll_InvalidCode(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, "enroll", "--name", "A", "--code", "12ab5")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRoot_InvalidFormat(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, db, "--format", "xml", "attendance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestCheckin_ProfileOverridesService(t *testing.T) {
	db := testDB(t)
	seedAdmin(t, db)

	_, err := runCLI(t, db, "enroll",
		"--name", "Ama Serwaa", "--code", "54321",
		"--email", "ama@example.com", "--password", "pw")
	require.NoError(t, err)

	profilePath := filepath.Join(t.TempDir(), "profile.cue")
	writeFile(t, profilePath, `service: "Youth Camp"`)

	_, err = runCLI(t, db, "--profile", profilePath, "checkin", "54321", "--yes")
	require.NoError(t, err)

	out, err := runCLI(t, db, "attendance")
	require.NoError(t, err)
	assert.Contains(t, out, "Youth Camp")
}
