package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/reseller"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(reseller.EnvVar, "")
	var out bytes.Buffer
	cmd := newRootCmd(reseller.Builtin())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	out, err := run(t, "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "auditelle-fr")
	assert.Contains(t, lines[1], "www.auditelle.fr")
	assert.True(t, strings.HasSuffix(lines[1], "*"), "default is marked")
	assert.Contains(t, lines[2], "veritexto-es")
	assert.Contains(t, lines[3], "veritexto-pt")
}

func TestValidate_Builtin(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "ok   "))

	out, err = run(t, "validate", "veritexto-pt", "nope")
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "ok   veritexto-pt")
	assert.Contains(t, out, "FAIL nope")
}

func TestValidate_Dir(t *testing.T) {
	dir := t.TempDir()

	entry, err := run(t, "show", "auditelle-fr")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auditelle-fr.yaml"), []byte(entry), 0o644))

	out, err := run(t, "validate", "--dir", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ok   auditelle-fr")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: broken\n"), 0o644))
	out, err = run(t, "validate", "--dir", dir)
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "FAIL broken")
}

func TestShow_RoundTrips(t *testing.T) {
	out, err := run(t, "show", "VERITEXTO-ES")
	require.NoError(t, err)

	decoded, err := reseller.Decode([]byte(out))
	require.NoError(t, err)
	require.NoError(t, reseller.Validate(decoded))
	want, err := reseller.Builtin().Build("veritexto-es")
	require.NoError(t, err)
	assert.Equal(t, want.ID, decoded.ID)
	assert.Equal(t, want.Legal, decoded.Legal)
	assert.Equal(t, want.Features, decoded.Features)
	assert.Equal(t, want.Strings.Errors, decoded.Strings.Errors)

	_, err = run(t, "show", "acme")
	assert.ErrorIs(t, err, reseller.ErrUnknownReseller)
}

func TestShow_DefaultsToEnv(t *testing.T) {
	var out bytes.Buffer
	t.Setenv(reseller.EnvVar, "veritexto-pt")
	cmd := newRootCmd(reseller.Builtin())
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"metadata"})
	require.NoError(t, cmd.Execute())

	var meta map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &meta))
	assert.Equal(t, "pt", meta["lang"])
}

func TestRedirects(t *testing.T) {
	out, err := run(t, "redirects", "auditelle-fr")
	require.NoError(t, err)

	var redirects []reseller.Redirect
	require.NoError(t, json.Unmarshal([]byte(out), &redirects))
	assert.Contains(t, redirects, reseller.Redirect{Source: "/essai-gratuit", Destination: "/signup"})
}

func TestPreviewEmail(t *testing.T) {
	out, err := run(t, "preview-email", "trialExpiring", "--days", "1", "--name", "Ana Souza", "-r", "veritexto-pt")
	require.NoError(t, err)
	assert.NotContains(t, out, "<html")
	assert.Contains(t, out, "Ana")

	out, err = run(t, "preview-email", "welcome", "--format", "json", "--to", "ana@example.com")
	require.NoError(t, err)
	var msg email.Message
	require.NoError(t, json.Unmarshal([]byte(out), &msg))
	assert.Equal(t, email.Welcome, msg.Template)
	assert.Equal(t, "ana@example.com", msg.To)
	assert.Contains(t, msg.HTML, `lang="fr"`)

	_, err = run(t, "preview-email", "welcome", "--format", "pdf")
	assert.Error(t, err)

	_, err = run(t, "preview-email", "newsletter")
	assert.ErrorIs(t, err, email.ErrUnknownTemplate)
}
