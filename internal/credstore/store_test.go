package credstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grnet/mcp-aws-orgs/internal/envelope"
)

func writeSecrets(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validJSON = `{
  "institutions": {
    "sandbox": {
      "aws_access_key_id": "AKIASANDBOX000000001",
      "aws_secret_access_key": "sandbox-secret",
      "description": "Sandbox organization"
    },
    "grnet": {
      "aws_access_key_id": "AKIAGRNET00000000001",
      "aws_secret_access_key": "grnet-secret",
      "region": "eu-west-1",
      "sso_region": "eu-central-1"
    }
  }
}`

func TestLoadJSON(t *testing.T) {
	store, err := Load(writeSecrets(t, "secrets.json", validJSON))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []string{"grnet", "sandbox"}, store.Names())

	cred, err := store.Lookup("grnet")
	require.NoError(t, err)
	assert.Equal(t, "grnet-secret", cred.SecretAccessKey)
	assert.Equal(t, "eu-west-1", cred.Region)
	assert.Equal(t, "eu-central-1", cred.SSORegion)
}

func TestLoadYAML(t *testing.T) {
	store, err := Load(writeSecrets(t, "secrets.yaml", `
institutions:
  aueb:
    aws_access_key_id: AKIAAUEB000000000001
    aws_secret_access_key: aueb-secret
    description: AUEB organization
`))
	require.NoError(t, err)

	cred, err := store.Lookup("aueb")
	require.NoError(t, err)
	assert.Equal(t, "AUEB organization", cred.Description)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "invalid json", file: "secrets.json", content: `{"institutions": `},
		{name: "invalid yaml", file: "secrets.yaml", content: "institutions: [\n  - :bad"},
		{name: "no institutions", file: "secrets.json", content: `{"institutions": {}}`},
		{
			name:    "missing secret key",
			file:    "secrets.json",
			content: `{"institutions": {"sandbox": {"aws_access_key_id": "AKIA123"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSecrets(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Equal(t, envelope.KindConfig, envelope.Classify(err).Kind)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Equal(t, envelope.KindConfig, envelope.Classify(err).Kind)
}

func TestLookupUnknownInstitution(t *testing.T) {
	store, err := Load(writeSecrets(t, "secrets.json", validJSON))
	require.NoError(t, err)

	_, err = store.Lookup("acme")
	assert.ErrorIs(t, err, ErrUnknownInstitution)
	assert.False(t, store.Has("acme"))
	assert.True(t, store.Has("sandbox"))
}

func TestReloadSwapsAtomically(t *testing.T) {
	path := writeSecrets(t, "secrets.json", validJSON)
	store, err := Load(path)
	require.NoError(t, err)

	// A failed reload must leave the old set intact.
	bad := writeSecrets(t, "bad.json", `{"institutions": {}}`)
	require.Error(t, store.Reload(bad))
	assert.True(t, store.Has("sandbox"))

	rotated := writeSecrets(t, "rotated.json", `{
  "institutions": {
    "sandbox": {
      "aws_access_key_id": "AKIASANDBOXROTATED01",
      "aws_secret_access_key": "rotated-secret"
    }
  }
}`)
	require.NoError(t, store.Reload(rotated))

	cred, err := store.Lookup("sandbox")
	require.NoError(t, err)
	assert.Equal(t, "rotated-secret", cred.SecretAccessKey)

	_, err = store.Lookup("grnet")
	assert.ErrorIs(t, err, ErrUnknownInstitution)
}

func TestCredentialRedaction(t *testing.T) {
	cred := Credential{AccessKeyID: "AKIASANDBOX000000001", SecretAccessKey: "super-secret"}

	assert.NotContains(t, cred.String(), "super-secret")
	assert.NotContains(t, cred.String(), "SANDBOX000000001")
	assert.Contains(t, cred.String(), "AKIA")

	logged := cred.LogValue().String()
	assert.NotContains(t, logged, "super-secret")
}
