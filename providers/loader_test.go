package providers_test

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/Eibon7/roastr-ai-sub021/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load(t *testing.T) {
	t.Run("success - valid providers file", func(t *testing.T) {
		content := `
providers:
  - name: "polar"
    signature_header: "X-Signature"
    secret_env: "POLAR_WEBHOOK_SECRET"
  - name: "github"
    signature_header: "X-Hub-Signature-256"
    secret_env: "GITHUB_WEBHOOK_SECRET"
    tolerance_seconds: 120
`
		tmpFile, err := os.CreateTemp("", "providers-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(content)
		require.NoError(t, err)
		tmpFile.Close()

		t.Setenv("POLAR_WEBHOOK_SECRET", "whsec_polar")
		t.Setenv("GITHUB_WEBHOOK_SECRET", "whsec_github")

		loader := providers.NewLoader()
		err = loader.Load(tmpFile.Name(), 300*time.Second)

		require.NoError(t, err)
		assert.Len(t, loader.List(), 2)

		polar, err := loader.Get("polar")
		require.NoError(t, err)
		assert.Equal(t, "X-Signature", polar.SignatureHeader)
		assert.Equal(t, "whsec_polar", polar.Secret)
		assert.Equal(t, 300*time.Second, polar.Tolerance)

		github, err := loader.Get("github")
		require.NoError(t, err)
		assert.Equal(t, 120*time.Second, github.Tolerance)
	})

	t.Run("error - file not found", func(t *testing.T) {
		loader := providers.NewLoader()
		err := loader.Load("nonexistent.yaml", time.Minute)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading providers file")
	})

	t.Run("error - invalid YAML", func(t *testing.T) {
		tmpFile, err := os.CreateTemp("", "providers-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(`invalid yaml content: [[[`)
		require.NoError(t, err)
		tmpFile.Close()

		loader := providers.NewLoader()
		err = loader.Load(tmpFile.Name(), time.Minute)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing providers YAML")
	})

	t.Run("error - missing signature header", func(t *testing.T) {
		content := `
providers:
  - name: "polar"
    secret_env: "POLAR_WEBHOOK_SECRET"
`
		tmpFile, err := os.CreateTemp("", "providers-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(content)
		require.NoError(t, err)
		tmpFile.Close()

		loader := providers.NewLoader()
		err = loader.Load(tmpFile.Name(), time.Minute)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "signature_header")
	})

	t.Run("error - uppercase provider name", func(t *testing.T) {
		content := `
providers:
  - name: "Polar"
    signature_header: "X-Signature"
    secret_env: "POLAR_WEBHOOK_SECRET"
`
		tmpFile, err := os.CreateTemp("", "providers-*.yaml")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.WriteString(content)
		require.NoError(t, err)
		tmpFile.Close()

		loader := providers.NewLoader()
		err = loader.Load(tmpFile.Name(), time.Minute)

		require.Error(t, err)
	})
}

func TestLoader_ByHeader(t *testing.T) {
	content := `
providers:
  - name: "polar"
    signature_header: "X-Signature"
    secret_env: "POLAR_WEBHOOK_SECRET"
`
	tmpFile, err := os.CreateTemp("", "providers-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	tmpFile.Close()

	loader := providers.NewLoader()
	require.NoError(t, loader.Load(tmpFile.Name(), time.Minute))

	t.Run("match on header presence, case-insensitive", func(t *testing.T) {
		headers := http.Header{}
		headers.Set("x-signature", "t=1,v1=abc")

		provider, ok := loader.ByHeader(headers)

		require.True(t, ok)
		assert.Equal(t, "polar", provider.Name)
	})

	t.Run("no signature header present", func(t *testing.T) {
		_, ok := loader.ByHeader(http.Header{})

		assert.False(t, ok)
	})
}
