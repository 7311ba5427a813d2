package tlsutil_test

import (
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/approval/pkg/tlsutil"
)

func TestGenerateSelfSignedCert(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	require.NoError(t, tlsutil.GenerateSelfSignedCert([]string{"localhost", "127.0.0.1"}, dir, time.Hour))

	for _, name := range []string{tlsutil.CAFile, tlsutil.CAKeyFile, tlsutil.ServerFile, tlsutil.ServerKeyFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	raw, err := os.ReadFile(filepath.Join(dir, tlsutil.ServerFile))
	require.NoError(t, err)
	block, _ := pem.Decode(raw)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())

	caRaw, err := os.ReadFile(filepath.Join(dir, tlsutil.CAFile))
	require.NoError(t, err)
	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(caRaw))
	_, err = cert.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: pool})
	assert.NoError(t, err)
}

func TestServerAndClientTLSConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, tlsutil.GenerateSelfSignedCert([]string{"localhost"}, dir, time.Hour))

	server, err := tlsutil.ServerTLSConfig(filepath.Join(dir, tlsutil.ServerFile), filepath.Join(dir, tlsutil.ServerKeyFile))
	require.NoError(t, err)
	assert.Equal(t, "tls", server.Info().SecurityProtocol)

	client, err := tlsutil.ClientTLSConfig(filepath.Join(dir, tlsutil.CAFile), "localhost")
	require.NoError(t, err)
	assert.Equal(t, "localhost", client.Info().ServerName)
}

func TestTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := tlsutil.ServerTLSConfig(filepath.Join(dir, "missing.pem"), filepath.Join(dir, "missing-key.pem"))
	assert.ErrorContains(t, err, "load server key pair")

	_, err = tlsutil.ClientTLSConfig(filepath.Join(dir, "missing.pem"), "")
	assert.ErrorContains(t, err, "read CA file")

	bad := filepath.Join(dir, "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o600))
	_, err = tlsutil.ClientTLSConfig(bad, "")
	assert.ErrorContains(t, err, "failed to parse CA certificate")

	_, err = tlsutil.ClientTLSConfig("", "")
	assert.NoError(t, err)
}
