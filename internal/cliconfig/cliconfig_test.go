package cliconfig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSignedPair writes a throwaway cert+key pair good enough to
// exercise identity.New without asserting anything about its contents.
func writeSelfSignedPair(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	require.NoError(t, err)

	keyBytes, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes})

	require.NoError(t, os.WriteFile(certPath, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, keyPEM, 0o600))

	return certPath, keyPath
}

func TestBuildRouterHappyPath(t *testing.T) {
	certPath, keyPath := writeSelfSignedPair(t)

	opts := Options{
		Client:  []string{"backend=*://backend.internal/*"},
		Cert:    []string{"backend=" + certPath},
		Key:     []string{"backend=" + keyPath},
		Mapping: []string{":9000/api/:path*=https://backend.internal/{path}"},
	}

	r, ports, err := BuildRouter(opts)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, []uint16{9000}, ports)
}

func TestBuildRouterDuplicatePorts(t *testing.T) {
	certPath, keyPath := writeSelfSignedPair(t)

	opts := Options{
		Client: []string{"backend=*://backend.internal/*"},
		Cert:   []string{"backend=" + certPath},
		Key:    []string{"backend=" + keyPath},
		Mapping: []string{
			":9000/a=https://backend.internal/a",
			":9000/b=https://backend.internal/b",
		},
	}

	_, ports, err := BuildRouter(opts)
	require.NoError(t, err)
	assert.Equal(t, []uint16{9000}, ports)
}

func TestBuildRouterMissingCertificate(t *testing.T) {
	opts := Options{
		Client: []string{"backend=*://backend.internal/*"},
	}

	_, _, err := BuildRouter(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no certificate file defined")
}

func TestBuildRouterUnknownIdentityInCert(t *testing.T) {
	certPath, _ := writeSelfSignedPair(t)

	opts := Options{
		Cert: []string{"ghost=" + certPath},
	}

	_, _, err := BuildRouter(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not find client identity")
}

func TestBuildRouterDuplicateCertificate(t *testing.T) {
	certPath, keyPath := writeSelfSignedPair(t)

	opts := Options{
		Client: []string{"backend=*://backend.internal/*"},
		Cert:   []string{"backend=" + certPath, "backend=" + certPath},
		Key:    []string{"backend=" + keyPath},
	}

	_, _, err := BuildRouter(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has a certificate defined")
}

func TestSplitMappingKeyDefaultsPathToWildcard(t *testing.T) {
	port, path, err := splitMappingKey(":9000")
	require.NoError(t, err)
	assert.Equal(t, uint16(9000), port)
	assert.Equal(t, "*", path)
}

func TestSplitMappingKeyRejectsMissingColon(t *testing.T) {
	_, _, err := splitMappingKey("9000")
	require.Error(t, err)
}
