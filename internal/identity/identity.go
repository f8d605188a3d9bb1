// Package identity loads a named mTLS client credential — a certificate
// chain, a private key, and the set of destination URL patterns that
// select it — into a ready-to-use *tls.Config.
package identity

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/url"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/TelenorNorway/mtls-proxy/internal/urlpattern"
)

// Identity is an immutable, named mTLS client credential. Safe for
// concurrent use once constructed; never mutated afterward.
type Identity struct {
	name      string
	patterns  []*urlpattern.Pattern
	tlsConfig *tls.Config
}

// New loads the certificate chain and private key from disk and builds the
// identity's TLS client configuration: the system root store for server
// validation, plus the loaded chain+key for client authentication.
// NextProtos is pinned to http/1.1 — upstream HTTP/2 is out of scope
// (spec.md §1 Non-goals).
func New(name string, patterns []*urlpattern.Pattern, certificateFilename, keyFilename string) (*Identity, error) {
	if name == "" {
		return nil, fmt.Errorf("client identity name must not be empty")
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("client identity %q has no destination patterns", name)
	}

	chain, err := loadCertificateChain(certificateFilename)
	if err != nil {
		return nil, fmt.Errorf("client identity %q: %w", name, err)
	}
	key, err := loadPrivateKey(keyFilename)
	if err != nil {
		return nil, fmt.Errorf("client identity %q: %w", name, err)
	}

	roots, err := x509.SystemCertPool()
	if err != nil || roots == nil {
		roots = x509.NewCertPool()
	}

	cfg := &tls.Config{
		RootCAs:      roots,
		Certificates: []tls.Certificate{{Certificate: chain, PrivateKey: key}},
		NextProtos:   []string{"http/1.1"},
		MinVersion:   tls.VersionTLS12,
	}

	log.Debug().
		Str("identity", name).
		Int("certificates", len(chain)).
		Msg("loaded client identity")

	return &Identity{name: name, patterns: patterns, tlsConfig: cfg}, nil
}

// Name returns the identity's configured name.
func (i *Identity) Name() string {
	return i.name
}

// Test reports whether any of the identity's destination patterns match
// the given destination URL.
func (i *Identity) Test(destination *url.URL) bool {
	for _, p := range i.patterns {
		if p.Test(destination) {
			return true
		}
	}
	return false
}

// Config returns the identity's shared, immutable TLS client
// configuration. Callers must not mutate the returned value.
func (i *Identity) Config() *tls.Config {
	return i.tlsConfig
}

func loadCertificateChain(filename string) ([][]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read certificate file %s: %w", filename, err)
	}

	var chain [][]byte
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}

	log.Debug().Str("file", filename).Int("count", len(chain)).Msg("found certificates")
	return chain, nil
}

// recognizedPrivateKeyTypes are the PEM block types load_key in the
// original implementation accepts: PKCS#1, PKCS#8, and SEC1 (EC).
// Certificates and revocation lists are skipped, not errored on.
var recognizedPrivateKeyTypes = map[string]bool{
	"RSA PRIVATE KEY": true,
	"PRIVATE KEY":     true,
	"EC PRIVATE KEY":  true,
}

func loadPrivateKey(filename string) (any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read key file %s: %w", filename, err)
	}

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if !recognizedPrivateKeyTypes[block.Type] {
			continue
		}

		log.Debug().Str("file", filename).Str("type", block.Type).Msg("scanning for key")

		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("cannot parse private key file")
			}
			return key, nil
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("cannot parse private key file")
			}
			return key, nil
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("cannot parse private key file")
			}
			return key, nil
		}
	}

	return nil, fmt.Errorf("no keys found in %s", filename)
}
