package server

import (
	"bytes"
	"crypto/tls"
	"os"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// certStore selects a certificate by SNI server name.
type certStore struct {
	byHost   map[string]*tls.Certificate
	fallback *tls.Certificate
}

// loadCertificates reads every TLS vhost's pem files. Certificates and the
// private key may be split across files in any order.
func loadCertificates(vhosts []config.VHost) (*certStore, error) {
	store := &certStore{byHost: make(map[string]*tls.Certificate)}
	for _, vh := range vhosts {
		if vh.TLS == nil {
			continue
		}
		var pem bytes.Buffer
		for _, f := range vh.TLS.PEMFiles {
			data, err := os.ReadFile(f)
			if err != nil {
				return nil, errors.IOError("failed to read pem file").
					WithFile(f).WithContext("vhost", vh.Host).WithCause(err).Build()
			}
			pem.Write(data)
			pem.WriteByte('\n')
		}
		cert, err := tls.X509KeyPair(pem.Bytes(), pem.Bytes())
		if err != nil {
			return nil, errors.ConfigError("invalid certificate material").
				WithContext("vhost", vh.Host).WithCause(err).Build()
		}
		host := strings.ToLower(vh.Host)
		store.byHost[host] = &cert
		if store.fallback == nil {
			store.fallback = &cert
		}
	}
	return store, nil
}

func (s *certStore) empty() bool { return len(s.byHost) == 0 }

func (s *certStore) getCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	if cert, ok := s.byHost[strings.ToLower(strings.TrimSuffix(hello.ServerName, "."))]; ok {
		return cert, nil
	}
	return s.fallback, nil
}

func (s *certStore) tlsConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: s.getCertificate,
	}
}
