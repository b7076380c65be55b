package server

import "crypto/tls"

// LoadTLSConfig builds the tls.Config a Server wraps every accepted
// socket in when ENABLE_ENCRYPTION is set, grounded on
// original_source's TLS acceptor setup in src/server/connection.rs
// (rustls::ServerConfig built from a PEM cert chain and a PKCS8-or-RSA
// private key). Go's crypto/tls auto-detects both private key
// encodings from LoadX509KeyPair, so no separate PKCS8/RSA branch is
// needed the way rustls_pemfile required.
func LoadTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"chatcore"},
	}, nil
}
