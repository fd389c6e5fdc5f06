package model

import (
	"net"
	"strconv"
	"strings"
)

// ServerConfig holds connection parameters for one MongoDB server or replica set.
// It is loaded from a YAML server configuration file.
type ServerConfig struct {
	Name          string `yaml:"name"`
	User          string `yaml:"user"`
	Japd          string `yaml:"japd"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Auth          bool   `yaml:"auth"`
	AuthDB        string `yaml:"auth_db"`
	AuthMech      string `yaml:"auth_mech"`
	DirectConnect bool   `yaml:"direct_connect"`

	RepSet      string `yaml:"repset"`
	RepSetHosts string `yaml:"repset_hosts"`
	DBAuth      string `yaml:"db_auth"`

	AuthType         string `yaml:"auth_type"`
	TLSCACerts       string `yaml:"tls_ca_certs"`
	TLSCertKey       string `yaml:"tls_certkey"`
	TLSCertKeyPhrase string `yaml:"tls_certkey_phrase"`
	SSLClientCA      string `yaml:"ssl_client_ca"`
	SSLClientKey     string `yaml:"ssl_client_key"`
	SSLClientCert    string `yaml:"ssl_client_cert"`
	SSLClientPhrase  string `yaml:"ssl_client_phrase"`
}

// IsReplicaSet reports whether the config describes a replica set connection.
func (c ServerConfig) IsReplicaSet() bool {
	return c.RepSet != "" && c.RepSetHosts != ""
}

// UsesTLS reports whether any TLS or SSL material is configured.
func (c ServerConfig) UsesTLS() bool {
	return c.TLSCACerts != "" || c.TLSCertKey != "" ||
		c.SSLClientCA != "" || c.SSLClientCert != ""
}

// Hosts returns the seed list: the replica set members, or host:port for a
// standalone server.
func (c ServerConfig) Hosts() []string {
	if c.IsReplicaSet() {
		var hosts []string
		for _, h := range strings.Split(c.RepSetHosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		return hosts
	}
	port := c.Port
	if port == 0 {
		port = DefaultMongoPort
	}
	return []string{net.JoinHostPort(c.Host, strconv.Itoa(port))}
}

// AuthSource returns the authentication database, admin when unset.
func (c ServerConfig) AuthSource() string {
	if c.AuthDB == "" {
		return DefaultAuthDB
	}
	return c.AuthDB
}

// CAFile returns the CA bundle, preferring the tls_ entry over the ssl_ one.
func (c ServerConfig) CAFile() string { return firstNonEmpty(c.TLSCACerts, c.SSLClientCA) }

// CertKeyFile returns the client certificate/key PEM file.
func (c ServerConfig) CertKeyFile() string { return firstNonEmpty(c.TLSCertKey, c.SSLClientCert) }

// CertKeyPassword returns the passphrase of the client key, if any.
func (c ServerConfig) CertKeyPassword() string {
	return firstNonEmpty(c.TLSCertKeyPhrase, c.SSLClientPhrase)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
