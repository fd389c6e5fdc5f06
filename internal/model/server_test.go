package model

import (
	"reflect"
	"testing"
)

func TestServerConfigHosts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ServerConfig
		want []string
	}{
		{"standalone default port", ServerConfig{Host: "db1"}, []string{"db1:27017"}},
		{"standalone port", ServerConfig{Host: "db1", Port: 27018}, []string{"db1:27018"}},
		{"ipv6", ServerConfig{Host: "::1", Port: 27017}, []string{"[::1]:27017"}},
		{
			"replica set",
			ServerConfig{Host: "ignored", RepSet: "rs0", RepSetHosts: " h1:1, ,h2:2 "},
			[]string{"h1:1", "h2:2"},
		},
		{"repset without hosts", ServerConfig{Host: "db1", RepSet: "rs0"}, []string{"db1:27017"}},
	}
	for _, tt := range tests {
		if got := tt.cfg.Hosts(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: Hosts() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestServerConfigTLSPrecedence(t *testing.T) {
	t.Parallel()

	cfg := ServerConfig{SSLClientCA: "ssl-ca.pem", SSLClientCert: "ssl.pem", SSLClientPhrase: "p1"}
	if !cfg.UsesTLS() {
		t.Fatal("UsesTLS() = false with ssl entries")
	}
	if cfg.CAFile() != "ssl-ca.pem" || cfg.CertKeyFile() != "ssl.pem" || cfg.CertKeyPassword() != "p1" {
		t.Fatalf("ssl fallbacks = %q %q %q", cfg.CAFile(), cfg.CertKeyFile(), cfg.CertKeyPassword())
	}

	cfg.TLSCACerts, cfg.TLSCertKey, cfg.TLSCertKeyPhrase = "ca.pem", "key.pem", "p2"
	if cfg.CAFile() != "ca.pem" || cfg.CertKeyFile() != "key.pem" || cfg.CertKeyPassword() != "p2" {
		t.Fatalf("tls entries not preferred: %q %q %q", cfg.CAFile(), cfg.CertKeyFile(), cfg.CertKeyPassword())
	}

	if (ServerConfig{}).AuthSource() != "admin" {
		t.Fatalf("AuthSource() default = %q, want admin", (ServerConfig{}).AuthSource())
	}
}
