package statsource

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

func TestBuildCommand_Standalone(t *testing.T) {
	t.Parallel()

	server := model.ServerConfig{
		Host: "10.0.0.5", Port: 27018, Auth: true,
		User: "mon", Japd: "secret", AuthDB: "admin",
	}
	cmd := BuildCommand(server, CommandOptions{Count: 12, Interval: 5, TLSInsecure: true})

	if cmd.Path != "mongostat" {
		t.Errorf("Path = %q, want mongostat", cmd.Path)
	}
	want := []string{
		"--host=10.0.0.5", "--port=27018",
		"--username=mon", "--password=secret", "--authenticationDatabase=admin",
		"--json", "-n=12", "--tlsInsecure", "5",
	}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args = %q\nwant   %q", cmd.Args, want)
	}
}

func TestBuildCommand_ReplicaSetAndDefaults(t *testing.T) {
	t.Parallel()

	server := model.ServerConfig{
		Host: "ignored", RepSet: "spock", RepSetHosts: "h1:27017, h2:27017 ,h3:27017",
	}
	cmd := BuildCommand(server, CommandOptions{BinPath: "/opt/mongo/bin"})

	if cmd.Path != "/opt/mongo/bin/mongostat" {
		t.Errorf("Path = %q, want /opt/mongo/bin/mongostat", cmd.Path)
	}
	want := []string{"--host=spock/h1:27017,h2:27017,h3:27017", "--json", "-n=1", "1"}
	if !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("Args = %q\nwant   %q", cmd.Args, want)
	}
}

func TestBuildCommand_TLSMaterial(t *testing.T) {
	t.Parallel()

	server := model.ServerConfig{
		Host: "db", Port: 27017,
		TLSCACerts: "/etc/ca.pem", TLSCertKey: "/etc/client.pem", TLSCertKeyPhrase: "pw",
	}
	cmd := BuildCommand(server, CommandOptions{})
	joined := strings.Join(cmd.Args, " ")
	for _, want := range []string{"--tls", "--tlsCAFile=/etc/ca.pem", "--tlsCertificateKeyFile=/etc/client.pem", "--tlsCertificateKeyFilePassword=pw"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Args missing %q: %s", want, joined)
		}
	}
	if cmd.Args[len(cmd.Args)-1] != "1" {
		t.Errorf("interval must be the last argument, got %q", cmd.Args[len(cmd.Args)-1])
	}
}

func TestCommandString_MasksSecrets(t *testing.T) {
	t.Parallel()

	cmd := Command{Path: "mongostat", Args: []string{"--username=u", "--password=hunter2", "--tlsCertificateKeyFilePassword=pw"}}
	s := cmd.String()
	if strings.Contains(s, "hunter2") || strings.Contains(s, "=pw") {
		t.Fatalf("String() leaked a secret: %s", s)
	}
	if !strings.Contains(s, "--password=****") {
		t.Fatalf("String() = %s, want masked password", s)
	}
}
