package statsource

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tinytelemetry/mongoperf/internal/model"
)

// Command is an executable and its arguments.
type Command struct {
	Path string
	Args []string
}

// Name returns the executable's base name.
func (c Command) Name() string {
	return filepath.Base(c.Path)
}

// String renders the command line with credentials masked, for logging.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, a := range c.Args {
		if strings.HasPrefix(a, "--password=") || strings.HasPrefix(a, "--tlsCertificateKeyFilePassword=") {
			k, _, _ := strings.Cut(a, "=")
			a = k + "=****"
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// CommandOptions carries the per-run settings that are not part of the
// server configuration.
type CommandOptions struct {
	BinPath     string // directory holding the mongo binaries; empty = $PATH
	Binary      string // defaults to mongostat
	Count       int    // number of samples
	Interval    int    // seconds between samples
	TLSInsecure bool
}

// BuildCommand assembles the mongostat command line for server.
// The polling interval is the trailing positional argument.
func BuildCommand(server model.ServerConfig, opts CommandOptions) Command {
	binary := opts.Binary
	if binary == "" {
		binary = model.DefaultStatBinary
	}
	path := binary
	if opts.BinPath != "" {
		path = filepath.Join(opts.BinPath, binary)
	}
	count := opts.Count
	if count <= 0 {
		count = model.DefaultCount
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = model.DefaultInterval
	}

	var args []string
	if server.IsReplicaSet() {
		args = append(args, "--host="+server.RepSet+"/"+strings.Join(server.Hosts(), ","))
	} else {
		port := server.Port
		if port == 0 {
			port = model.DefaultMongoPort
		}
		args = append(args, "--host="+server.Host, "--port="+strconv.Itoa(port))
	}

	if server.Auth {
		args = append(args, "--username="+server.User, "--password="+server.Japd)
		args = append(args, "--authenticationDatabase="+server.AuthSource())
		if server.AuthMech != "" {
			args = append(args, "--authenticationMechanism="+server.AuthMech)
		}
	}

	args = append(args, "--json", "-n="+strconv.Itoa(count))

	if opts.TLSInsecure {
		args = append(args, "--tlsInsecure")
	}
	args = append(args, tlsArgs(server)...)

	args = append(args, strconv.Itoa(interval))
	return Command{Path: path, Args: args}
}

func tlsArgs(server model.ServerConfig) []string {
	if !server.UsesTLS() {
		return nil
	}
	args := []string{"--tls"}
	if ca := server.CAFile(); ca != "" {
		args = append(args, "--tlsCAFile="+ca)
	}
	if key := server.CertKeyFile(); key != "" {
		args = append(args, "--tlsCertificateKeyFile="+key)
	}
	if phrase := server.CertKeyPassword(); phrase != "" {
		args = append(args, "--tlsCertificateKeyFilePassword="+phrase)
	}
	return args
}
