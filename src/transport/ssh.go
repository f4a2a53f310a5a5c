package transport

import (
	"context"
	"os/exec"
	"strconv"
)

// SSH runs commands on a remote host through the ssh client binary. The
// remote side receives one shell-quoted command line.
type SSH struct {
	Host    string
	User    string
	Port    int
	Binary  string   // defaults to "ssh"
	Options []string // extra -o options, e.g. "StrictHostKeyChecking=accept-new"
}

// NewSSH returns an SSH transport running in batch mode (no password prompts).
func NewSSH(host, user string, port int) *SSH {
	return &SSH{Host: host, User: user, Port: port, Options: []string{"BatchMode=yes"}}
}

func (s *SSH) Name() string { return "ssh:" + s.Host }

// Destination returns the [user@]host argument handed to ssh.
func (s *SSH) Destination() string {
	if s.User != "" {
		return s.User + "@" + s.Host
	}
	return s.Host
}

// Wrap returns the local ssh invocation that runs c on the remote host.
func (s *SSH) Wrap(c Command) Command {
	bin := s.Binary
	if bin == "" {
		bin = "ssh"
	}
	var args []string
	for _, o := range s.Options {
		args = append(args, "-o", o)
	}
	if s.Port > 0 {
		args = append(args, "-p", strconv.Itoa(s.Port))
	}
	args = append(args, s.Destination(), "--", c.String())
	return Command{Name: bin, Args: args}
}

func (s *SSH) Run(ctx context.Context, c Command, st Streams) error {
	wrapped := s.Wrap(c)
	cmd := exec.CommandContext(ctx, wrapped.Name, wrapped.Args...)
	return runCmd(ctx, cmd, c, s.Name(), st)
}
