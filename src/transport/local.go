package transport

import (
	"context"
	"os/exec"
)

// Local runs commands as child processes of this program.
type Local struct{}

func (Local) Name() string { return "local" }

func (Local) Run(ctx context.Context, c Command, s Streams) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	return runCmd(ctx, cmd, c, "local", s)
}
