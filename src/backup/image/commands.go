package image

import (
	"path/filepath"
	"strconv"
	"strings"

	"pi-backup/src/config"
	"pi-backup/src/tools"
	"pi-backup/src/transport"
)

// BlockSize is the dd block size for both ends of the dump pipe.
const BlockSize = "4M"

func privileged(cfg config.Config, c transport.Command) transport.Command {
	if !cfg.Sudo {
		return c
	}
	return transport.Command{Name: tools.Sudo, Args: c.Argv()}
}

// DeviceListCommand lists block devices on the target.
func DeviceListCommand(cfg config.Config) transport.Command {
	return privileged(cfg, transport.Command{Name: tools.Fdisk, Args: []string{"-l"}})
}

// DumpReader reads the raw device on the target and writes it to stdout.
func DumpReader(cfg config.Config) transport.Command {
	return privileged(cfg, transport.Command{
		Name: tools.DD,
		Args: []string{"if=" + cfg.Drive, "bs=" + BlockSize},
	})
}

// DumpWriter stores stdin in the scratch image file. It runs without sudo
// so the image is not created by root.
func DumpWriter(cfg config.Config) transport.Command {
	args := []string{"of=" + cfg.ImagePath(), "bs=" + BlockSize}
	if cfg.Quiet {
		args = append(args, "status=none")
	}
	return transport.Command{Name: tools.DD, Args: args}
}

// ChownCommand hands the scratch image to the configured user and group.
func ChownCommand(cfg config.Config) transport.Command {
	return privileged(cfg, transport.Command{
		Name: tools.Chown,
		Args: []string{cfg.User + ":" + cfg.Group, cfg.ImagePath()},
	})
}

// ShrinkCommand shrinks (and optionally compresses) the scratch image in place.
func ShrinkCommand(cfg config.Config) transport.Command {
	var args []string
	if f := cfg.Compression.ShrinkFlag(); f != "" {
		args = append(args, f)
	}
	args = append(args, cfg.ImagePath())
	return privileged(cfg, transport.Command{Name: tools.PiShrink, Args: args})
}

// RequiredTools lists the local binaries a run needs.
func RequiredTools(cfg config.Config) []string {
	names := []string{tools.PiShrink, tools.DD, tools.Chown}
	if cfg.Sudo {
		names = append(names, tools.Sudo)
	}
	if !cfg.Target.Local {
		names = append(names, tools.SSH)
	}
	return names
}

// TransportFor returns the transport reaching cfg.Target.
func TransportFor(cfg config.Config) transport.Transport {
	if cfg.Target.Local {
		return transport.Local{}
	}
	return transport.NewSSH(cfg.Target.Host, cfg.Target.User, cfg.Target.Port)
}

// PlannedStep is one human-readable step of a run.
type PlannedStep struct {
	Name        string
	Transport   string
	Description string
}

// Plan describes every step a run would take, without executing anything.
func Plan(cfg config.Config) []PlannedStep {
	remote := TransportFor(cfg).Name()
	steps := []PlannedStep{
		{Name: "check-tools", Transport: "local", Description: "require " + strings.Join(RequiredTools(cfg), ", ")},
		{Name: "check-device", Transport: remote, Description: DeviceListCommand(cfg).String() + " | grep 'Disk " + cfg.Drive + "'"},
		{Name: "dump", Transport: remote + " | local", Description: DumpReader(cfg).String() + " | " + DumpWriter(cfg).String()},
		{Name: "chown", Transport: "local", Description: ChownCommand(cfg).String()},
		{Name: "shrink", Transport: "local", Description: ShrinkCommand(cfg).String()},
		{Name: "mkdir", Transport: "local", Description: "mkdir -p " + transport.Quote(cfg.DestDir())},
		{Name: "rotate", Transport: "local", Description: "rotate " + transport.Quote(cfg.ShrunkPath()) + " into " +
			transport.Quote(cfg.DestDir()) + " keeping " + strconv.Itoa(cfg.RotationCount)},
	}
	if cfg.Offsite != "" {
		steps = append(steps, PlannedStep{Name: "offsite", Transport: cfg.Offsite,
			Description: "upload " + transport.Quote(filepath.Join(cfg.DestDir(), SlotName(cfg, 0))) + " to " + cfg.Offsite})
	}
	return steps
}
