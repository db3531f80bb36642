package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/boot"
)

// bootCommand brings a simulated machine up from a TOML config file and
// idles, driving the tick source, until interrupted — the CLI analogue
// of the assembly entry point handing off to the scheduler's idle loop.
type bootCommand struct {
	configPath string
	diskPath   string
	format     bool
}

func (*bootCommand) Name() string     { return "boot" }
func (*bootCommand) Synopsis() string { return "bring up the kernel from a config file" }
func (*bootCommand) Usage() string {
	return "boot -config <path> [-disk <path>] [-format]\n"
}

func (c *bootCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a boot.Config TOML document")
	f.StringVar(&c.diskPath, "disk", "", "override the configured disk image path")
	f.BoolVar(&c.format, "format", false, "mkfs a fresh MINIX volume instead of mounting an existing one")
}

func (c *bootCommand) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logrus.WithField("subsystem", "cmd/ir0")

	cfg := boot.DefaultConfig()
	if c.configPath != "" {
		loaded, err := boot.LoadConfig(c.configPath)
		if err != nil {
			log.WithError(err).Error("load config")
			return subcommands.ExitFailure
		}
		cfg = loaded
	}
	if c.diskPath != "" {
		cfg.Disk.Path = c.diskPath
		cfg.Disk.Format = c.format
	}

	env, err := boot.Bringup(cfg)
	if err != nil {
		log.WithError(err).Error("bringup")
		return subcommands.ExitFailure
	}
	log.WithField("hostname", env.Kernel.Hostname()).WithField("pid", env.Init.PID()).Info("kernel up")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	defer env.Tick.Stop()

	current, err := env.Kernel.Schedule()
	if err != nil {
		log.WithError(err).Error("initial schedule")
		return subcommands.ExitFailure
	}

	ticks := env.Tick.Ticks()
	for {
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case <-sigCh:
			log.Info("shutting down")
			return subcommands.ExitSuccess
		case n, ok := <-ticks:
			if !ok {
				return subcommands.ExitSuccess
			}
			log.WithField("tick", n).Debug("tick")
			if !env.Kernel.Tick(current) {
				continue
			}
			env.Kernel.Deschedule(current, true)
			next, err := env.Kernel.Schedule()
			if err != nil {
				log.WithError(err).Error("schedule")
				return subcommands.ExitFailure
			}
			current = next
		}
	}
}
