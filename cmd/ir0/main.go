// Command ir0 is the command-line front end for the kernel: boot brings
// a simulated machine up from a config file, fsck checks a MINIX volume
// offline, and version prints the build identifier. Modeled on runsc's
// subcommand tree (spec.md's ambient CLI section).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&bootCommand{}, "")
	subcommands.Register(&fsckCommand{}, "")
	subcommands.Register(&versionCommand{}, "")

	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	os.Exit(int(run(context.Background())))
}

// run wraps subcommands.Execute with the one panic-catching boundary
// kernel-internal invariant violations surface through (spec.md: panics
// are for broken invariants, never ordinary control flow, and are caught
// exactly once here to print a diagnostic and halt rather than crash
// with a raw stack trace).
func run(ctx context.Context) (status subcommands.ExitStatus) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("subsystem", "cmd/ir0").Errorf("invariant violation: %v", r)
			status = subcommands.ExitFailure
		}
	}()
	return subcommands.Execute(ctx)
}
