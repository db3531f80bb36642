package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/devices/block"
	"github.com/IRodriguez13/IR0-sub002/pkg/sentry/fsimpl/minix"
)

// fsckCommand runs an offline consistency check against a MINIX disk
// image: it opens the device directly, never through a mounted VFS,
// mirroring fsck.minix's "never run on a mounted filesystem" convention.
type fsckCommand struct {
	diskPath string
}

func (*fsckCommand) Name() string     { return "fsck" }
func (*fsckCommand) Synopsis() string { return "check a MINIX volume's bitmap/tree consistency" }
func (*fsckCommand) Usage() string    { return "fsck -disk <path>\n" }

func (c *fsckCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.diskPath, "disk", "", "path to the MINIX disk image")
}

func (c *fsckCommand) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.diskPath == "" {
		fmt.Fprintln(os.Stderr, "fsck: -disk is required")
		return subcommands.ExitUsageError
	}

	dev, err := block.OpenFileDevice(c.diskPath, "fsck")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fsck: open %s: %v\n", c.diskPath, err)
		return subcommands.ExitFailure
	}
	defer dev.Close()

	fs, err := minix.Open(dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fsck: %s: %v\n", c.diskPath, err)
		return subcommands.ExitFailure
	}

	report, err := fs.Check()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fsck: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("inodes: %d total, %d free\n", report.InodesTotal, report.InodesFree)
	fmt.Printf("zones:  %d total, %d free\n", report.ZonesTotal, report.ZonesFree)
	if report.Clean() {
		fmt.Println("clean")
		return subcommands.ExitSuccess
	}
	for _, e := range report.Errors {
		fmt.Println(e)
	}
	return subcommands.ExitFailure
}
