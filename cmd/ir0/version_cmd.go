package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// buildVersion is overwritten with -ldflags "-X main.buildVersion=..." by
// release builds; left at its default for ordinary local builds.
var buildVersion = "dev"

type versionCommand struct{}

func (*versionCommand) Name() string             { return "version" }
func (*versionCommand) Synopsis() string          { return "print the ir0 build version" }
func (*versionCommand) Usage() string             { return "version\n" }
func (*versionCommand) SetFlags(_ *flag.FlagSet) {}

func (*versionCommand) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fmt.Printf("ir0 version %s\n", buildVersion)
	return subcommands.ExitSuccess
}
