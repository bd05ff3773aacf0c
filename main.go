package main

import (
	"fmt"
	"os"

	"github.com/afeish/blockfile/cmd"

	"github.com/pingcap/log"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	BuildTime   = ""
	BuildNumber = ""
	GitCommit   = ""
	Version     = "1.0.0"
)

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		if _, err := fmt.Fprintf(c.App.Writer,
			"Version:    %s\n"+
				"Git Commit: %s\n"+
				"Build Time: %s\n"+
				"Build:      %s\n",
			c.App.Version, GitCommit, BuildTime, BuildNumber); err != nil {
			log.Fatal("", zap.Error(err))
		}
	}
	app := &cli.App{
		Name:                 "blockfile",
		Usage:                "block-cached random access to a file",
		Version:              Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			cmd.CmdRead(),
			cmd.CmdWrite(),
			cmd.CmdStat(),
			cmd.CmdVerify(),
		},
	}

	app.CommandNotFound = func(c *cli.Context, command string) {
		fmt.Fprintf(c.App.ErrWriter, "No matching command '%s'\n\n", command)
		cli.ShowSubcommandHelpAndExit(c, 1)
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("", zap.Error(err))
	}
}
