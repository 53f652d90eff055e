package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "Ballot"
	app.Usage = "Terminal client for the on-chain VotingSystem contract"
	app.Compiled = time.Now()

	cli.VersionPrinter = func(c *cli.Context) {
		printVersion()
	}

	// global flags
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Ballot storage repo path",
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "Password of the wallet keystore",
			EnvVars: []string{"BALLOT_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "private-key",
			Usage:   "Hex private key used instead of the keystore",
			EnvVars: []string{"BALLOT_PRIVATE_KEY"},
		},
	}

	app.Commands = []*cli.Command{
		configCMD,
		keystoreCMD,
		deployCMD,
		forumCMD,
		voteCMD,
		{
			Name:   "start",
			Usage:  "Start the interactive voting client",
			Action: start,
		},
		{
			Name:    "version",
			Aliases: []string{"v"},
			Usage:   "Ballot version",
			Action: func(ctx *cli.Context) error {
				printVersion()
				return nil
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
