package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/axiomesh/ballot/core"
	"github.com/axiomesh/ballot/tui"
	"github.com/urfave/cli/v2"
)

var forumCMD = &cli.Command{
	Name:  "forum",
	Usage: "The forum admin commands",
	Subcommands: []*cli.Command{
		{
			Name:      "create",
			Usage:     "Create a voting forum",
			ArgsUsage: "<candidate> <candidate> [candidate...]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "title",
					Usage:    "Forum title",
					Required: true,
				},
			},
			Action: createForum,
		},
		{
			Name:      "status",
			Usage:     "Show the results of a forum, with voter reasons when you are its admin",
			ArgsUsage: "[forum code]",
			Action:    forumStatus,
		},
		{
			Name:      "end",
			Usage:     "End voting in a forum you administer",
			ArgsUsage: "[forum code]",
			Action:    endVoting,
		},
		{
			Name:      "watch",
			Usage:     "Follow the events of a forum, or of every forum with --all",
			ArgsUsage: "[forum code]",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "all",
					Usage: "Watch every forum of the contract",
				},
			},
			Action: watch,
		},
	},
}

// forumArg returns the forum code argument, defaulting to the last forum this repo created.
func forumArg(ctx *cli.Context, s *cliSession) (string, error) {
	if id := ctx.Args().First(); id != "" {
		return id, nil
	}
	if id := s.History.LastCreated(); id != "" {
		fmt.Printf("Using the last created forum %s\n", id)
		return id, nil
	}
	return "", core.ErrEmptyForumID
}

func printForum(f *core.Forum) {
	fmt.Println()
	fmt.Println(tui.RenderStatus(f))
	fmt.Println()
	fmt.Println(tui.RenderResults(f))
	if voters := tui.RenderVoters(f); voters != "" {
		fmt.Println()
		fmt.Println(voters)
	}
}

func createForum(ctx *cli.Context) error {
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.CreateForum(ctx.Context, ctx.String("title"), ctx.Args().Slice())
	if err != nil {
		return err
	}

	fmt.Println("Forum created!")
	fmt.Println(separator)
	fmt.Println("Forum code:", created.ID)
	fmt.Println("Tx:        ", created.TxHash.Hex())
	fmt.Println("Block:     ", created.BlockNumber)
	fmt.Println(separator)
	fmt.Println("Share this code with the voters")
	return nil
}

func forumStatus(ctx *cli.Context) error {
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := forumArg(ctx, s)
	if err != nil {
		return err
	}

	forum, err := s.LoadForum(ctx.Context, id, true)
	if err != nil {
		return err
	}
	printForum(forum)
	return nil
}

func endVoting(ctx *cli.Context) error {
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := forumArg(ctx, s)
	if err != nil {
		return err
	}

	forum, err := s.EndVoting(ctx.Context, id)
	if err != nil {
		return err
	}
	fmt.Println("Voting has ended")
	printForum(forum)
	return nil
}

func watch(ctx *cli.Context) error {
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id := ""
	if !ctx.Bool("all") {
		if id, err = forumArg(ctx, s); err != nil {
			return err
		}
	}

	w := core.NewWatcher(ctx.Context, s.Config, s.Client(), s.Contract(), s.History, s.Logger, id, printEvent)
	if err := w.Start(); err != nil {
		return fmt.Errorf("start watcher failed: %w", err)
	}

	if s.Config.Watch.ToBlock != 0 {
		return w.Stop()
	}

	fmt.Println("=============Watching forum events, ctrl+c to stop=============")
	waitForShutdown()
	fmt.Println("received interrupt signal, shutting down...")
	return w.Stop()
}

func printEvent(e core.Event) {
	switch e.Kind {
	case core.EventKindForumCreated:
		fmt.Printf("#%d forum %s created by %s: %s\n", e.BlockNumber, e.ForumID, core.ShortAddress(e.Admin), e.Title)
	case core.EventKindVoteCast:
		fmt.Printf("#%d %s voted in forum %s for candidate %d\n", e.BlockNumber, core.ShortAddress(e.Voter), e.ForumID, e.Candidate+1)
	case core.EventKindVotingEnded:
		fmt.Printf("#%d voting ended in forum %s\n", e.BlockNumber, e.ForumID)
	}
}

func waitForShutdown() {
	var stop = make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGTERM)
	signal.Notify(stop, syscall.SIGINT)
	<-stop
}
