package main

import (
	"fmt"

	"github.com/axiomesh/ballot/core"
	"github.com/axiomesh/ballot/tui"
	"github.com/urfave/cli/v2"
)

var voteCMD = &cli.Command{
	Name:  "vote",
	Usage: "The voter commands",
	Subcommands: []*cli.Command{
		{
			Name:      "show",
			Usage:     "Show a forum's ballot, or its results once voting ended",
			ArgsUsage: "<forum code>",
			Action:    showBallot,
		},
		{
			Name:      "cast",
			Usage:     "Cast your vote",
			ArgsUsage: "<forum code>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "candidate",
					Usage:    "Candidate position (1, 2, ...) or name",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "reason",
					Usage:    "Why you choose this candidate",
					Required: true,
				},
			},
			Action: castVote,
		},
	},
}

func voterForumArg(ctx *cli.Context, s *cliSession) (string, error) {
	if id := ctx.Args().First(); id != "" {
		return id, nil
	}
	if id := s.History.LastVoted(); id != "" {
		fmt.Printf("Using the last voted forum %s\n", id)
		return id, nil
	}
	return "", core.ErrEmptyForumID
}

func printBallot(f *core.Forum) {
	fmt.Println()
	switch {
	case !f.IsActive:
		fmt.Println("Voting has ended")
		fmt.Println()
		fmt.Println(f.Title)
		fmt.Println(tui.RenderResults(f))
	case f.HasVoted:
		fmt.Println(f.Title)
		fmt.Println("You have already voted, thank you for taking part!")
		fmt.Println("Results are shown once voting ends.")
	default:
		fmt.Println(f.Title)
		fmt.Println("Candidates:")
		for i, c := range f.Candidates {
			fmt.Printf("  %d. %s\n", i+1, c.Name)
		}
		fmt.Println()
		fmt.Printf("Vote with: ballot vote cast %s --candidate <n> --reason \"...\"\n", f.ID)
	}
}

func showBallot(ctx *cli.Context) error {
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := voterForumArg(ctx, s)
	if err != nil {
		return err
	}

	forum, err := s.LoadForum(ctx.Context, id, false)
	if err != nil {
		return err
	}
	printBallot(forum)
	return nil
}

func castVote(ctx *cli.Context) error {
	s, err := newSession(ctx, true)
	if err != nil {
		return err
	}
	defer s.Close()

	id := ctx.Args().First()
	if id == "" {
		return core.ErrEmptyForumID
	}

	forum, err := s.LoadForum(ctx.Context, id, false)
	if err != nil {
		return err
	}
	if err := forum.Votable(); err != nil {
		printBallot(forum)
		return err
	}

	candidate, err := core.ResolveCandidate(forum, ctx.String("candidate"))
	if err != nil {
		return err
	}

	forum, err = s.SubmitVote(ctx.Context, id, candidate, ctx.String("reason"))
	if err != nil {
		return err
	}
	fmt.Printf("Your vote for %s has been recorded\n", forum.CandidateName(candidate))
	printBallot(forum)
	return nil
}
