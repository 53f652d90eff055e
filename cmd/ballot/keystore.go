package main

import (
	"fmt"
	"strings"

	"github.com/axiomesh/ballot/repo"
	"github.com/axiomesh/ballot/wallet"
	"github.com/urfave/cli/v2"
)

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var keystoreCMD = &cli.Command{
	Name:  "keystore",
	Usage: "The wallet keystore commands",
	Subcommands: []*cli.Command{
		{
			Name:  "extract",
			Usage: "Decrypt a keystore file and print its address and private key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "file",
					Usage: "Keystore file or directory, defaults to the configured wallet keystore",
				},
				&cli.StringFlag{
					Name:  "address",
					Usage: "Account to pick when --file is a directory",
				},
			},
			Action: extract,
		},
	},
}

func extract(ctx *cli.Context) error {
	file, address := ctx.String("file"), ctx.String("address")
	if file == "" {
		r, err := loadRepo(ctx)
		if err != nil {
			return err
		}
		file = repo.ExpandPath(r.Config.RepoRoot, r.Config.Wallet.Keystore)
		if address == "" {
			address = r.Config.Wallet.Address
		}
	}

	fmt.Println("Opening keystore...")
	fmt.Println("Path:", file)
	fmt.Println()

	w, err := wallet.FromKeystore(file, address, ctx.String("password"))
	if err != nil {
		fmt.Println("Troubleshooting:")
		fmt.Println("   - make sure the keystore path is correct")
		fmt.Println("   - make sure the password is correct (--password or BALLOT_PASSWORD)")
		return err
	}

	fmt.Println("Private key extracted")
	fmt.Println()
	fmt.Println("Account:")
	fmt.Println(separator)
	fmt.Println("Address     :", w.Address().Hex())
	fmt.Println("Private Key :", w.PrivateKeyHex())
	fmt.Println(separator)
	fmt.Println()
	fmt.Println("IMPORTANT: never share this private key with anyone!")
	fmt.Println()
	fmt.Println("Copy the key above without 0x into your environment, e.g.")
	fmt.Printf("   PRIVATE_KEY=%s...\n", strings.TrimPrefix(w.PrivateKeyHex(), "0x")[:12])
	return nil
}
