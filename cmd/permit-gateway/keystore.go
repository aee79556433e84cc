package main

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/ethwallet/keystore"
	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/helpers"
)

var keystorePathFlag = &cli.StringFlag{
	Name:  "path",
	Usage: "keystore file (default: the config directory)",
}

var keystoreCmd = &cli.Command{
	Name:  "keystore",
	Usage: "manage the local development wallet",
	Subcommands: []*cli.Command{
		{
			Name:  "new",
			Usage: "create an encrypted keystore with a fresh key",
			Flags: []cli.Flag{keystorePathFlag},
			Action: func(cctx *cli.Context) error {
				ks, err := keystore.NewStore(cctx.String("path"))
				if err != nil {
					return err
				}
				pw, err := keystorePassword("New keystore password: ")
				if err != nil {
					return err
				}
				defer helpers.ZeroBytes(pw)

				if !envPassword() {
					again, err := helpers.PromptPassword("Repeat password: ")
					if err != nil {
						return err
					}
					defer helpers.ZeroBytes(again)
					if !bytes.Equal(pw, again) {
						return errors.New("passwords do not match")
					}
				}

				w, err := ks.Create(pw)
				if err != nil {
					return err
				}
				fmt.Fprintf(cctx.App.Writer, "created %s\naddress %s\n", ks.Path, w.Address().Hex())
				return nil
			},
		},
		{
			Name:  "show",
			Usage: "print the keystore address",
			Flags: []cli.Flag{keystorePathFlag},
			Action: func(cctx *cli.Context) error {
				ks, err := keystore.NewStore(cctx.String("path"))
				if err != nil {
					return err
				}
				pw, err := keystorePassword("Keystore password: ")
				if err != nil {
					return err
				}
				defer helpers.ZeroBytes(pw)

				w, err := ks.Load(pw)
				if err != nil {
					return err
				}
				fmt.Fprintln(cctx.App.Writer, w.Address().Hex())
				return nil
			},
		},
	},
}
