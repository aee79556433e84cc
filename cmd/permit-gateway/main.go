package main

import (
	"os"

	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/urfave/cli/v2"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/constants"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	app := &cli.App{
		Name:    constants.AppName,
		Usage:   "verify wallet ownership and collect EIP-2612 permits across chains",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "config-dir",
				Usage: "directories searched for config.yaml (default: ~/.config/permit-gateway, ~/config, .)",
			},
		},
		Commands: []*cli.Command{
			serveCmd, keystoreCmd, verifyCmd,
		},
		DefaultCommand: serveCmd.Name,
	}
	if err := app.Run(os.Args); err != nil {
		log.Error("permit-gateway failed", "error", err)
		os.Exit(1)
	}
}
