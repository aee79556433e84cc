package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/quantumauth-io/permit-gateway/internal/permit-gateway/signing"
)

var verifyCmd = &cli.Command{
	Name:      "verify",
	Usage:     "check an ownership signature offline",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "address", Usage: "claimed wallet address", Required: true},
		&cli.StringFlag{Name: "signature", Usage: "0x-prefixed 65-byte signature", Required: true},
		&cli.StringFlag{Name: "message", Usage: "signed message text"},
		&cli.PathFlag{Name: "message-file", Usage: "read the signed message from a file"},
	},
	Action: func(cctx *cli.Context) error {
		record, err := verificationFromFlags(cctx)
		if err != nil {
			return err
		}
		if err := signing.VerifyOwnership(record); err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "ok: signed by %s\n", record.Address.Hex())
		return nil
	},
}

func verificationFromFlags(cctx *cli.Context) (signing.VerificationRecord, error) {
	addr := strings.TrimSpace(cctx.String("address"))
	if !common.IsHexAddress(addr) {
		return signing.VerificationRecord{}, errors.Newf("invalid address %q", addr)
	}
	sig, err := hexutil.Decode(strings.TrimSpace(cctx.String("signature")))
	if err != nil {
		return signing.VerificationRecord{}, errors.Wrap(err, "signature")
	}

	msg := cctx.String("message")
	if path := cctx.Path("message-file"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return signing.VerificationRecord{}, errors.Wrap(err, "message file")
		}
		msg = string(raw)
	}
	if msg == "" {
		return signing.VerificationRecord{}, errors.New("one of --message or --message-file is required")
	}

	return signing.VerificationRecord{
		Address:   common.HexToAddress(addr),
		Message:   msg,
		Signature: sig,
	}, nil
}
