package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	onboarding onboarding.Repository
	codes      *sharecode.Service
	fees       *fee.Service
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  state -user USER_ID - print the onboarding state of a user")
	fmt.Fprintln(cli.out, "  revokecode -id SHARE_CODE_ID - revoke an active share code")
	fmt.Fprintln(cli.out, "  publishfee -id FEE_STRUCTURE_ID - publish a fee structure")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	stateCmd := flag.NewFlagSet("state", flag.ContinueOnError)
	stateUser := stateCmd.String("user", "", "The user's ID.")

	revokeCmd := flag.NewFlagSet("revokecode", flag.ContinueOnError)
	revokeID := revokeCmd.String("id", "", "The share code's ID.")

	publishCmd := flag.NewFlagSet("publishfee", flag.ContinueOnError)
	publishID := publishCmd.String("id", "", "The fee structure's ID.")

	for _, fs := range []*flag.FlagSet{stateCmd, revokeCmd, publishCmd} {
		fs.SetOutput(cli.out)
	}

	ctx := context.Background()
	switch args[1] {
	case "state":
		if err := stateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *stateUser == "" {
			stateCmd.Usage()
			return errHelp
		}
		return cli.printState(ctx, *stateUser)
	case "revokecode":
		if err := revokeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *revokeID == "" {
			revokeCmd.Usage()
			return errHelp
		}
		if err := cli.codes.Revoke(ctx, *revokeID); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "share code %s revoked\n", *revokeID)
		return nil
	case "publishfee":
		if err := publishCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *publishID == "" {
			publishCmd.Usage()
			return errHelp
		}
		if err := cli.fees.Publish(ctx, *publishID); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "fee structure %s published\n", *publishID)
		return nil
	default:
		cli.printUsage()
		return errHelp
	}
}

// printState prints the stored snapshot of a user and the state derived from it.
func (cli *commandLine) printState(ctx context.Context, userID string) error {
	snap, err := cli.onboarding.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(map[string]interface{}{
		"snapshot": snap,
		"state":    onboarding.Derive(snap),
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, string(out))
	return nil
}

// serviceKey returns the configured service key, prompting for it when unset.
func serviceKey(conf *core.Config, out io.Writer) (string, error) {
	if conf.Remote.ServiceKey != "" {
		return conf.Remote.ServiceKey, nil
	}
	fmt.Fprint(out, "Enter service key:")
	key, err := readPasswordFunc(syscall.Stdin)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	if len(key) == 0 {
		return "", errors.New("a service key is required")
	}
	return string(key), nil
}
