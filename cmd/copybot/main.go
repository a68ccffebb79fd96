package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// .env 可选
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "copybot",
		Usage: "Polymarket copy-trading bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (.yaml, .yml, .json); environment variables override it",
				Sources: cli.EnvVars("COPYBOT_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "mirror the target account's positions",
				Action: runAction,
			},
			{
				Name:   "status",
				Usage:  "live status view of a running bot",
				Flags:  []cli.Flag{addrFlag()},
				Action: statusAction,
			},
			{
				Name:  "blacklist",
				Usage: "manage the market blacklist of a running bot",
				Flags: []cli.Flag{addrFlag()},
				Commands: []*cli.Command{
					{Name: "list", Usage: "show blacklisted markets", Action: blacklistListAction},
					{Name: "add", Usage: "blacklist a market", ArgsUsage: "<market>", Action: blacklistAddAction},
					{Name: "remove", Usage: "remove a market from the blacklist", ArgsUsage: "<market>", Action: blacklistRemoveAction},
				},
			},
			{
				Name:      "limit",
				Usage:     "set the per-trade notional limit of a running bot",
				ArgsUsage: "<usdc>",
				Flags:     []cli.Flag{addrFlag()},
				Action:    limitAction,
			},
		},
		DefaultCommand: "run",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addrFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "addr",
		Usage:   "status API base URL",
		Value:   "http://127.0.0.1:8090",
		Sources: cli.EnvVars("COPYBOT_STATUS_URL"),
	}
}
