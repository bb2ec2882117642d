package route

import (
	"context"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/paularlott/cli"
)

func GetCommand() *cli.Command {
	return &cli.Command{
		Name:        "get",
		Usage:       "Get a route",
		Description: "Get a route by ID",
		Arguments:   idArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")

			route, err := newClient(cmd).GetRoute(ctx, id)
			if err != nil {
				log.Error("Failed to get route", "error", err, "id", id)
				return err
			}

			printRoute(route)
			return nil
		},
	}
}
