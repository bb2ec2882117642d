package route

import (
	"context"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/paularlott/cli"
)

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List routes",
		Description: "List all routes with their last observed state",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Only routes whose name contains this text"},
			&cli.BoolFlag{Name: "active", Usage: "Only routes last seen in the routing table"},
		}, serverFlags()...),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			filter := &model.RouteFilter{Name: cmd.GetString("name"), ActiveOnly: cmd.GetBool("active")}

			routes, err := newClient(cmd).ListRoutes(ctx, filter)
			if err != nil {
				log.Error("Failed to list routes", "error", err)
				return err
			}

			printRoutes(routes)
			return nil
		},
	}
}

func RefreshCommand() *cli.Command {
	return &cli.Command{
		Name:        "refresh",
		Usage:       "Re-check route state",
		Description: "Ask the agent to check every route against the routing table and list the result",
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			routes, err := newClient(cmd).Refresh(ctx)
			if err != nil {
				log.Error("Failed to refresh routes", "error", err)
				return err
			}

			printRoutes(routes)
			return nil
		},
	}
}
