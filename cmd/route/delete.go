package route

import (
	"context"
	"fmt"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/paularlott/cli"
)

func DeleteCommand() *cli.Command {
	return &cli.Command{
		Name:        "delete",
		Usage:       "Delete a route",
		Description: "Delete a route definition, removing it from the routing table first if it is active",
		Arguments:   idArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")

			removal, err := newClient(cmd).DeleteRoute(ctx, id)
			if err != nil {
				log.Error("Failed to delete route", "error", err, "id", id)
				return err
			}

			if removal != nil && !removal.Success {
				fmt.Printf("Warning: route could not be removed from the routing table: %s\n", removal.Message)
			}
			fmt.Printf("Route deleted: %s\n", id)
			return nil
		},
	}
}

func DuplicateCommand() *cli.Command {
	return &cli.Command{
		Name:        "duplicate",
		Usage:       "Duplicate a route",
		Description: "Copy a route definition under a new ID",
		Arguments:   idArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")

			dup, err := newClient(cmd).DuplicateRoute(ctx, id)
			if err != nil {
				log.Error("Failed to duplicate route", "error", err, "id", id)
				return err
			}

			fmt.Printf("Route created: %s (ID: %s)\n", dup.Name, dup.ID)
			return nil
		},
	}
}
