package route

import (
	"context"
	"fmt"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/paularlott/cli"
)

func UpdateCommand() *cli.Command {
	return &cli.Command{
		Name:        "update",
		Usage:       "Update a route",
		Description: "Change fields of a route definition. Only the flags given are changed",
		Arguments:   idArgument(),
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Route name"},
			&cli.StringFlag{Name: "ip", Usage: "Destination network address"},
			&cli.StringFlag{Name: "mask", Usage: "Subnet mask"},
			&cli.StringFlag{Name: "gateway", Usage: "Gateway address"},
			&cli.StringFlag{Name: "interface", Usage: "Interface name"},
		}, serverFlags()...),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")

			update := &model.RouteUpdate{}
			fields := map[string]**string{
				"name":      &update.Name,
				"ip":        &update.IPAddress,
				"mask":      &update.SubnetMask,
				"gateway":   &update.Gateway,
				"interface": &update.Interface,
			}
			for flag, dst := range fields {
				if v := cmd.GetString(flag); v != "" {
					*dst = &v
				}
			}
			if update.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}

			route, err := newClient(cmd).UpdateRoute(ctx, id, update)
			if err != nil {
				log.Error("Failed to update route", "error", err, "id", id)
				return err
			}

			fmt.Printf("Route updated: %s (ID: %s)\n", route.Name, route.ID)
			if route.IsActive {
				fmt.Println("The route is active; remove and apply it again for the change to take effect")
			}
			return nil
		},
	}
}
