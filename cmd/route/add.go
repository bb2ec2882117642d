package route

import (
	"context"
	"fmt"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/paularlott/cli"
)

func AddCommand() *cli.Command {
	return &cli.Command{
		Name:        "add",
		Usage:       "Add a new route",
		Description: "Define a new route. It is not applied to the routing table until `route apply` is run",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Route name", Required: true},
			&cli.StringFlag{Name: "ip", Usage: "Destination network address, e.g. 192.168.10.0", Required: true},
			&cli.StringFlag{Name: "mask", Usage: "Subnet mask", DefaultValue: "255.255.255.0"},
			&cli.StringFlag{Name: "gateway", Usage: "Gateway address", Required: true},
			&cli.StringFlag{Name: "interface", Usage: "Interface name", DefaultValue: "en0"},
		}, serverFlags()...),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			route := &model.Route{
				Name:       cmd.GetString("name"),
				IPAddress:  cmd.GetString("ip"),
				SubnetMask: cmd.GetString("mask"),
				Gateway:    cmd.GetString("gateway"),
				Interface:  cmd.GetString("interface"),
			}
			log.Debug("Adding route", "name", route.Name, "server", cmd.GetString("server"))

			created, err := newClient(cmd).CreateRoute(ctx, route)
			if err != nil {
				log.Error("Failed to create route", "error", err, "name", route.Name)
				return err
			}

			fmt.Printf("Route created: %s (ID: %s)\n", created.Name, created.ID)
			return nil
		},
	}
}
