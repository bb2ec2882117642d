package route

import (
	"context"
	"fmt"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/paularlott/cli"
)

func optionalIDArgument() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{Name: "id"},
	}
}

func ApplyCommand() *cli.Command {
	return &cli.Command{
		Name:        "apply",
		Usage:       "Add routes to the routing table",
		Description: "Apply one route, or every route when no ID is given",
		Arguments:   optionalIDArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c := newClient(cmd)
			if id := cmd.GetStringArg("id"); id != "" {
				res, err := c.ApplyRoute(ctx, id)
				if err != nil {
					log.Error("Failed to apply route", "error", err, "id", id)
					return err
				}
				return printResult("applied", res)
			}

			resp, err := c.ApplyAll(ctx)
			if err != nil {
				log.Error("Failed to apply routes", "error", err)
				return err
			}
			return printBatch(resp.BatchSummary, resp.Message)
		},
	}
}

func RemoveCommand() *cli.Command {
	return &cli.Command{
		Name:        "remove",
		Usage:       "Remove routes from the routing table",
		Description: "Remove one route, or every route when no ID is given. Definitions are kept",
		Arguments:   optionalIDArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			c := newClient(cmd)
			if id := cmd.GetStringArg("id"); id != "" {
				res, err := c.RemoveRoute(ctx, id)
				if err != nil {
					log.Error("Failed to remove route", "error", err, "id", id)
					return err
				}
				return printResult("removed", res)
			}

			resp, err := c.RemoveAll(ctx)
			if err != nil {
				log.Error("Failed to remove routes", "error", err)
				return err
			}
			return printBatch(resp.BatchSummary, resp.Message)
		},
	}
}

func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:        "status",
		Usage:       "Check whether a route is in the routing table",
		Description: "Query the routing table for one route",
		Arguments:   idArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")

			st, err := newClient(cmd).RouteStatus(ctx, id)
			if err != nil {
				log.Error("Failed to check route", "error", err, "id", id)
				return err
			}

			state := activeLabel(st.Route.IsActive)
			if !st.Observed {
				state += " (last known; the helper could not be asked)"
			}
			fmt.Printf("%s: %s\n", st.Route.Name, state)
			return nil
		},
	}
}

func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:        "probe",
		Usage:       "Probe a route's gateway",
		Description: "Check whether the gateway of a route answers, and report its hardware address",
		Arguments:   idArgument(),
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.GetStringArg("id")

			p, err := newClient(cmd).ProbeRoute(ctx, id)
			if err != nil {
				log.Error("Failed to probe gateway", "error", err, "id", id)
				return err
			}

			if !p.Reachable {
				fmt.Printf("Gateway %s did not answer\n", p.Gateway)
				return nil
			}
			fmt.Printf("Gateway:   %s\n", p.Gateway)
			fmt.Printf("Reachable: yes (%s, %s)\n", p.Method, p.Latency.Round(time.Microsecond))
			if p.MACAddress != "" {
				fmt.Printf("MAC:       %s\n", p.MACAddress)
			}
			if p.Hostname != "" {
				fmt.Printf("Hostname:  %s\n", p.Hostname)
			}
			return nil
		},
	}
}
