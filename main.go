package main

import (
	"context"
	"fmt"
	"os"

	"github.com/martinsuchenak/routekeeper/cmd/helper"
	"github.com/martinsuchenak/routekeeper/cmd/port"
	"github.com/martinsuchenak/routekeeper/cmd/route"
	"github.com/martinsuchenak/routekeeper/cmd/server"
	"github.com/martinsuchenak/routekeeper/cmd/service"
	"github.com/martinsuchenak/routekeeper/internal/config"
	"github.com/paularlott/cli"
)

func main() {
	cmd := &cli.Command{
		Name:        "routekeeper",
		Version:     config.Version,
		Usage:       "Manage static network routes",
		Description: "Keep user-defined routes in the system routing table through a privileged helper",
		Commands: []*cli.Command{
			server.Command(),
			helper.Command(),
			{
				Name:     "route",
				Usage:    "Manage routes",
				Commands: route.Commands(),
			},
			{
				Name:     "port",
				Usage:    "Inspect network ports",
				Commands: port.Commands(),
			},
			{
				Name:     "service",
				Usage:    "Manage the privileged helper service",
				Commands: service.Commands(),
			},
		},
	}

	if err := cmd.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
