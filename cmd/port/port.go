package port

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/martinsuchenak/routekeeper/internal/client"
	"github.com/martinsuchenak/routekeeper/internal/config"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/paularlott/cli"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		ListCommand(),
		GatewayCommand(),
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "server", Usage: "Server URL", EnvVars: []string{"ROUTEKEEPER_SERVER"}, DefaultValue: config.DefaultServerURL},
		&cli.StringFlag{Name: "api-token", Usage: "API authentication token", EnvVars: []string{"ROUTEKEEPER_API_TOKEN"}},
	}
}

func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "List network ports",
		Description: "List hardware network ports and whether their link is up",
		Flags:       serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			ports, err := client.New(cmd.GetString("server"), cmd.GetString("api-token")).ListPorts(ctx)
			if err != nil {
				log.Error("Failed to list ports", "error", err)
				return err
			}

			printPorts(ports)
			return nil
		},
	}
}

func GatewayCommand() *cli.Command {
	return &cli.Command{
		Name:        "gateway",
		Usage:       "Show the gateway of a port",
		Description: "Show the gateway an interface sends outbound traffic to",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "device", Required: true},
		},
		Flags: serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			device := cmd.GetStringArg("device")
			gw, err := client.New(cmd.GetString("server"), cmd.GetString("api-token")).PortGateway(ctx, device)
			if err != nil {
				log.Error("Failed to look up gateway", "error", err, "device", device)
				return err
			}

			fmt.Printf("%s: %s\n", gw.Device, gw.Gateway)
			return nil
		},
	}
}

func printPorts(ports []model.NetworkPort) {
	if len(ports) == 0 {
		fmt.Println("No ports found")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEVICE\tHARDWARE PORT\tADDRESS\tLINK")
	for _, p := range ports {
		link := "down"
		if p.IsActive {
			link = "up"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Device, p.HardwarePort, p.EthernetAddress, link)
	}
	tw.Flush()
}
