package route

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/martinsuchenak/routekeeper/internal/client"
	"github.com/martinsuchenak/routekeeper/internal/config"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/paularlott/cli"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		AddCommand(),
		ListCommand(),
		GetCommand(),
		UpdateCommand(),
		DeleteCommand(),
		DuplicateCommand(),
		ApplyCommand(),
		RemoveCommand(),
		StatusCommand(),
		ProbeCommand(),
		RefreshCommand(),
		ImportCommand(),
		ExportCommand(),
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "server", Usage: "Server URL", EnvVars: []string{"ROUTEKEEPER_SERVER"}, DefaultValue: config.DefaultServerURL},
		&cli.StringFlag{Name: "api-token", Usage: "API authentication token", EnvVars: []string{"ROUTEKEEPER_API_TOKEN"}},
	}
}

func idArgument() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{Name: "id", Required: true},
	}
}

func newClient(cmd *cli.Command) *client.Client {
	return client.New(cmd.GetString("server"), cmd.GetString("api-token"))
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func printRoutes(routes []model.Route) {
	if len(routes) == 0 {
		fmt.Println("No routes found")
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDESTINATION\tGATEWAY\tINTERFACE\tSTATE\tUPDATED")
	for _, r := range routes {
		dest := r.IPAddress + "/" + r.SubnetMask
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, dest, r.Gateway, r.Interface, activeLabel(r.IsActive), humanize.Time(r.UpdatedAt))
	}
	tw.Flush()
}

func printRoute(r *model.Route) {
	fmt.Printf("ID:           %s\n", r.ID)
	fmt.Printf("Name:         %s\n", r.Name)
	fmt.Printf("Destination:  %s\n", r.IPAddress)
	fmt.Printf("Subnet Mask:  %s\n", r.SubnetMask)
	fmt.Printf("Gateway:      %s\n", r.Gateway)
	fmt.Printf("Interface:    %s\n", r.Interface)
	fmt.Printf("State:        %s\n", activeLabel(r.IsActive))
	fmt.Printf("Created:      %s (%s)\n", r.CreatedAt.Format(time.RFC3339), humanize.Time(r.CreatedAt))
	fmt.Printf("Updated:      %s (%s)\n", r.UpdatedAt.Format(time.RFC3339), humanize.Time(r.UpdatedAt))
}

// printResult prints one route outcome and turns a failure into an error so
// the process exits non-zero.
func printResult(verb string, res model.RouteResult) error {
	if res.Success {
		fmt.Printf("Route %s %s: %s\n", res.RouteName, verb, res.Message)
		return nil
	}
	return fmt.Errorf("route %s not %s: %s", res.RouteName, verb, res.Message)
}

func printBatch(summary model.BatchSummary, message string) error {
	for _, res := range summary.Results {
		status := "ok"
		if !res.Success {
			status = "FAILED"
		}
		fmt.Printf("  %-6s %s: %s\n", status, res.RouteName, res.Message)
	}
	fmt.Println(message)
	if summary.Failed > 0 {
		return fmt.Errorf("%d routes failed", summary.Failed)
	}
	return nil
}
