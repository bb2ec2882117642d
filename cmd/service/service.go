package service

import (
	"context"
	"fmt"

	"github.com/martinsuchenak/routekeeper/internal/config"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/service"
	"github.com/paularlott/cli"
)

func Commands() []*cli.Command {
	return []*cli.Command{
		InstallCommand(),
		UninstallCommand(),
		StatusCommand(),
	}
}

func newManager() *service.Manager {
	cfg := config.Load()
	log.Configure("cli", cfg.LogLevel, cfg.LogFormat)
	return service.NewManager(service.NewRegistry(cfg.HelperLabel, cfg.HelperSocket), cfg.HelperSocket, cfg.CommandTimeout)
}

func report(st service.Status) error {
	fmt.Printf("Helper: %s\n", st.State)
	fmt.Println(st.Message)
	if st.State == service.StateError {
		return fmt.Errorf("helper service error")
	}
	return nil
}

func InstallCommand() *cli.Command {
	return &cli.Command{
		Name:        "install",
		Usage:       "Install the privileged helper",
		Description: "Register the helper with the system service manager. Must be run with sudo",
		Flags:       config.GetServiceFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return report(newManager().Install(ctx))
		},
	}
}

func UninstallCommand() *cli.Command {
	return &cli.Command{
		Name:        "uninstall",
		Usage:       "Uninstall the privileged helper",
		Description: "Deregister the helper from the system service manager. Must be run with sudo",
		Flags:       config.GetServiceFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return report(newManager().Uninstall(ctx))
		},
	}
}

func StatusCommand() *cli.Command {
	return &cli.Command{
		Name:        "status",
		Usage:       "Show helper registration state",
		Description: "Show whether the helper is installed, needs approval or is enabled",
		Flags:       config.GetServiceFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return report(newManager().Status(ctx))
		},
	}
}
