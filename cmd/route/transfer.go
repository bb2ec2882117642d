package route

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/paularlott/cli"
)

func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Usage:       "Export routes as YAML",
		Description: "Write every route definition to a YAML file, or stdout when no file is given",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "Output file"},
		}, serverFlags()...),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			doc, err := newClient(cmd).Export(ctx)
			if err != nil {
				log.Error("Failed to export routes", "error", err)
				return err
			}

			path := cmd.GetString("file")
			if path == "" {
				_, err := os.Stdout.Write(doc)
				return err
			}
			if err := os.WriteFile(path, doc, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Printf("Exported routes to %s (%s)\n", path, humanize.Bytes(uint64(len(doc))))
			return nil
		},
	}
}

func ImportCommand() *cli.Command {
	return &cli.Command{
		Name:        "import",
		Usage:       "Import routes from YAML",
		Description: "Create routes from a YAML file. Nothing is created if any entry is invalid",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file", Required: true},
		},
		Flags: serverFlags(),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.GetStringArg("file")
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			created, err := newClient(cmd).Import(ctx, f)
			if err != nil {
				log.Error("Failed to import routes", "error", err, "file", path)
				return err
			}

			for _, r := range created {
				fmt.Printf("Route created: %s (ID: %s)\n", r.Name, r.ID)
			}
			fmt.Printf("Imported %s\n", humanize.Comma(int64(len(created)))+" routes")
			return nil
		},
	}
}
