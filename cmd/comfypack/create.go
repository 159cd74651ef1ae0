package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/comfypack/pkg/decision"
	"github.com/dukex/comfypack/pkg/otelhelper"
	"github.com/dukex/comfypack/pkg/packager"
)

func createFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "workflow",
			Aliases:  []string{"f"},
			Usage:    "Path to the workflow JSON file",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "comfyui",
			Aliases:  []string{"c"},
			Usage:    "Path to the ComfyUI installation",
			Required: true,
			Sources:  cli.EnvVars("COMFYPACK_COMFYUI_ROOT"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory to create the package in",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Package name (defaults to the workflow filename)",
		},
		&cli.StringFlag{
			Name:  "size-threshold",
			Usage: "Size above which models are deferred or skipped (e.g. 500MB, 2GB)",
			Value: "2GB",
		},
		&cli.BoolFlag{
			Name:  "include-manager",
			Usage: "Include ComfyUI-Manager in the package",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Overwrite an existing package directory",
		},
		&cli.StringSliceFlag{
			Name:  "defer-url",
			Usage: "Download URL for an oversized model, as name=url (repeatable)",
		},
		&cli.StringFlag{
			Name:  "extra-model-paths",
			Usage: "Path to an extra_model_paths.yaml override file",
		},
	}
}

func runCreate(ctx context.Context, cmd *cli.Command) error {
	threshold, err := parseSize(cmd.String("size-threshold"))
	if err != nil {
		return fmt.Errorf("invalid --size-threshold: %w", err)
	}

	deferURLs := make(map[string]string)

	for _, pair := range cmd.StringSlice("defer-url") {
		name, url, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --defer-url %q, expected name=url", pair)
		}

		deferURLs[name] = url
	}

	opts := packager.Options{
		WorkflowPath:       cmd.String("workflow"),
		ComfyUIRoot:        cmd.String("comfyui"),
		OutputDir:          cmd.String("output"),
		Name:               cmd.String("name"),
		SizeThresholdBytes: threshold,
		IncludeManager:     cmd.Bool("include-manager"),
		ExtraPathsFile:     cmd.String("extra-model-paths"),
	}

	var tracer trace.Tracer
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tracer, err = otelhelper.NewTracer(ctx, "comfypack")
		if err != nil {
			log.WithError(err).Warn("tracing disabled")

			tracer = nil
		}
	}

	decider := decision.NewAuto(deferURLs, cmd.Bool("force"))

	p, err := packager.New(opts, decider, tracer)
	if err != nil {
		return err
	}

	manifest, summary, err := p.Run(ctx)
	if err != nil {
		if summary != nil {
			fmt.Fprintln(os.Stderr, renderSummary(summary))
		}

		return err
	}

	fmt.Println(renderSummary(summary))
	fmt.Printf("Package %s created, manifest at %s\n", manifest.Name, summary.ManifestPath)

	return nil
}

var sizeSuffixes = []struct {
	suffix     string
	multiplier int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

func parseSize(s string) (int64, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))

	for _, unit := range sizeSuffixes {
		if !strings.HasSuffix(upper, unit.suffix) {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSuffix(upper, unit.suffix), 64)
		if err != nil {
			return 0, err
		}

		return int64(value * float64(unit.multiplier)), nil
	}

	return strconv.ParseInt(upper, 10, 64)
}
