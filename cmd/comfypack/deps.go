package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/dukex/comfypack/pkg/catalog"
	"github.com/dukex/comfypack/pkg/classify"
	"github.com/dukex/comfypack/pkg/models"
	"github.com/dukex/comfypack/pkg/search"
	"github.com/dukex/comfypack/pkg/workflow"
)

func depsFlags() []cli.Flag {
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
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the report as JSON",
		},
	}
}

type depsReport struct {
	Plugins  []depsPlugin `json:"plugins"`
	Dropped  []string     `json:"dropped_identifiers,omitempty"`
	Models   []depsModel  `json:"models"`
	Warnings []string     `json:"warnings,omitempty"`
}

type depsPlugin struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type depsModel struct {
	Name       string            `json:"name"`
	Categories []models.Category `json:"categories"`
	Path       string            `json:"path,omitempty"`
}

// runDeps reports what a packaging run would include, without copying
// anything.
func runDeps(_ context.Context, cmd *cli.Command) error {
	doc, err := workflow.Load(cmd.String("workflow"))

	var report depsReport

	if err != nil {
		if !errors.Is(err, models.ErrUnrecognizedFormat) {
			return err
		}

		report.Warnings = append(report.Warnings, err.Error())
	}

	pluginIDs, refs, warnings := workflow.NewExtractor().Extract(doc)
	report.Warnings = append(report.Warnings, warnings...)

	root := cmd.String("comfyui")

	cat, err := catalog.Build(filepath.Join(root, "custom_nodes"))
	if err != nil {
		return err
	}

	rawIDs := make([]string, 0, len(pluginIDs))
	for id := range pluginIDs {
		rawIDs = append(rawIDs, id)
	}

	entries, dropped := cat.Resolve(rawIDs)
	report.Dropped = dropped

	for _, entry := range entries {
		report.Plugins = append(report.Plugins, depsPlugin{
			Name: entry.CanonicalName,
			Path: entry.InstallPath,
		})
	}

	paths := search.NewPathSet(root)
	resolver := search.NewResolver(paths)

	seen := make(map[string]struct{})

	for _, ref := range refs {
		if _, dup := seen[ref.RawName]; dup {
			continue
		}

		seen[ref.RawName] = struct{}{}

		categories := classify.Classify(ref)

		model := depsModel{Name: ref.RawName, Categories: categories}
		if path, err := resolver.Resolve(categories[0], ref); err == nil {
			model.Path = path
		}

		report.Models = append(report.Models, model)
	}

	if cmd.Bool("json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(report)
	}

	printDepsReport(&report)

	return nil
}

func printDepsReport(report *depsReport) {
	fmt.Println("Custom Nodes:")

	for _, plugin := range report.Plugins {
		fmt.Printf("  - %s: %s\n", plugin.Name, plugin.Path)
	}

	fmt.Println("\nModels:")

	for _, model := range report.Models {
		location := model.Path
		if location == "" {
			location = "(not found)"
		}

		fmt.Printf("  - %s %v: %s\n", model.Name, model.Categories, location)
	}

	for _, warning := range report.Warnings {
		fmt.Printf("\nWarning: %s\n", warning)
	}
}
