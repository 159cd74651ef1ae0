// Package packager drives package assembly: extraction, plugin resolution
// and copying, model resolution, oversized-artifact decisions, and manifest
// emission, as an explicit state machine.
package packager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/comfypack/pkg/catalog"
	"github.com/dukex/comfypack/pkg/classify"
	"github.com/dukex/comfypack/pkg/decision"
	"github.com/dukex/comfypack/pkg/log"
	"github.com/dukex/comfypack/pkg/models"
	"github.com/dukex/comfypack/pkg/otelhelper"
	"github.com/dukex/comfypack/pkg/search"
	"github.com/dukex/comfypack/pkg/workflow"
)

// State identifies where the assembly state machine is.
type State string

const (
	StateInit                   State = "init"
	StateExtractingDependencies State = "extracting_dependencies"
	StateResolvingPlugins       State = "resolving_plugins"
	StateCopyingPlugins         State = "copying_plugins"
	StateResolvingModels        State = "resolving_models"
	StateDecidingModels         State = "deciding_models"
	StateFinalizing             State = "finalizing"
	StateDone                   State = "done"
	StateCancelled              State = "cancelled"
)

const managerPluginName = "ComfyUI-Manager"

// Options configures a packaging run.
type Options struct {
	WorkflowPath       string `validate:"required"`
	ComfyUIRoot        string `validate:"required"`
	OutputDir          string
	Name               string
	Description        string
	SizeThresholdBytes int64 `validate:"gt=0"`
	IncludeManager     bool
	ExtraPathsFile     string
}

// Packager assembles one package per instance.
type Packager struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	opts     Options
	decider  decision.Decider
	validate *validator.Validate

	state          State
	packageDir     string
	aggregatedDeps []string
	summary        models.Summary
}

// New validates options and structural preconditions. A missing workflow file
// or unreadable ComfyUI root is fatal here, before any state transition.
func New(opts Options, decider decision.Decider, tracer trace.Tracer) (*Packager, error) {
	v := validator.New()
	if err := v.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	if _, err := os.Stat(opts.WorkflowPath); err != nil {
		return nil, fmt.Errorf("%w: workflow file: %w", models.ErrFatalInput, err)
	}

	if info, err := os.Stat(opts.ComfyUIRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: comfyui root %s is not a readable directory", models.ErrFatalInput, opts.ComfyUIRoot)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	if opts.Name == "" {
		base := filepath.Base(opts.WorkflowPath)
		opts.Name = strings.TrimSuffix(base, filepath.Ext(base)) + "-package"
	}

	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	return &Packager{
		logger:   log.WithModule("packager"),
		tracer:   tracer,
		opts:     opts,
		decider:  decider,
		validate: v,
		state:    StateInit,
	}, nil
}

// State reports the machine's current state.
func (p *Packager) State() State {
	return p.state
}

// Run executes the full assembly pipeline and returns the manifest and run
// summary. Per-artifact failures are collected in the summary; only
// structural input problems and cancellation return an error.
func (p *Packager) Run(ctx context.Context) (*models.Manifest, *models.Summary, error) {
	doc, warnings := p.extract(ctx)
	p.summary.Warnings = append(p.summary.Warnings, warnings...)

	pluginIDs, refs, extractWarnings := workflow.NewExtractor().Extract(doc)
	p.summary.Warnings = append(p.summary.Warnings, extractWarnings...)

	plugins, err := p.resolvePlugins(ctx, pluginIDs)
	if err != nil {
		return nil, &p.summary, err
	}

	if err := p.copyPlugins(ctx, plugins); err != nil {
		return nil, &p.summary, err
	}

	artifacts := p.resolveModels(ctx, refs)

	included, deferred := p.decideModels(ctx, artifacts)

	manifest, err := p.finalize(ctx, plugins, included, deferred)
	if err != nil {
		return nil, &p.summary, err
	}

	p.transition(StateDone)

	return manifest, &p.summary, nil
}

func (p *Packager) transition(next State) {
	p.logger.Info("state transition", "from", string(p.state), "to", string(next))
	p.state = next
}

func (p *Packager) extract(ctx context.Context) (*models.Document, []string) {
	p.transition(StateExtractingDependencies)

	_, span := otelhelper.StartSpan(ctx, p.tracer, "extracting_dependencies",
		attribute.String(otelhelper.WorkflowPathKey, p.opts.WorkflowPath),
		attribute.String(otelhelper.StateKey, string(p.state)))
	defer span.End()

	doc, err := workflow.Load(p.opts.WorkflowPath)
	if err != nil {
		// Preconditions were checked in New; any error here is a shape
		// problem and extraction proceeds with empty sets.
		p.logger.Warn("workflow document not recognized", "error", err)

		return &models.Document{}, []string{fmt.Sprintf("workflow format: %v", err)}
	}

	return doc, nil
}

func (p *Packager) resolvePlugins(ctx context.Context, ids map[string]models.PluginReference) ([]*catalog.Entry, error) {
	p.transition(StateResolvingPlugins)

	_, span := otelhelper.StartSpan(ctx, p.tracer, "resolving_plugins",
		attribute.String(otelhelper.StateKey, string(p.state)))
	defer span.End()

	cat, err := catalog.Build(filepath.Join(p.opts.ComfyUIRoot, "custom_nodes"))
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	rawIDs := make([]string, 0, len(ids))
	for id := range ids {
		rawIDs = append(rawIDs, id)
	}

	entries, dropped := cat.Resolve(rawIDs)
	p.summary.PluginsResolved = len(entries)
	p.summary.PluginsDropped = dropped

	if p.opts.IncludeManager {
		entries = p.withManager(cat, entries)
	}

	p.logger.Info("plugins resolved", "resolved", len(entries), "dropped", len(dropped))

	return entries, nil
}

func (p *Packager) withManager(cat *catalog.Catalog, entries []*catalog.Entry) []*catalog.Entry {
	for _, entry := range entries {
		if strings.EqualFold(entry.CanonicalName, managerPluginName) {
			return entries
		}
	}

	manager, ok := cat.Lookup(strings.ToLower(managerPluginName))
	if !ok {
		p.summary.Warnings = append(p.summary.Warnings, "ComfyUI-Manager not found in installation")

		return entries
	}

	p.summary.PluginsResolved++

	return append(entries, manager)
}

func (p *Packager) copyPlugins(ctx context.Context, plugins []*catalog.Entry) error {
	p.transition(StateCopyingPlugins)

	_, span := otelhelper.StartSpan(ctx, p.tracer, "copying_plugins",
		attribute.String(otelhelper.StateKey, string(p.state)))
	defer span.End()

	if err := p.preparePackageDir(); err != nil {
		return err
	}

	// The workflow itself ships inside the package.
	dest := filepath.Join(p.packageDir, "workflows", filepath.Base(p.opts.WorkflowPath))
	if err := copyFile(p.opts.WorkflowPath, dest); err != nil {
		p.recordFileError(p.opts.WorkflowPath, err)
	} else {
		p.summary.FilesCopied++
	}

	collector := newRequirementsCollector(p.logger)

	for _, plugin := range plugins {
		// Destination directories are keyed by canonical name, so two
		// plugins can never write the same relative path.
		target := filepath.Join(p.packageDir, "custom_nodes", plugin.CanonicalName)
		p.logger.Info("copying plugin", "plugin", plugin.CanonicalName)

		copied, errs := copyTreeFiltered(plugin.InstallPath, target)
		p.summary.FilesCopied += copied
		p.summary.FileErrors = append(p.summary.FileErrors, errs...)

		collector.processDir(plugin.InstallPath)
	}

	p.summary.Warnings = append(p.summary.Warnings, collector.warnings...)
	p.aggregatedDeps = collector.list()

	return nil
}

func (p *Packager) preparePackageDir() error {
	dir := filepath.Join(p.opts.OutputDir, p.opts.Name)

	if _, err := os.Stat(dir); err == nil {
		if !p.decider.ConfirmOverwrite(dir) {
			p.transition(StateCancelled)

			return fmt.Errorf("package directory %s already exists: run cancelled", dir)
		}

		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("removing existing package directory: %w", err)
		}
	}

	for _, sub := range []string{"workflows", "custom_nodes"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("creating package directory: %w", err)
		}
	}

	for _, cat := range models.Categories() {
		if err := os.MkdirAll(filepath.Join(dir, "models", cat.DirName()), 0o755); err != nil {
			return fmt.Errorf("creating package directory: %w", err)
		}
	}

	p.packageDir = dir

	return nil
}

func (p *Packager) resolveModels(ctx context.Context, refs []models.ModelReference) []models.ResolvedArtifact {
	p.transition(StateResolvingModels)

	_, span := otelhelper.StartSpan(ctx, p.tracer, "resolving_models",
		attribute.String(otelhelper.StateKey, string(p.state)))
	defer span.End()

	paths := search.NewPathSet(p.opts.ComfyUIRoot)

	extraPaths := p.opts.ExtraPathsFile
	if extraPaths == "" {
		candidate := filepath.Join(p.opts.ComfyUIRoot, "extra_model_paths.yaml")
		if _, err := os.Stat(candidate); err == nil {
			extraPaths = candidate
		}
	}

	if extraPaths != "" {
		if err := paths.LoadExtraPaths(extraPaths); err != nil {
			p.summary.Warnings = append(p.summary.Warnings, fmt.Sprintf("extra model paths: %v", err))
		}
	}

	resolver := search.NewResolver(paths)

	// Two nodes naming the same file may classify it differently; the
	// reference is filed once per distinct (name, category) pair so neither
	// node's category is lost.
	seen := make(map[string]struct{})
	unresolved := make(map[string]struct{})

	var artifacts []models.ResolvedArtifact

	for _, ref := range refs {
		categories := p.decider.ClassifyReference(ref, classify.Classify(ref))

		for _, category := range categories {
			key := ref.RawName + "\x00" + string(category)
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}

			artifact := models.ResolvedArtifact{Reference: ref, Category: category}

			path, err := resolver.Resolve(category, ref)
			if err != nil {
				if _, reported := unresolved[ref.RawName]; !reported {
					unresolved[ref.RawName] = struct{}{}
					p.summary.ModelsUnresolved = append(p.summary.ModelsUnresolved, ref.RawName)
				}

				p.logger.Warn("model not resolved", "name", ref.RawName, "category", category)
				artifacts = append(artifacts, artifact)

				continue
			}

			if chosen, ok := p.decider.ChooseResolution(ref, []string{path}); ok {
				artifact.Path = chosen
				if info, statErr := os.Stat(chosen); statErr == nil {
					artifact.SizeBytes = info.Size()
				}
			} else {
				p.logger.Info("model skipped by caller", "name", ref.RawName, "category", category)
				p.summary.ModelsSkipped++
			}

			artifacts = append(artifacts, artifact)
		}
	}

	return artifacts
}

func (p *Packager) decideModels(ctx context.Context, artifacts []models.ResolvedArtifact) (map[models.Category][]string, []models.DeferredModel) {
	p.transition(StateDecidingModels)

	_, span := otelhelper.StartSpan(ctx, p.tracer, "deciding_models",
		attribute.String(otelhelper.StateKey, string(p.state)))
	defer span.End()

	included := make(map[models.Category][]string)

	var deferred []models.DeferredModel

	for _, artifact := range artifacts {
		if artifact.Path == "" {
			continue
		}

		if artifact.SizeBytes <= p.opts.SizeThresholdBytes {
			if p.includeModel(artifact) {
				included[artifact.Category] = append(included[artifact.Category], artifact.Reference.RawName)
				p.summary.ModelsIncluded++
			}

			continue
		}

		choice := p.decider.DecideOversized(artifact.Reference, artifact.Path, artifact.SizeBytes)

		switch choice.Action {
		case decision.ActionInclude:
			if p.includeModel(artifact) {
				included[artifact.Category] = append(included[artifact.Category], artifact.Reference.RawName)
				p.summary.ModelsIncluded++
			}
		case decision.ActionDefer:
			entry, err := p.deferModel(artifact, choice.URL)
			if err != nil {
				p.recordFileError(artifact.Path, err)

				continue
			}

			deferred = append(deferred, entry)
			p.summary.ModelsDeferred++
		case decision.ActionSkip:
			p.logger.Info("skipping oversized model", "name", artifact.Reference.RawName)
			p.summary.ModelsSkipped++
		}
	}

	return included, deferred
}

// includeModel copies a resolved artifact into its category bucket,
// preserving any relative subpath the reference carried.
func (p *Packager) includeModel(artifact models.ResolvedArtifact) bool {
	name := filepath.ToSlash(artifact.Reference.RawName)

	destDir := filepath.Join(p.packageDir, "models", artifact.Category.DirName())
	if subdir := filepath.Dir(name); subdir != "." {
		destDir = filepath.Join(destDir, subdir)
	}

	dest := filepath.Join(destDir, filepath.Base(name))

	if err := copyFile(artifact.Path, dest); err != nil {
		p.recordFileError(artifact.Path, err)

		return false
	}

	p.summary.FilesCopied++
	p.logger.Info("model included",
		"name", artifact.Reference.RawName,
		"category", artifact.Category,
		"size_bytes", artifact.SizeBytes)

	return true
}

func (p *Packager) deferModel(artifact models.ResolvedArtifact, url string) (models.DeferredModel, error) {
	hash, err := hashFile(artifact.Path)
	if err != nil {
		return models.DeferredModel{}, fmt.Errorf("hashing %s: %w", artifact.Path, err)
	}

	name := filepath.ToSlash(artifact.Reference.RawName)

	entry := models.DeferredModel{
		Name:      filepath.Base(name),
		Category:  artifact.Category,
		URL:       url,
		Hash:      hash,
		SizeBytes: artifact.SizeBytes,
	}

	if filepath.Dir(name) != "." {
		entry.Path = name
	}

	p.logger.Info("model deferred to download manifest",
		"name", artifact.Reference.RawName, "url", url)

	return entry, nil
}

func (p *Packager) finalize(ctx context.Context, plugins []*catalog.Entry, included map[models.Category][]string, deferred []models.DeferredModel) (*models.Manifest, error) {
	p.transition(StateFinalizing)

	_, span := otelhelper.StartSpan(ctx, p.tracer, "finalizing",
		attribute.String(otelhelper.PackageNameKey, p.opts.Name),
		attribute.String(otelhelper.StateKey, string(p.state)))
	defer span.End()

	manifest := p.buildManifest(plugins, included, deferred)

	manifestPath, err := p.writeManifest(manifest)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	p.summary.ManifestPath = manifestPath

	if err := p.writeReadme(manifest); err != nil {
		p.recordFileError("README.md", err)
	}

	return manifest, nil
}

func (p *Packager) recordFileError(path string, err error) {
	p.logger.Error("file operation failed", "path", path, "error", err)
	p.summary.FileErrors = append(p.summary.FileErrors, fmt.Sprintf("%s: %v", path, err))
}
