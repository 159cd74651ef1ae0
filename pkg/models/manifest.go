package models

import "time"

// DeferredModel is one entry of the deferred-download list. The external
// downloader fetches URL to the model's destination, verifies Hash when
// present, and reports per entry; the packager only records the contract.
type DeferredModel struct {
	Name      string   `json:"name"      validate:"required"`
	Category  Category `json:"type"      validate:"required"`
	Path      string   `json:"path,omitempty"`
	URL       string   `json:"url"       validate:"required,url"`
	Hash      string   `json:"hash,omitempty"`
	SizeBytes int64    `json:"size"      validate:"gte=0"`
}

// Manifest is the package config.json: the sole contract handed to the
// external downloader and archiver collaborators.
type Manifest struct {
	PackageID              string              `json:"package_id"  validate:"required,uuid4"`
	Name                   string              `json:"name"        validate:"required"`
	Description            string              `json:"description"`
	Version                string              `json:"version"     validate:"required"`
	CreatedAt              time.Time           `json:"created_at"`
	PluginInstallOrder     []string            `json:"installation_order,omitempty"`
	AggregatedDependencies []string            `json:"dependencies,omitempty"`
	IncludedModels         map[Category][]string `json:"included_models"`
	DeferredModels         []DeferredModel     `json:"external_models,omitempty" validate:"dive"`
}

// Summary reports what a run resolved, skipped, and failed on, so a problem
// can be diagnosed without re-running in verbose mode.
type Summary struct {
	PluginsResolved   int      `json:"plugins_resolved"`
	PluginsDropped    []string `json:"plugins_dropped,omitempty"`
	ModelsIncluded    int      `json:"models_included"`
	ModelsDeferred    int      `json:"models_deferred"`
	ModelsSkipped     int      `json:"models_skipped"`
	ModelsUnresolved  []string `json:"models_unresolved,omitempty"`
	FilesCopied       int      `json:"files_copied"`
	FileErrors        []string `json:"file_errors,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	ManifestPath      string   `json:"manifest_path,omitempty"`
}
