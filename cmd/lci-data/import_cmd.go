package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/weloop/lci-importer/modules/lci/domain/aggregates/activity"
	"github.com/weloop/lci-importer/modules/lci/domain/entities/mapping"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/excel"
	"github.com/weloop/lci-importer/modules/lci/infrastructure/persistence"
	"github.com/weloop/lci-importer/modules/lci/services"
	"github.com/weloop/lci-importer/pkg/composables"
	"github.com/weloop/lci-importer/pkg/configuration"
	"github.com/weloop/lci-importer/pkg/eventbus"
)

type importOptions struct {
	inputDir    string
	mappingFile string
	outputDir   string
	apply       bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import LCI workbooks into the foreground database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return runImport(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputDir, "input", "", "Input directory containing .xlsx workbooks (default: LCI_EXCEL_DIR)")
	cmd.Flags().StringVar(&opts.mappingFile, "mapping", "", "Override workbook path (default: LCI_MAPPING_FILE inside the input dir)")
	cmd.Flags().StringVar(&opts.outputDir, "output", "", "Output directory for manifest (default: input dir)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply changes to DB (default is dry-run)")

	return cmd
}

func runImport(ctx context.Context, opts importOptions) error {
	conf := configuration.Use()
	logger := conf.Logger()

	if strings.TrimSpace(opts.inputDir) == "" {
		opts.inputDir = conf.Import.ExcelDir
	}
	if opts.outputDir == "" {
		opts.outputDir = opts.inputDir
	}
	if err := conf.Import.Validate(); err != nil {
		return withCode(exitUsage, err)
	}

	files, err := excel.ListWorkbooks(opts.inputDir)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if len(files) == 0 {
		return withCode(exitValidation, fmt.Errorf("no .xlsx workbooks in %s", opts.inputDir))
	}

	mappingPath := opts.mappingFile
	if mappingPath == "" {
		mappingPath = filepath.Join(opts.inputDir, conf.Import.MappingFile)
	}
	table, found, err := excel.LoadMappingFile(mappingPath)
	if err != nil {
		return withCode(exitValidation, fmt.Errorf("%s: %w", filepath.Base(mappingPath), err))
	}
	if !found {
		logger.Warnf("override workbook %s not found, resolving without overrides", mappingPath)
	} else {
		logger.WithField("entries", table.Len()).Info("loaded override workbook")
	}

	// the override workbook is an input, not an inventory
	files = excludeFile(files, mappingPath)

	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	svc := newImportService(logger, table)
	result, err := svc.Run(ctx, services.RunOptions{Files: files, Apply: opts.apply})
	if err != nil {
		if result != nil && result.Applied {
			_ = printRunSummary(opts, result, "failed", nil)
			return withCode(exitDBWrite, err)
		}
		return withCode(exitValidation, err)
	}

	if result.HasIssues() {
		if err := printRunSummary(opts, result, "aborted", nil); err != nil {
			return err
		}
		return withCode(exitValidation, fmt.Errorf("%d resolution issues, nothing written", len(result.Issues)))
	}

	if !opts.apply {
		return printRunSummary(opts, result, "dry_run", nil)
	}

	manifest := buildManifest(opts, conf, result)
	if err := writeManifest(opts.outputDir, manifest); err != nil {
		return withCode(exitDB, fmt.Errorf("write manifest: %w", err))
	}
	return printRunSummary(opts, result, "applied", manifest)
}

func newImportService(logger *logrus.Logger, table *mapping.Table) *services.ImportService {
	conf := configuration.Use()

	publisher := eventbus.NewEventPublisher(logger)
	publisher.Subscribe(func(event string, a *activity.ProcessActivity) {
		logger.WithFields(logrus.Fields{
			"event":    event,
			"code":     a.Identity.Code,
			"activity": a.Name,
		}).Debug("activity persisted")
	})

	resolver := services.NewResolverService(
		persistence.NewTechnosphereRepository(),
		persistence.NewBiosphereRepository(),
		table,
		conf.Import.BackgroundDB,
		conf.Import.BiosphereDB,
	)
	return services.NewImportService(
		logger,
		publisher,
		excel.NewReader(),
		resolver,
		services.NewGraphService(conf.Import.ForegroundDB),
		persistence.NewActivityRepository(),
	)
}

func excludeFile(files []string, path string) []string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	out := files[:0]
	for _, f := range files {
		fabs, err := filepath.Abs(f)
		if err != nil {
			fabs = f
		}
		if fabs != abs {
			out = append(out, f)
		}
	}
	return out
}

type importManifestV1 struct {
	Version    int       `json:"version"`
	RunID      uuid.UUID `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Input struct {
		Dir   string   `json:"dir"`
		Files []string `json:"files"`
	} `json:"input"`

	Databases struct {
		Foreground string `json:"foreground"`
		Background string `json:"background"`
		Biosphere  string `json:"biosphere"`
	} `json:"databases"`

	Created []activity.Identity `json:"created"`
	Updated []activity.Identity `json:"updated"`

	Summary map[string]any `json:"summary"`
}

func buildManifest(opts importOptions, conf *configuration.Configuration, result *services.RunResult) *importManifestV1 {
	m := &importManifestV1{
		Version:    1,
		RunID:      result.RunID,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Created:    []activity.Identity{},
		Updated:    []activity.Identity{},
	}
	m.Input.Dir = opts.inputDir
	for _, f := range result.Files {
		m.Input.Files = append(m.Input.Files, filepath.Base(f))
	}
	m.Databases.Foreground = conf.Import.ForegroundDB
	m.Databases.Background = conf.Import.BackgroundDB
	m.Databases.Biosphere = conf.Import.BiosphereDB

	for _, a := range result.Activities {
		if a.Created {
			m.Created = append(m.Created, a.Identity)
		} else {
			m.Updated = append(m.Updated, a.Identity)
		}
	}

	created, updated := result.Counts()
	m.Summary = map[string]any{
		"files":      len(result.Files),
		"activities": len(result.Activities),
		"created":    created,
		"updated":    updated,
	}
	return m
}

func writeManifest(outputDir string, manifest *importManifestV1) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	ts := time.Now().UTC().Format("20060102T150405Z")
	name := fmt.Sprintf("import_manifest_%s_%s.json", ts, manifest.RunID.String())
	path := filepath.Join(outputDir, name)

	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

type runSummary struct {
	Status          string `json:"status"`
	RunID           string `json:"run_id"`
	Apply           bool   `json:"apply"`
	InputDir        string `json:"input_dir"`
	OutputDir       string `json:"output_dir"`
	ManifestVersion *int   `json:"manifest_version,omitempty"`
	Counts          struct {
		Files      int `json:"files"`
		Activities int `json:"activities"`
		Created    int `json:"created"`
		Updated    int `json:"updated"`
		Issues     int `json:"issues"`
		Pending    int `json:"pending"`
	} `json:"counts"`
	Issues []services.Issue `json:"issues,omitempty"`
}

func printRunSummary(opts importOptions, result *services.RunResult, status string, manifest *importManifestV1) error {
	var s runSummary
	s.Status = status
	s.RunID = result.RunID.String()
	s.Apply = result.Applied
	s.InputDir = opts.inputDir
	s.OutputDir = opts.outputDir
	s.Counts.Files = len(result.Files)
	s.Counts.Activities = len(result.Activities)
	s.Counts.Created, s.Counts.Updated = result.Counts()
	s.Counts.Issues = len(result.Issues)
	s.Counts.Pending = len(result.Pending)
	s.Issues = result.Issues
	if manifest != nil {
		s.ManifestVersion = &manifest.Version
	}
	return writeJSONLine(s)
}
