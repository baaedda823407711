package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weloop/lci-importer/modules/lci/infrastructure/excel"
	"github.com/weloop/lci-importer/modules/lci/services"
	"github.com/weloop/lci-importer/pkg/composables"
	"github.com/weloop/lci-importer/pkg/configuration"
)

// check runs the parse/resolve/build phases against the live store and
// reports issues without touching any rows. It is the dry-run of import
// without the per-activity exists lookups.
func newCheckCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve LCI workbooks against the store without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.inputDir, "input", "", "Input directory containing .xlsx workbooks (default: LCI_EXCEL_DIR)")
	cmd.Flags().StringVar(&opts.mappingFile, "mapping", "", "Override workbook path (default: LCI_MAPPING_FILE inside the input dir)")

	return cmd
}

func runCheck(ctx context.Context, opts importOptions) error {
	conf := configuration.Use()
	logger := conf.Logger()

	if strings.TrimSpace(opts.inputDir) == "" {
		opts.inputDir = conf.Import.ExcelDir
	}
	opts.outputDir = opts.inputDir
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
	}
	files = excludeFile(files, mappingPath)

	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)

	svc := newImportService(logger, table)
	result, err := svc.Run(ctx, services.RunOptions{Files: files, Apply: false})
	if err != nil {
		return withCode(exitValidation, err)
	}

	if result.HasIssues() {
		if err := printRunSummary(opts, result, "issues", nil); err != nil {
			return err
		}
		return withCode(exitValidation, fmt.Errorf("%d resolution issues", len(result.Issues)))
	}
	return printRunSummary(opts, result, "clean", nil)
}
