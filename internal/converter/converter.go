// =============================================================================
// AXIS-Z Resolver - Converter Module
// =============================================================================
//
// This module contains the processing pipeline. It takes raw project exports
// from the input directory to resolved projects in the output directory.
//
// PROCESSING PIPELINE:
//   Ingest, per input file:
//     1. Match the file to a source profile
//     2. Parse it: JSON snapshot, XLSX workbook or single-table CSV
//     3. Apply the profile's transformation rules
//     4. Upsert the tables it carries into the store
//   Resolve, per project touched by the run:
//     5. Load the project from the store
//     6. Map raw rows to units, garages and storages
//     7. Run the data-quality diagnostics
//     8. Export the resolved project and the diagnostics report
//     9. Write the error log when resolution recorded anything
//    10. Archive the project's input files
//
// CONCURRENCY:
//   Files are ingested concurrently, then projects are resolved concurrently,
//   both bounded by max_concurrency. Resolution waits for every file of the
//   run, so a project split over several files resolves once with all of
//   its tables.
//
// =============================================================================

package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ginjaninja78/axisz-resolver/internal/config"
	"github.com/ginjaninja78/axisz-resolver/internal/csvparser"
	"github.com/ginjaninja78/axisz-resolver/internal/errorlog"
	"github.com/ginjaninja78/axisz-resolver/internal/export"
	"github.com/ginjaninja78/axisz-resolver/internal/mapper"
	"github.com/ginjaninja78/axisz-resolver/internal/schema"
	"github.com/ginjaninja78/axisz-resolver/internal/stats"
	"github.com/ginjaninja78/axisz-resolver/internal/types"
	"github.com/ginjaninja78/axisz-resolver/internal/validation"
	"github.com/ginjaninja78/axisz-resolver/internal/xlsxparser"
	"github.com/ginjaninja78/axisz-resolver/pkg/utils"
)

// Log context and reference of store failures.
const (
	ContextStore = "store"
	RefStore     = "STORE"
)

// InputExtensions are the file types the converter reads.
var InputExtensions = []string{".json", ".xlsx", ".csv"}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// Project is the project the file belongs to. Empty if parsing failed.
	Project string

	// Tables lists the raw tables the file carried.
	Tables []types.TableID

	// OutputFile, DiagnosticsFile and ErrorLogFile are the outputs of the
	// project's resolution. ErrorLogFile is empty when nothing was recorded.
	OutputFile      string
	DiagnosticsFile string
	ErrorLogFile    string

	// ArchivePath is where the input was moved after success.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsProcessed is the number of raw rows read from the file.
	RowsProcessed int

	// ValuesTransformed is the number of values changed by transformation
	// rules.
	ValuesTransformed int

	// Units, Garages and Storages count the resolved entities of the project.
	Units    int
	Garages  int
	Storages int

	// ErrorRecords is the number of entries in the project's error log.
	ErrorRecords int

	// Issues is the number of diagnostic parameters not graded ok.
	Issues int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Logger is the logging interface of the converter. logger.Logger and
// *slog.Logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// ProjectStore persists raw project tables. *store.Store satisfies it.
type ProjectStore interface {
	SaveTable(ctx context.Context, project string, table types.TableID, data any) error
	SaveProject(ctx context.Context, raw types.ProjectDataRaw) error
	LoadProject(ctx context.Context, name string) (types.ProjectDataRaw, error)
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the processing pipeline.
type Converter struct {
	mainConfig *config.MainConfig
	profiles   []*config.SourceProfile
	schemas    *schema.Schemas
	store      ProjectStore
	files      *utils.FileManager
	logger     Logger
	logOpts    []errorlog.Option
	filters    schema.Filters
	dryRun     bool
	now        func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithProfiles sets the source profiles files are matched against.
func WithProfiles(profiles []*config.SourceProfile) Option {
	return func(c *Converter) { c.profiles = profiles }
}

// WithFileManager replaces the file manager built from the main config.
func WithFileManager(fm *utils.FileManager) Option {
	return func(c *Converter) { c.files = fm }
}

// WithErrorLogOptions sets the options of every project error log, such as
// the console logger.
func WithErrorLogOptions(opts ...errorlog.Option) Option {
	return func(c *Converter) { c.logOpts = opts }
}

// WithFilters restricts the exported units.
func WithFilters(f schema.Filters) Option {
	return func(c *Converter) { c.filters = f }
}

// WithDryRun resolves in memory without touching the store or writing files.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) { c.dryRun = dryRun }
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - mainConfig: The main application configuration.
//   - schemas: The resolution schemas.
//   - store: The raw project store. It may be nil in dry-run mode.
//   - opts: Optional collaborators.
func New(mainConfig *config.MainConfig, schemas *schema.Schemas, store ProjectStore, opts ...Option) *Converter {
	c := &Converter{
		mainConfig: mainConfig,
		schemas:    schemas,
		store:      store,
		logger:     nopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.files == nil {
		c.files = utils.NewFileManager(mainConfig.InputDir, mainConfig.OutputDir, mainConfig.InputArchiveDir)
		c.files.ArchiveOnSuccess = mainConfig.ArchiveOnSuccess
	}
	return c
}

// =============================================================================
// INGEST
// =============================================================================

// Ingested is one parsed and transformed input file.
type Ingested struct {
	FilePath    string
	Profile     *config.SourceProfile
	Raw         types.ProjectDataRaw
	Tables      []types.TableID
	Rows        int
	Transformed int
}

// Read parses one input file and applies its profile's transformation
// rules. Nothing is stored.
//
// RETURNS:
//   - The ingested tables.
//   - An error if the format is unsupported or the file cannot be parsed.
func (c *Converter) Read(filePath string) (*Ingested, error) {
	profile := config.FindProfile(c.profiles, filePath)
	in := &Ingested{FilePath: filePath, Profile: profile}

	name := profile.ProjectName
	if name == "" {
		name = xlsxparser.ProjectNameFromFile(filePath)
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		raw, tables, err := readProjectJSON(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if profile.ProjectName != "" || raw.Name == "" {
			raw.Name = name
		}
		in.Raw, in.Tables = raw, tables

	case ".xlsx":
		wb, err := xlsxparser.Parse(filePath, name, profile.CSVSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse workbook: %w", err)
		}
		in.Raw = wb.Project
		for _, t := range types.AllTables {
			if _, ok := wb.Sheets[t]; ok {
				in.Tables = append(in.Tables, t)
			}
		}
		if len(wb.Skipped) > 0 {
			c.logger.Debug("skipped sheets", "file", filepath.Base(filePath), "sheets", wb.Skipped)
		}

	case ".csv":
		data, err := csvparser.Parse(filePath, profile.CSVSettings)
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		table := profile.TableID()
		in.Raw = types.ProjectDataRaw{Name: name}
		in.Raw.SetRows(table, data.Rows)
		in.Tables = []types.TableID{table}

	default:
		return nil, fmt.Errorf("unsupported input format: %s", ext)
	}

	if strings.TrimSpace(in.Raw.Name) == "" {
		return nil, errors.New("no project name")
	}

	t, err := NewTransformer(profile.TransformationRules)
	if err != nil {
		return nil, fmt.Errorf("invalid rules in profile %s: %w", profile.ProfileName, err)
	}
	in.Transformed = t.TransformProject(&in.Raw)

	for _, table := range in.Tables {
		in.Rows += len(in.Raw.Rows(table))
	}
	return in, nil
}

// ProjectOf returns the project filePath would be ingested into without
// parsing its tables. A JSON snapshot that names no project falls back to
// the file name, as in Read.
func (c *Converter) ProjectOf(filePath string) string {
	profile := config.FindProfile(c.profiles, filePath)
	if profile.ProjectName != "" {
		return profile.ProjectName
	}

	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		var doc struct {
			Name string `json:"proyecto_nombre"`
		}
		if data, err := os.ReadFile(filePath); err == nil && json.Unmarshal(data, &doc) == nil && doc.Name != "" {
			return doc.Name
		}
	}
	return xlsxparser.ProjectNameFromFile(filePath)
}

// readProjectJSON reads a raw snapshot. Only the tables present in the file
// are reported, so a partial snapshot does not wipe stored tables.
func readProjectJSON(filePath string) (types.ProjectDataRaw, []types.TableID, error) {
	var raw types.ProjectDataRaw

	data, err := os.ReadFile(filePath)
	if err != nil {
		return raw, nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return raw, nil, err
	}

	if name, ok := doc["proyecto_nombre"]; ok {
		if err := json.Unmarshal(name, &raw.Name); err != nil {
			return raw, nil, fmt.Errorf("proyecto_nombre: %w", err)
		}
	}

	var tables []types.TableID
	for _, t := range types.AllTables {
		table, ok := doc[string(t)]
		if !ok {
			continue
		}
		if err := raw.DecodeTable(t, table); err != nil {
			return raw, nil, fmt.Errorf("%s: %w", t, err)
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return raw, nil, errors.New("no ds_generales, ts_general, garajes or trasteros table")
	}
	return raw, tables, nil
}

// Save upserts the tables of in. A file carrying every table replaces the
// project in one transaction. Store failures are also recorded in log.
func (c *Converter) Save(ctx context.Context, in *Ingested, log *errorlog.Log) error {
	if c.store == nil {
		return errors.New("no project store")
	}

	if len(in.Tables) == len(types.AllTables) {
		if err := c.store.SaveProject(ctx, in.Raw); err != nil {
			if log != nil {
				log.Record(ContextStore, RefStore, in.Raw.Name, err.Error())
			}
			return fmt.Errorf("failed to store project: %w", err)
		}
		return nil
	}

	for _, table := range in.Tables {
		var data any
		if table == types.TableGeneral {
			data = in.Raw.General
		} else {
			rows := in.Raw.Rows(table)
			if rows == nil {
				rows = []types.Row{}
			}
			data = rows
		}

		if err := c.store.SaveTable(ctx, in.Raw.Name, table, data); err != nil {
			if log != nil {
				log.Record(ContextStore, RefStore, string(table), err.Error())
			}
			return fmt.Errorf("failed to store %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// RESOLVE
// =============================================================================

// Resolution is the outcome of resolving one project.
type Resolution struct {
	Project types.Project
	Report  validation.Report
	Log     *errorlog.Log

	OutputFile      string
	DiagnosticsFile string
	ErrorLogFile    string
}

// Resolve loads a stored project, resolves it and writes its outputs.
//
// PARAMETERS:
//   - name: The project name.
//   - log: The project error log. A nil log gets a fresh one.
func (c *Converter) Resolve(ctx context.Context, name string, log *errorlog.Log) (*Resolution, error) {
	if log == nil {
		log = c.newLog()
	}
	if c.store == nil {
		return nil, errors.New("no project store")
	}

	raw, err := c.store.LoadProject(ctx, name)
	if err != nil {
		log.Record(ContextStore, RefStore, name, err.Error())
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	return c.ResolveRaw(raw, log)
}

// ResolveRaw resolves a raw snapshot and, outside dry-run mode, writes the
// export, the diagnostics report and the error log.
func (c *Converter) ResolveRaw(raw types.ProjectDataRaw, log *errorlog.Log) (*Resolution, error) {
	if log == nil {
		log = c.newLog()
	}

	res := &Resolution{
		Project: mapper.New(c.schemas, log).MapProject(raw),
		Report:  validation.Diagnose(raw, c.schemas),
		Log:     log,
	}
	exp := export.New(c.schemas, log, export.Options{Filters: c.filters})

	if c.dryRun {
		// The document is still built so column misses reach the log.
		exp.BuildDocument(res.Project)
		return res, nil
	}

	outputDir := c.mainConfig.OutputDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := "." + c.mainConfig.OutputFormat
	fileName := utils.GenerateOutputFileName(c.mainConfig.OutputNameFormat, map[string]string{"project": raw.Name}, ext)
	res.OutputFile = filepath.Join(outputDir, fileName)

	switch c.mainConfig.OutputFormat {
	case config.FormatXLSX:
		err := exp.WriteXLSXFile(res.OutputFile, res.Project)
		if err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
	default:
		err := exp.WriteJSONFile(res.OutputFile, res.Project)
		if err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
	}

	base := strings.TrimSuffix(fileName, ext)
	// The diagnostics cover the whole project, whatever the unit filters.
	sales := stats.Compute(res.Project.Units, res.Project.Units)
	diagnostics := validation.FormatReport(res.Report) + stats.FormatReport(sales)
	path, err := utils.WriteTextFile(outputDir, base+"_diagnostics.md", diagnostics)
	if err != nil {
		return nil, err
	}
	res.DiagnosticsFile = path

	if log.Len() > 0 {
		path, err := log.WriteFile(outputDir, raw.Name)
		if err != nil {
			return nil, err
		}
		res.ErrorLogFile = path
	}
	return res, nil
}

func (c *Converter) newLog() *errorlog.Log {
	return errorlog.New(c.logOpts...)
}

// =============================================================================
// PROCESS
// =============================================================================

// project groups the files of one project during a run.
type project struct {
	log     *errorlog.Log
	raw     types.ProjectDataRaw
	results []int
}

// Process ingests every file, then resolves every project the files
// touched. Files are parsed concurrently but merged and stored in file
// order. Results are returned in file order.
//
// When continue_on_error is off, the first failure cancels the work not yet
// started; those files fail with the cancellation error.
func (c *Converter) Process(ctx context.Context, files []string) []Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]Result, len(files))
	starts := make([]time.Time, len(files))
	projects := make(map[string]*project)

	fail := func(i int, err error) {
		results[i].Error = err
		if !c.mainConfig.ContinueOnError {
			cancel()
		}
	}

	// =========================================================================
	// STEP 1: READ FILES
	// =========================================================================

	ins := make([]*Ingested, len(files))
	c.forEach(len(files), func(i int) {
		starts[i] = c.now()
		results[i].FilePath = files[i]
		if err := ctx.Err(); err != nil {
			fail(i, err)
			return
		}

		in, err := c.Read(files[i])
		if err != nil {
			c.logger.Error("failed to read input", "file", files[i], "error", err)
			fail(i, err)
			return
		}
		ins[i] = in
	})

	// =========================================================================
	// STEP 2: MERGE AND STORE IN FILE ORDER
	// =========================================================================

	// A table carried by several files ends up with the rows of the last one.
	for i, in := range ins {
		if in == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			fail(i, err)
			continue
		}
		results[i].Project = in.Raw.Name
		results[i].Tables = in.Tables
		results[i].Stats.RowsProcessed = in.Rows
		results[i].Stats.ValuesTransformed = in.Transformed

		p, ok := projects[in.Raw.Name]
		if !ok {
			p = &project{log: c.newLog(), raw: types.ProjectDataRaw{Name: in.Raw.Name}}
			projects[in.Raw.Name] = p
		}
		p.results = append(p.results, i)
		for _, t := range in.Tables {
			p.raw.SetRows(t, in.Raw.Rows(t))
		}

		if !c.dryRun {
			if err := c.Save(ctx, in, p.log); err != nil {
				c.logger.Error("failed to store input", "file", files[i], "error", err)
				fail(i, err)
				continue
			}
		}
		c.logger.Debug("ingested file", "file", filepath.Base(files[i]),
			"project", in.Raw.Name, "rows", in.Rows)
	}

	// =========================================================================
	// STEP 3: RESOLVE PROJECTS
	// =========================================================================

	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)

	c.forEach(len(names), func(n int) {
		p := projects[names[n]]

		var pending []int
		for _, i := range p.results {
			if results[i].Error == nil {
				pending = append(pending, i)
			}
		}
		if len(pending) == 0 {
			return
		}
		if err := ctx.Err(); err != nil {
			for _, i := range pending {
				fail(i, err)
			}
			return
		}

		var (
			res *Resolution
			err error
		)
		if c.dryRun {
			res, err = c.ResolveRaw(p.raw, p.log)
		} else {
			res, err = c.Resolve(ctx, names[n], p.log)
		}
		if err != nil {
			c.logger.Error("failed to resolve project", "project", names[n], "error", err)
			for _, i := range pending {
				fail(i, fmt.Errorf("failed to resolve project %s: %w", names[n], err))
			}
			return
		}

		issues := len(validation.Issues(res.Report.Parameters))
		for _, i := range pending {
			r := &results[i]
			r.OutputFile = res.OutputFile
			r.DiagnosticsFile = res.DiagnosticsFile
			r.ErrorLogFile = res.ErrorLogFile
			r.Stats.Units = len(res.Project.Units)
			r.Stats.Garages = len(res.Project.Garages)
			r.Stats.Storages = len(res.Project.Storages)
			r.Stats.ErrorRecords = res.Log.Len()
			r.Stats.Issues = issues
			r.Success = true

			if c.dryRun {
				continue
			}
			archived, err := c.files.ArchiveInputFile(r.FilePath)
			if err != nil {
				c.logger.Warn("failed to archive input", "file", r.FilePath, "error", err)
				continue
			}
			r.ArchivePath = archived
		}
		c.logger.Info("resolved project", "project", names[n],
			"units", len(res.Project.Units), "errors", res.Log.Len(), "output", res.OutputFile)
	})

	end := c.now()
	for i := range results {
		if !starts[i].IsZero() {
			results[i].Stats.ProcessingTime = end.Sub(starts[i])
		}
	}
	return results
}

// forEach runs fn for 0..n-1 with at most max_concurrency calls in flight.
// Every call runs; fn checks for cancellation itself so it can record it.
func (c *Converter) forEach(n int, fn func(i int)) {
	limit := c.mainConfig.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}(i)
	}
	wg.Wait()
}

// Summarize builds the processing summary of a run.
func Summarize(results []Result, start, end time.Time) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		StartTime:  start,
		EndTime:    end,
		TotalFiles: len(results),
	}

	projects := make(map[string]int)
	for _, r := range results {
		summary.TotalRows += r.Stats.RowsProcessed
		if !r.Success {
			summary.FailedFiles++
			msg := "unknown error"
			if r.Error != nil {
				msg = r.Error.Error()
			}
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    r.FilePath,
				ErrorMessage: msg,
			})
			continue
		}
		summary.SuccessfulFiles++
		projects[r.Project] = r.Stats.ErrorRecords
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   r.FilePath,
			Project:     r.Project,
			OutputFile:  r.OutputFile,
			ArchivePath: r.ArchivePath,
			Rows:        r.Stats.RowsProcessed,
			ProcessTime: r.Stats.ProcessingTime,
		})
	}

	summary.Projects = len(projects)
	for _, n := range projects {
		summary.ErrorRecords += n
	}
	return summary
}
