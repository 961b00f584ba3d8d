// Package coordinator drives a complete audit: it locks the project, diffs
// the fingerprint index, decides between a full and an incremental pass,
// fans tool invocations out through the orchestrator, and commits the new
// index once the run settles.
package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"sca/internal/audit"
	"sca/internal/config"
	"sca/internal/errors"
	"sca/internal/fingerprint"
	"sca/internal/orchestrator"
	"sca/internal/patterncache"
	"sca/internal/paths"
	"sca/internal/resultstore"
	"sca/internal/storage"
)

// Mode says how much of the project an audit re-analyzes.
type Mode string

const (
	// ModeFull re-analyzes everything and replaces cached results wholesale.
	ModeFull Mode = "full"
	// ModeIncremental re-analyzes only files the fingerprint diff flagged.
	ModeIncremental Mode = "incremental"
)

// Options control a single audit run.
type Options struct {
	// ForceFull bypasses change detection and re-analyzes everything.
	ForceFull bool
	// Exclude names tools to record as skipped without executing.
	Exclude []string
}

// ChangeSummary is the audit-level view of the fingerprint diff.
type ChangeSummary struct {
	Added     int `json:"added"`
	Modified  int `json:"modified"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Report is the result of one audit run.
type Report struct {
	RunID        string                          `json:"runId"`
	Mode         Mode                            `json:"mode"`
	StartedAt    time.Time                       `json:"startedAt"`
	DurationMs   int64                           `json:"durationMs"`
	FilesScanned int                             `json:"filesScanned"`
	Changes      ChangeSummary                   `json:"changes"`
	Outcomes     map[string]orchestrator.Outcome `json:"outcomes"`
}

// Stats is the administrative view of a project's persisted audit state.
type Stats struct {
	IndexedFiles   int                 `json:"indexedFiles"`
	IndexUpdatedAt *time.Time          `json:"indexUpdatedAt,omitempty"`
	Results        []resultstore.Info  `json:"results"`
	PatternEntries []patterncache.Info `json:"patternEntries"`
}

// Coordinator owns the per-project audit state and the tool registry.
type Coordinator struct {
	cfg      *config.Config
	registry audit.Registry
	logger   *slog.Logger

	projectRoot string
	db          *storage.DB
	index       *fingerprint.Index
	results     *resultstore.Store
	patterns    *patterncache.Cache
	orch        *orchestrator.Orchestrator
}

// New opens the project's audit state and wires the pipeline together.
func New(cfg *config.Config, registry audit.Registry, logger *slog.Logger) (*Coordinator, error) {
	root := cfg.ProjectRoot

	db, err := storage.Open(root, logger)
	if err != nil {
		return nil, err
	}

	results, err := resultstore.New(db, logger, cfg.Cache.CompressAboveBytes)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	index := fingerprint.NewIndex(root, paths.IndexPath(root), fingerprint.ScanConfig{
		Extensions:       cfg.Scan.Extensions,
		Excludes:         cfg.Scan.Excludes,
		MaxFileSizeBytes: cfg.Scan.MaxFileSizeBytes,
	}, logger)

	patterns := patterncache.New(db, root, logger,
		time.Duration(cfg.Cache.PatternTtlSeconds)*time.Second)

	orch := orchestrator.New(logger, cfg.Orchestrator.MaxWorkers,
		time.Duration(cfg.Orchestrator.ToolTimeoutMs)*time.Millisecond)

	return &Coordinator{
		cfg:         cfg,
		registry:    registry,
		logger:      logger,
		projectRoot: root,
		db:          db,
		index:       index,
		results:     results,
		patterns:    patterns,
		orch:        orch,
	}, nil
}

// Close releases the underlying database.
func (c *Coordinator) Close() error {
	return c.db.Close()
}

// RunAudit executes one audit run end to end. Tool failures are isolated in
// the report; only lock contention, an unreadable project, or an unknown
// tool name fail the run itself.
func (c *Coordinator) RunAudit(ctx context.Context, opts Options) (*Report, error) {
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, name := range opts.Exclude {
		if _, ok := c.registry[name]; !ok {
			return nil, errors.New(errors.ToolUnknown, "unknown tool "+name, nil)
		}
		excluded[name] = true
	}

	lock, err := AcquireLock(c.projectRoot)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	startedAt := time.Now()

	previous, exists := c.index.Load()
	mode := ModeIncremental
	if opts.ForceFull || !exists {
		mode = ModeFull
	}

	current, err := c.index.Scan()
	if err != nil {
		return nil, errors.New(errors.ProjectUnreadable, "scanning project", err)
	}

	cs := fingerprint.Diff(current, previous)
	c.logger.Info("Change detection complete",
		"mode", string(mode),
		"files", len(current),
		"added", len(cs.Added),
		"modified", len(cs.Modified),
		"removed", len(cs.Removed),
		"unchanged", len(cs.Unchanged))

	invocations := make([]orchestrator.Invocation, 0, len(c.registry))
	for _, name := range c.registry.Names() {
		tool := c.registry[name]
		invocations = append(invocations, orchestrator.Invocation{
			Name:    name,
			Exclude: excluded[name],
			Execute: c.executeFuncFor(tool, mode, cs),
		})
	}

	run := c.orch.Run(ctx, invocations)

	// A failed file-scoped tool's cached entry no longer matches the index
	// we are about to commit; drop it so the next run recomputes from scratch.
	for name, out := range run.Outcomes {
		if out.State != orchestrator.StateFailed {
			continue
		}
		c.logger.Warn("Tool failed",
			"tool", name, "code", string(errors.ToolFailed), "error", out.Error)
		if tool, ok := c.registry[name]; ok && tool.Kind == audit.KindFileScoped {
			if _, err := c.results.Clear(name); err != nil {
				c.logger.Warn("Could not clear stale results for failed tool",
					"tool", name, "error", err.Error())
			}
		}
	}

	// Commit the new fingerprint state unless the audit itself was cancelled
	if ctx.Err() == nil {
		if err := c.index.Commit(current); err != nil {
			return nil, errors.New(errors.InternalError, "committing fingerprint index", err)
		}
	} else {
		c.logger.Info("Audit cancelled, fingerprint index left unchanged")
	}

	return &Report{
		RunID:        run.ID,
		Mode:         mode,
		StartedAt:    startedAt,
		DurationMs:   time.Since(startedAt).Milliseconds(),
		FilesScanned: len(current),
		Changes: ChangeSummary{
			Added:     len(cs.Added),
			Modified:  len(cs.Modified),
			Removed:   len(cs.Removed),
			Unchanged: len(cs.Unchanged),
		},
		Outcomes: run.Outcomes,
	}, nil
}

// executeFuncFor binds a tool to its caching strategy: result-store merge
// for file-scoped tools, pattern cache for project-scoped tools that declare
// dependency patterns, unconditional execution otherwise.
func (c *Coordinator) executeFuncFor(tool audit.Tool, mode Mode, cs fingerprint.ChangeSet) orchestrator.ExecuteFunc {
	switch {
	case tool.Kind == audit.KindFileScoped:
		return func(ctx context.Context) (json.RawMessage, bool, error) {
			return c.runFileTool(ctx, tool, mode, cs)
		}
	case len(tool.Patterns) > 0:
		return func(ctx context.Context) (json.RawMessage, bool, error) {
			return c.runPatternTool(ctx, tool)
		}
	default:
		return func(ctx context.Context) (json.RawMessage, bool, error) {
			payload, err := tool.AnalyzeProject(ctx, c.projectRoot)
			return payload, false, err
		}
	}
}

// runFileTool runs a file-scoped tool. Incrementally it analyzes only
// changed files and merges into the prior entry; without a prior entry a
// changed-file merge would lose findings in unchanged files, so the tool
// degrades to a full pass.
func (c *Coordinator) runFileTool(ctx context.Context, tool audit.Tool, mode Mode, cs fingerprint.ChangeSet) (json.RawMessage, bool, error) {
	if mode == ModeIncremental {
		entry, err := c.results.Load(tool.Name)
		if err != nil {
			return nil, false, err
		}
		if entry != nil {
			if !cs.HasChanges() {
				return entry.Aggregate, true, nil
			}

			changed := make([]string, 0, len(cs.Added)+len(cs.Modified))
			changed = append(changed, cs.Added...)
			changed = append(changed, cs.Modified...)

			fresh := audit.FindingsByFile{}
			if len(changed) > 0 {
				fresh, err = tool.AnalyzeFiles(ctx, c.projectRoot, changed)
				if err != nil {
					return nil, false, err
				}
			}

			aggregate, err := c.results.Merge(tool.Name, fresh, changed, cs.Removed, tool.Reduce)
			if err != nil {
				return nil, false, err
			}
			return aggregate, false, nil
		}
	}

	fresh, err := tool.AnalyzeFiles(ctx, c.projectRoot, nil)
	if err != nil {
		return nil, false, err
	}
	for path, findings := range fresh {
		if len(findings) == 0 {
			delete(fresh, path)
		}
	}

	aggregate, err := tool.Reduce(fresh)
	if err != nil {
		return nil, false, err
	}
	if err := c.results.Save(tool.Name, fresh, aggregate); err != nil {
		return nil, false, err
	}
	return aggregate, false, nil
}

// runPatternTool runs a project-scoped tool through the pattern cache.
func (c *Coordinator) runPatternTool(ctx context.Context, tool audit.Tool) (json.RawMessage, bool, error) {
	payload, hit, err := c.patterns.Get(tool.Name, tool.Patterns, tool.MaxAge)
	if err != nil {
		return nil, false, err
	}
	if hit {
		return payload, true, nil
	}

	payload, err = tool.AnalyzeProject(ctx, c.projectRoot)
	if err != nil {
		return nil, false, err
	}
	if err := c.patterns.Put(tool.Name, tool.Patterns, payload); err != nil {
		return nil, false, err
	}
	return payload, false, nil
}

// Stats reports the persisted audit state for the project.
func (c *Coordinator) Stats() (*Stats, error) {
	records, exists := c.index.Load()

	stats := &Stats{IndexedFiles: len(records)}
	if exists {
		if ts, ok := c.index.UpdatedAt(); ok {
			stats.IndexUpdatedAt = &ts
		}
	}

	results, err := c.results.List()
	if err != nil {
		return nil, err
	}
	stats.Results = results

	patterns, err := c.patterns.List()
	if err != nil {
		return nil, err
	}
	stats.PatternEntries = patterns

	return stats, nil
}

// ClearCache removes cached results and pattern entries for one tool, or for
// all tools when tool is empty. Returns the number of entries removed.
func (c *Coordinator) ClearCache(tool string) (int, error) {
	if tool != "" {
		if _, ok := c.registry[tool]; !ok {
			return 0, errors.New(errors.ToolUnknown, "unknown tool "+tool, nil)
		}
	}

	fromResults, err := c.results.Clear(tool)
	if err != nil {
		return 0, err
	}
	fromPatterns, err := c.patterns.Clear(tool)
	if err != nil {
		return fromResults, err
	}
	return fromResults + fromPatterns, nil
}
