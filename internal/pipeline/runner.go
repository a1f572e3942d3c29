// Package pipeline sequences a normalization run: the four parse passes in
// dependency order, the derived-relation flush and the split stage.
//
//	Init -> ParseFilm -> ParsePerson -> ParsePrincipal -> ParseRating
//	     -> WriteDerived -> Split -> Done
//
// A run may enter at ParsePerson, ParsePrincipal or ParseRating (resume), in
// which case the Film index is rebuilt from earlier output, and the Person
// index too when the run enters at ParsePrincipal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"imdbnorm/internal/config"
	"imdbnorm/internal/datasource/file"
	"imdbnorm/internal/metrics"
	"imdbnorm/internal/normalize"
	"imdbnorm/internal/output"
	"imdbnorm/internal/parser/tsv"
	"imdbnorm/internal/schema"
	"imdbnorm/internal/split"
)

// Options configure one run.
type Options struct {
	Job string
	// RunID labels the run in logs and metrics; empty generates one.
	RunID string

	// Inputs maps every source table to its raw dump file.
	Inputs           map[string]string
	DatasetDelimiter string
	Layout           output.Layout

	FilmTypes     []string
	ErrorLog      string // path of the JSON error log; empty disables it
	ErrorLogLimit int

	// Parallelism bounds the split stage.
	Parallelism int

	// Resume names the first table to parse; empty runs every pass.
	Resume  string
	NoSplit bool

	Progress Sink
	Verbose  bool
}

// FromConfig builds run options from a loaded configuration.
func FromConfig(c config.Config) (Options, error) {
	types, err := c.FilmTypes()
	if err != nil {
		return Options{}, err
	}
	inputs := make(map[string]string, len(normalize.Sources()))
	for _, t := range normalize.Sources() {
		inputs[t] = c.InputPath(t)
	}
	return Options{
		Job:              c.Job,
		Inputs:           inputs,
		DatasetDelimiter: c.DatasetDelimiter,
		Layout:           output.Layout{Dir: c.OutputDir, Ext: c.OutputExtension, Delim: c.OutputDelimiter},
		FilmTypes:        types,
		ErrorLog:         c.ErrorLog,
		ErrorLogLimit:    c.ErrorLogLimit,
		Parallelism:      c.Parallelism,
		Progress:         NewLogSink(c.Progress.Interval),
	}, nil
}

// newRunID is swapped in tests.
var newRunID = uuid.NewString

// Runner executes one run. It is single use.
type Runner struct {
	opts  Options
	st    *normalize.State
	stage Stage
	ran   map[string]bool

	summary Summary
}

// New returns a Runner for opts.
func New(opts Options) *Runner {
	if opts.Progress == nil {
		opts.Progress = NopSink{}
	}
	if opts.Job == "" {
		opts.Job = "imdbnorm"
	}
	return &Runner{
		opts:  opts,
		st:    normalize.NewState(opts.FilmTypes, opts.ErrorLogLimit),
		stage: StageInit,
		ran:   make(map[string]bool),
	}
}

// Stage returns the state the runner is in, or the state it failed in.
func (r *Runner) Stage() Stage { return r.stage }

// State exposes the run context, mostly for inspection after Run.
func (r *Runner) State() *normalize.State { return r.st }

// Run executes every stage from the entry point to Done. A malformed record
// never stops a pass; a source that cannot be opened or read, or an output
// that cannot be written, stops the run with an error naming the stage.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	runID := r.opts.RunID
	if runID == "" {
		runID = newRunID()
	}
	r.summary = Summary{RunID: runID, Resume: r.opts.Resume, Chunks: make(map[string]int)}
	log.Printf("run: id=%s job=%s out=%s resume=%q split=%t", r.summary.RunID, r.opts.Job, r.opts.Layout.Dir, r.opts.Resume, !r.opts.NoSplit)

	entry, err := entryStage(r.opts.Resume)
	if err != nil {
		return r.summary, err
	}

	err = r.step(StageInit, func() error { return r.restore(ctx, entry) })
	for _, table := range normalize.Sources() {
		if err != nil {
			break
		}
		s := parseStage(table)
		if s < entry {
			continue
		}
		err = r.step(s, func() error { return r.parse(ctx, table) })
	}
	if err == nil {
		err = r.step(StageWriteDerived, r.writeDerived)
	}
	if err == nil && !r.opts.NoSplit {
		err = r.step(StageSplit, func() error { return r.split(ctx) })
	}
	if err == nil {
		r.stage = StageDone
	}

	// The error log is written even for a failed run.
	if r.opts.ErrorLog != "" {
		if serr := r.st.Errors.Save(r.opts.ErrorLog); serr != nil {
			err = errors.Join(err, fmt.Errorf("save error log: %w", serr))
		} else if r.st.Errors.Total() > 0 {
			log.Printf("errors: total=%d file=%s", r.st.Errors.Total(), r.opts.ErrorLog)
		}
	}

	r.summary.Elapsed = time.Since(start)
	logRunSummary(r.summary)
	return r.summary, err
}

func (r *Runner) step(s Stage, fn func() error) error {
	r.stage = s
	start := time.Now()
	err := fn()
	metrics.RecordStage(r.opts.Job, s.String(), err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	if r.opts.Verbose {
		log.Printf("stage: %s dur=%s", s, time.Since(start).Truncate(time.Millisecond))
	}
	return nil
}

// restore rebuilds the run context a resumed run skips: the Film index for
// every entry after ParseFilm, and the Person index and the person/film
// pairs when resuming at ParsePrincipal.
func (r *Runner) restore(ctx context.Context, entry Stage) error {
	l := r.opts.Layout
	if entry > StageParseFilm {
		if err := l.ReadIDs(ctx, schema.Film, r.st.Films.Add); err != nil {
			return fmt.Errorf("rebuild film index: %w", err)
		}
		log.Printf("resume: rebuilt film index ids=%d", r.st.Films.Len())
	}
	// Only the Principal pass reads the Person index.
	if entry == StageParsePrincipal {
		if err := l.ReadIDs(ctx, schema.Person, r.st.Persons.Add); err != nil {
			return fmt.Errorf("rebuild person index: %w", err)
		}
		log.Printf("resume: rebuilt person index ids=%d", r.st.Persons.Len())

		err := l.ReadPairs(ctx, schema.PersonFilm, func(p, f uint64) { r.st.PersonFilm.Add(p, f) })
		if err != nil {
			return fmt.Errorf("seed %s: %w", schema.PersonFilm, err)
		}
		log.Printf("resume: seeded %s pairs=%d", schema.PersonFilm, r.st.PersonFilm.Len())
	}
	return nil
}

// parse runs the pass of one source table.
func (r *Runner) parse(ctx context.Context, table string) (err error) {
	n, err := normalize.For(table, r.st)
	if err != nil {
		return err
	}
	src, ok := r.opts.Inputs[table]
	if !ok || src == "" {
		return fmt.Errorf("no input file for %s", table)
	}

	start := time.Now()
	dec, err := tsv.Open(ctx, file.NewLocal(src), r.opts.DatasetDelimiter)
	if err != nil {
		return err
	}
	defer dec.Close()
	if missing := normalize.MissingColumns(n, dec.Header()); len(missing) > 0 {
		return fmt.Errorf("%s: header lacks %s: %w", src, strings.Join(missing, ", "), tsv.ErrMissingField)
	}

	w, err := output.Create(r.opts.Layout, n.Table())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	stats := TableStats{Table: table}
	agg := newErrAgg(thisMany)
	progress := newTracker(table, r.opts.Progress)
	defer func() {
		stats.Duration = time.Since(start)
		r.summary.Tables = append(r.summary.Tables, stats)
		r.record(stats)
	}()

	for dec.Next() {
		stats.Read++
		row, nerr := n.Normalize(dec.Record())
		switch {
		case nerr != nil:
			var re *normalize.RecordError
			if !errors.As(nerr, &re) {
				return fmt.Errorf("%s line %d: %w", table, dec.Record().Line, nerr)
			}
			r.st.Errors.Add(re)
			agg.add(re.Reason)
			stats.Malformed++
		case row == nil:
			stats.Dropped++
		default:
			if err := w.Write(row); err != nil {
				return err
			}
			stats.Accepted++
		}
		progress.update(dec.Progress(), stats.Read)
	}
	if err := dec.Err(); err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	progress.done(stats.Read)
	r.ran[table] = true

	logTableSummary(stats)
	agg.log(table)

	if table == schema.Person {
		// Checkpoint so a later run can resume at principal.
		rows, err := output.WritePairs(r.opts.Layout, schema.PersonFilm, &r.st.PersonFilm)
		if err != nil {
			return fmt.Errorf("checkpoint %s: %w", schema.PersonFilm, err)
		}
		if r.opts.Verbose {
			log.Printf("checkpoint: table=%s rows=%d", schema.PersonFilm, rows)
		}
	}
	return nil
}

func (r *Runner) record(s TableStats) {
	job := r.opts.Job
	metrics.RecordRecords(job, s.Table, metrics.OutcomeRead, s.Read)
	metrics.RecordRecords(job, s.Table, metrics.OutcomeAccepted, s.Accepted)
	metrics.RecordRecords(job, s.Table, metrics.OutcomeDropped, s.Dropped)
	metrics.RecordRecords(job, s.Table, metrics.OutcomeMalformed, s.Malformed)
}

// writeDerived flushes the accumulators of the passes that ran in this run.
// Relations owned by a skipped pass keep their earlier output.
func (r *Runner) writeDerived() error {
	l := r.opts.Layout
	d := &r.summary.Derived
	var err error
	if r.ran[schema.Film] {
		d.Genres, d.GenreFilms, err = output.WriteCategories(l, schema.Genre, schema.GenreFilm, &r.st.Genres)
		if err != nil {
			return err
		}
	}
	if r.ran[schema.Person] {
		d.Professions, d.ProfessionPersons, err = output.WriteCategories(l, schema.Profession, schema.ProfessionPerson, &r.st.Professions)
		if err != nil {
			return err
		}
	}
	if r.ran[schema.Principal] {
		if d.Jobs, err = output.WriteJobs(l, &r.st.Jobs); err != nil {
			return err
		}
		if d.PersonFilms, err = output.WritePairs(l, schema.PersonFilm, &r.st.PersonFilm); err != nil {
			return err
		}
	} else if r.ran[schema.Person] {
		d.PersonFilms = int64(r.st.PersonFilm.Len())
	}
	return nil
}

// split chunks every table that has an unsplit file.
func (r *Runner) split(ctx context.Context) error {
	s := &split.Splitter{Layout: r.opts.Layout, Parallelism: r.opts.Parallelism, Verbose: r.opts.Verbose}
	results, err := s.Split(ctx, schema.TableNames())
	for _, res := range results {
		if res.Skipped || res.Err != nil {
			continue
		}
		r.summary.Chunks[res.Table] = res.Chunks
		metrics.RecordChunks(r.opts.Job, res.Table, res.Chunks)
	}
	return err
}
