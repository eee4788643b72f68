// Package intake orchestrates form generation for one response row.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"pantry-intake/internal/forms"
	"pantry-intake/internal/guidelines"
	"pantry-intake/internal/household"
	"pantry-intake/internal/merge"
	"pantry-intake/internal/recommend"
	"pantry-intake/internal/render"
	"pantry-intake/internal/sequence"
	"pantry-intake/internal/sheets"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/metrics"
	"pantry-intake/internal/shared/telemetry"
	"pantry-intake/internal/submission"
)

// timestampLayout is written to the sheet; USER_ENTERED input parses it as a date.
const timestampLayout = "2006-01-02 15:04:05"

// ErrMissingFormIDColumn is returned when a row needs an id but the sheet has no FormID column.
var ErrMissingFormIDColumn = errors.New("intake: response sheet has no FormID column")

var tracer = otel.Tracer("pantry-intake/intake")

// Service wires the pure domain packages to the sheet, renderer and record store.
type Service struct {
	Rows       sheets.RowStore
	Guidelines guidelines.Source
	Sequence   sequence.Sequence
	Renderer   render.Renderer
	// RendererName labels render metrics.
	RendererName string
	// Forms is optional.
	Forms    forms.Repo
	Rules    *config.RulesHolder
	Location *time.Location
	Clock    func() time.Time
	// SheetName filters submit events. Empty accepts any sheet.
	SheetName string
}

// Result describes one Generate call.
type Result struct {
	Row             int      `json:"row"`
	FormID          string   `json:"formId,omitempty"`
	FileID          string   `json:"fileId,omitempty"`
	URL             string   `json:"url,omitempty"`
	Skipped         bool     `json:"skipped"`
	Regenerated     bool     `json:"regenerated"`
	Recommendations int      `json:"recommendations"`
	Warnings        []string `json:"warnings,omitempty"`
}

func (s *Service) now() time.Time {
	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}

func (s *Service) rules() config.Rules {
	if s.Rules == nil {
		return config.DefaultRules()
	}
	return s.Rules.Get()
}

type snapshot struct {
	header   []string
	row      map[string]string
	table    guidelines.Table
	tableErr error
}

// load reads the header, the row and the guideline table concurrently. A guideline
// failure is kept in tableErr and does not fail the load.
func (s *Service) load(ctx context.Context, row int) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.Rows.Header(gctx)
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		snap.header = h
		return nil
	})
	g.Go(func() error {
		r, err := s.Rows.Row(gctx, row)
		if err != nil {
			return fmt.Errorf("read row %d: %w", row, err)
		}
		snap.row = r
		return nil
	})
	if s.Guidelines != nil {
		g.Go(func() error {
			snap.table, snap.tableErr = guidelines.LoadFrom(gctx, s.Guidelines)
			return nil
		})
	} else {
		snap.tableErr = errors.New("no guideline source configured")
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

type assembled struct {
	sub          submission.Submission
	counts       household.Counts
	placeholders map[string]string
	recommended  int
}

func (s *Service) assemble(ctx context.Context, rules config.Rules, snap snapshot, now time.Time, res *Result) assembled {
	sub := submission.FromRow(snap.row, rules.PetSlots)
	if err := sub.Validate(); err != nil {
		s.warn(ctx, res, "submission.invalid", err)
	}
	counts := household.NewSummarizer(rules).Summarize(sub.Slots())

	var rec map[string]string
	if snap.tableErr != nil {
		metrics.IncDegraded("recommendations")
		s.warn(ctx, res, "guidelines.unavailable", snap.tableErr)
	} else {
		rec = recommend.NewEngine(rules).Resolve(recommend.ParseRequested(sub.ResourcesRequested), counts, snap.table)
	}
	return assembled{
		sub:          sub,
		counts:       counts,
		placeholders: merge.BuildPlaceholderMap(sub, counts, rec, now),
		recommended:  len(rec),
	}
}

func (s *Service) warn(ctx context.Context, res *Result, event string, err error) {
	if res != nil {
		res.Warnings = append(res.Warnings, event)
	}
	fields := map[string]any{"error": err, "requestId": requestIDFromContext(ctx)}
	if res != nil {
		fields["row"] = res.Row
	}
	telemetry.Warn("intake."+event, fields)
}

// Generate assigns a FormID if needed, renders the PDF and records it on the row.
// An existing output is kept unless force is set.
func (s *Service) Generate(ctx context.Context, row int, force bool) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "intake.Generate")
	span.SetAttributes(attribute.Int("sheet.row", row), attribute.Bool("force", force))
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeGenerated
		switch {
		case err != nil:
			outcome = metrics.OutcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.Skipped:
			outcome = metrics.OutcomeSkipped
		case res.Regenerated:
			outcome = metrics.OutcomeRegenerated
		}
		metrics.IncForms(outcome)
		if err == nil && !res.Skipped {
			metrics.ObserveGeneration(time.Since(start))
		}
		span.End()
	}()

	res = Result{Row: row}
	if row <= 1 {
		return res, fmt.Errorf("intake: %w: %d", sheets.ErrRowOutOfRange, row)
	}

	snap, err := s.load(ctx, row)
	if err != nil {
		return res, fmt.Errorf("intake: %w", err)
	}

	existing := snap.row[submission.ColGeneratedPDFID] != "" && snap.row[submission.ColGeneratedPDFURL] != ""
	if existing && !force {
		res.Skipped = true
		res.FormID = snap.row[submission.ColFormID]
		res.FileID = snap.row[submission.ColGeneratedPDFID]
		res.URL = snap.row[submission.ColGeneratedPDFURL]
		telemetry.Info("intake.skip_existing", map[string]any{"row": row, "requestId": requestIDFromContext(ctx)})
		return res, nil
	}

	if snap.row[submission.ColFormID] == "" {
		id, err := s.assignFormID(ctx, snap.header, row)
		if err != nil {
			return res, err
		}
		snap.row[submission.ColFormID] = id
	}
	res.FormID = snap.row[submission.ColFormID]
	span.SetAttributes(attribute.String("form.id", res.FormID))

	rules := s.rules()
	now := s.now()
	a := s.assemble(ctx, rules, snap, now, &res)
	res.Recommendations = a.recommended

	if sheets.HasColumns(snap.header, submission.CountColumns...) {
		if err := s.Rows.WriteCells(ctx, row, countCells(a.counts)); err != nil {
			metrics.IncDegraded("counts")
			s.warn(ctx, &res, "counts.write_failed", err)
		}
	}

	renderStart := time.Now()
	file, err := s.Renderer.Render(ctx, render.Job{
		Placeholders: a.placeholders,
		OutputName:   merge.OutputName(a.sub, now),
		FormID:       merge.FormID(a.placeholders),
	})
	metrics.ObserveRender(s.RendererName, time.Since(renderStart))
	if err != nil {
		return res, fmt.Errorf("intake: render row %d: %w", row, err)
	}
	res.FileID, res.URL = file.ID, file.URL
	res.Regenerated = existing && force

	stamp := now.Format(timestampLayout)
	cells := map[string]string{
		submission.ColGeneratedPDFID:  file.ID,
		submission.ColGeneratedPDFURL: file.URL,
		submission.ColGeneratedAt:     stamp,
	}
	if res.Regenerated {
		cells = map[string]string{
			submission.ColRegeneratedPDFID:  file.ID,
			submission.ColRegeneratedPDFURL: file.URL,
			submission.ColLastRegeneratedAt: stamp,
		}
	}
	if err := s.Rows.WriteCells(ctx, row, cells); err != nil {
		return res, fmt.Errorf("intake: record output on row %d: %w", row, err)
	}

	s.record(ctx, &res, now)
	telemetry.Info("intake.generated", map[string]any{
		"row":             row,
		"formId":          res.FormID,
		"fileId":          res.FileID,
		"regenerated":     res.Regenerated,
		"recommendations": res.Recommendations,
		"requestId":       requestIDFromContext(ctx),
	})
	return res, nil
}

func (s *Service) assignFormID(ctx context.Context, header []string, row int) (string, error) {
	if !sheets.HasColumns(header, submission.ColFormID) {
		return "", ErrMissingFormIDColumn
	}
	id, err := s.Sequence.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("intake: next form id: %w", err)
	}
	if err := s.Rows.WriteCells(ctx, row, map[string]string{submission.ColFormID: id}); err != nil {
		return "", fmt.Errorf("intake: write form id: %w", err)
	}
	telemetry.Info("intake.form_id_assigned", map[string]any{"row": row, "formId": id})
	return id, nil
}

func (s *Service) record(ctx context.Context, res *Result, now time.Time) {
	if s.Forms == nil {
		return
	}
	f, err := forms.New(res.FormID, res.Row, res.FileID, res.URL, res.Regenerated, now.UTC())
	if err == nil {
		err = s.Forms.Create(ctx, f)
	}
	if err != nil {
		s.warn(ctx, res, "forms.record_failed", err)
	}
}

func countCells(c household.Counts) map[string]string {
	return map[string]string{
		submission.ColCountAdultDogs: fmt.Sprint(c.AdultDogs),
		submission.ColCountPuppies:   fmt.Sprint(c.Puppies),
		submission.ColCountAdultCats: fmt.Sprint(c.AdultCats),
		submission.ColCountKittens:   fmt.Sprint(c.Kittens),
	}
}

// Preview computes the placeholder map for row without assigning ids, rendering or writing.
func (s *Service) Preview(ctx context.Context, row int) (map[string]string, error) {
	ctx, span := tracer.Start(ctx, "intake.Preview")
	defer span.End()
	if row <= 1 {
		return nil, fmt.Errorf("intake: %w: %d", sheets.ErrRowOutOfRange, row)
	}
	snap, err := s.load(ctx, row)
	if err != nil {
		return nil, fmt.Errorf("intake: %w", err)
	}
	res := Result{Row: row}
	return s.assemble(ctx, s.rules(), snap, s.now(), &res).placeholders, nil
}
