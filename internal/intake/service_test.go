package intake

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pantry-intake/internal/forms"
	"pantry-intake/internal/render"
	"pantry-intake/internal/sequence"
	"pantry-intake/internal/sheets"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/submission"
)

var fixedNow = time.Date(2025, time.March, 7, 9, 5, 0, 0, time.UTC)

var responseHeader = []string{
	"Timestamp",
	submission.ColFormID,
	submission.ColFirstName,
	submission.ColLastName,
	submission.ColEmail,
	submission.ColResourcesRequested,
	"Pet 1 Species", "Pet 1 Units", "Pet 1 Weight",
	"Pet 2 Species", "Pet 2 Units",
	submission.ColCountAdultDogs, submission.ColCountPuppies, submission.ColCountAdultCats, submission.ColCountKittens,
	submission.ColGeneratedPDFID, submission.ColGeneratedPDFURL, submission.ColGeneratedAt,
	submission.ColRegeneratedPDFID, submission.ColRegeneratedPDFURL, submission.ColLastRegeneratedAt,
}

func adaRow() []string {
	return []string{"3/7/2025", "", "Ada", "Lovelace", "ada@example.org", "Dog Food, Cat Food", "Dog", "Years", "30", "Dog", "Months"}
}

type tableSource struct {
	rows [][]string
	err  error
}

func (s tableSource) Rows(context.Context) ([][]string, error) { return s.rows, s.err }

func pantryGuidelines() tableSource {
	return tableSource{rows: [][]string{
		{"Item", "Placeholders", "Per Pet", "Household Max", "Notes", "AmountGiven", "Amount Placeholder"},
		{"Dog Food", "{{dogFood}}", "10", "30", "lbs of food", "", ""},
		{"Cat Food", "{{catFood}}", "4", "", "cans", "", ""},
		{"Dry Puppy Food", "{{dryPuppy}}", "3", "5", "lbs", "", ""},
	}}
}

type fakeRenderer struct {
	mu   sync.Mutex
	jobs []render.Job
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, job render.Job) (render.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return render.StoredFile{}, f.err
	}
	f.jobs = append(f.jobs, job)
	id := fmt.Sprintf("file-%d", len(f.jobs))
	return render.StoredFile{ID: id, URL: "https://files.example/" + id}, nil
}

type fixture struct {
	svc      *Service
	rows     *sheets.MemoryStore
	renderer *fakeRenderer
	forms    *forms.MemoryRepo
}

func newFixture(header []string, rows ...[]string) fixture {
	store := sheets.NewMemoryStore(header, rows...)
	rr := &fakeRenderer{}
	repo := forms.NewMemoryRepo()
	rules := config.DefaultRules()
	return fixture{
		svc: &Service{
			Rows:         store,
			Guidelines:   pantryGuidelines(),
			Sequence:     sequence.NewMemory(rules.FormID.Seed, rules.FormID.Width),
			Renderer:     rr,
			RendererName: "fake",
			Forms:        repo,
			Rules:        config.NewRulesHolder(rules),
			Location:     time.UTC,
			Clock:        func() time.Time { return fixedNow },
			SheetName:    "Form Responses 1",
		},
		rows:     store,
		renderer: rr,
		forms:    repo,
	}
}

func (f fixture) row(t *testing.T, n int) map[string]string {
	t.Helper()
	r, err := f.rows.Row(context.Background(), n)
	if err != nil {
		t.Fatalf("read row %d: %v", n, err)
	}
	return r
}

func TestGenerateNewRow(t *testing.T) {
	f := newFixture(responseHeader, adaRow())

	res, err := f.svc.Generate(context.Background(), 2, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := Result{Row: 2, FormID: "100000000543", FileID: "file-1", URL: "https://files.example/file-1", Recommendations: 2}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	row := f.row(t, 2)
	for col, v := range map[string]string{
		submission.ColFormID:          "100000000543",
		submission.ColCountAdultDogs:  "1",
		submission.ColCountPuppies:    "1",
		submission.ColCountAdultCats:  "0",
		submission.ColCountKittens:    "0",
		submission.ColGeneratedPDFID:  "file-1",
		submission.ColGeneratedPDFURL: "https://files.example/file-1",
		submission.ColGeneratedAt:     "2025-03-07 09:05:00",
	} {
		if row[col] != v {
			t.Errorf("column %q = %q, want %q", col, row[col], v)
		}
	}

	if row[submission.ColRegeneratedPDFID] != "" {
		t.Errorf("regenerated columns must stay empty, got %q", row[submission.ColRegeneratedPDFID])
	}

	if len(f.renderer.jobs) != 1 {
		t.Fatalf("expected one render, got %d", len(f.renderer.jobs))
	}
	job := f.renderer.jobs[0]
	if job.OutputName != "PetPantryForm_Ada_Lovelace_20250307_0905" || job.FormID != "100000000543" {
		t.Fatalf("unexpected job %+v", job)
	}
	ph := job.Placeholders
	if ph["{{dogFood}}"] != "10 lbs of food" || ph["{{dryPuppy}}"] != "3 lbs" {
		t.Fatalf("unexpected recommendations %q %q", ph["{{dogFood}}"], ph["{{dryPuppy}}"])
	}
	if _, ok := ph["{{catFood}}"]; ok {
		t.Fatalf("cat food must be suppressed without cats")
	}
	if ph["{{FormID}}"] != "100000000543" || ph["{{puppyCount}}"] != "1" {
		t.Fatalf("unexpected merge map %v", ph)
	}

	records, _ := f.forms.ListByFormID(context.Background(), "100000000543")
	if len(records) != 1 || records[0].FileID != "file-1" || records[0].Regenerated {
		t.Fatalf("unexpected form records %+v", records)
	}
}

func TestGenerateSkipsExistingOutput(t *testing.T) {
	row := adaRow()
	f := newFixture(responseHeader, row)
	ctx := context.Background()
	if _, err := f.svc.Generate(ctx, 2, false); err != nil {
		t.Fatalf("first generate: %v", err)
	}

	res, err := f.svc.Generate(ctx, 2, false)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if !res.Skipped || res.FileID != "file-1" || res.FormID != "100000000543" {
		t.Fatalf("expected skip with existing output, got %+v", res)
	}
	if len(f.renderer.jobs) != 1 {
		t.Fatalf("renderer must not run on skip")
	}
}

func TestGenerateForceWritesRegeneratedColumns(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	ctx := context.Background()
	if _, err := f.svc.Generate(ctx, 2, false); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	res, err := f.svc.Generate(ctx, 2, true)
	if err != nil {
		t.Fatalf("forced generate: %v", err)
	}
	if !res.Regenerated || res.FileID != "file-2" || res.FormID != "100000000543" {
		t.Fatalf("unexpected result %+v", res)
	}
	row := f.row(t, 2)
	if row[submission.ColGeneratedPDFID] != "file-1" {
		t.Fatalf("original output must be kept, got %q", row[submission.ColGeneratedPDFID])
	}
	if row[submission.ColRegeneratedPDFID] != "file-2" || row[submission.ColLastRegeneratedAt] != "2025-03-07 09:05:00" {
		t.Fatalf("regenerated columns not written: %v", row)
	}
	records, _ := f.forms.ListByFormID(ctx, "100000000543")
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestGenerateForceOnFreshRowWritesGeneratedColumns(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	res, err := f.svc.Generate(context.Background(), 2, true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Regenerated {
		t.Fatalf("first output is never a regeneration")
	}
	if f.row(t, 2)[submission.ColGeneratedPDFID] != "file-1" {
		t.Fatalf("generated columns not written")
	}
}

func TestGenerateKeepsExistingFormID(t *testing.T) {
	row := adaRow()
	row[1] = "000000000042"
	f := newFixture(responseHeader, row)
	res, err := f.svc.Generate(context.Background(), 2, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.FormID != "000000000042" {
		t.Fatalf("expected existing id, got %q", res.FormID)
	}
	next, _ := f.svc.Sequence.Next(context.Background())
	if next != "100000000543" {
		t.Fatalf("sequence must not advance, next=%q", next)
	}
}

func TestGenerateRequiresFormIDColumn(t *testing.T) {
	header := slices.DeleteFunc(slices.Clone(responseHeader), func(h string) bool { return h == submission.ColFormID })
	row := adaRow()
	row = append(row[:1], row[2:]...)
	f := newFixture(header, row)
	_, err := f.svc.Generate(context.Background(), 2, false)
	if !errors.Is(err, ErrMissingFormIDColumn) {
		t.Fatalf("expected ErrMissingFormIDColumn, got %v", err)
	}
	if len(f.renderer.jobs) != 0 {
		t.Fatalf("renderer must not run")
	}
}

func TestGenerateWithoutCountColumns(t *testing.T) {
	header := responseHeader[:11]
	header = append(slices.Clone(header), submission.ColGeneratedPDFID, submission.ColGeneratedPDFURL, submission.ColGeneratedAt)
	f := newFixture(header, adaRow())
	if _, err := f.svc.Generate(context.Background(), 2, false); err != nil {
		t.Fatalf("generate: %v", err)
	}
	row := f.row(t, 2)
	if _, ok := row[submission.ColCountAdultDogs]; ok {
		t.Fatalf("count columns must not be created")
	}
	if row[submission.ColGeneratedPDFID] != "file-1" {
		t.Fatalf("generated id not written")
	}
}

func TestGenerateDegradesWithoutGuidelines(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	f.svc.Guidelines = tableSource{rows: [][]string{{"Item", "Notes"}}}

	res, err := f.svc.Generate(context.Background(), 2, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Recommendations != 0 || !slices.Contains(res.Warnings, "guidelines.unavailable") {
		t.Fatalf("expected degraded result, got %+v", res)
	}
	if _, ok := f.renderer.jobs[0].Placeholders["{{dogFood}}"]; ok {
		t.Fatalf("no recommendations expected")
	}
}

func TestGenerateRenderFailure(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	f.renderer.err = errors.New("drive quota")
	if _, err := f.svc.Generate(context.Background(), 2, false); err == nil {
		t.Fatalf("expected render error")
	}
	row := f.row(t, 2)
	if row[submission.ColGeneratedPDFID] != "" {
		t.Fatalf("no output must be recorded on failure")
	}
	if row[submission.ColFormID] != "100000000543" {
		t.Fatalf("assigned form id is kept for the retry, got %q", row[submission.ColFormID])
	}
}

func TestGenerateRejectsHeaderRow(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	if _, err := f.svc.Generate(context.Background(), 1, false); !errors.Is(err, sheets.ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange, got %v", err)
	}
}

func TestPreviewDoesNotWrite(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	ph, err := f.svc.Preview(context.Background(), 2)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if ph["{{fullName}}"] != "Ada Lovelace" || ph["{{dogFood}}"] != "10 lbs of food" {
		t.Fatalf("unexpected preview %v", ph)
	}
	if f.row(t, 2)[submission.ColFormID] != "" || len(f.renderer.jobs) != 0 {
		t.Fatalf("preview must not assign ids or render")
	}
}

func TestHandleSubmitFiltersEvents(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	ctx := context.Background()

	if _, handled := f.svc.HandleSubmit(ctx, Event{Sheet: "Archive", Row: 2}); handled {
		t.Fatalf("other sheets must be ignored")
	}
	if _, handled := f.svc.HandleSubmit(ctx, Event{Sheet: "Form Responses 1", Row: 1}); handled {
		t.Fatalf("header row must be ignored")
	}
	res, handled := f.svc.HandleSubmit(ctx, Event{Sheet: "Form Responses 1", Row: 2})
	if !handled || res.FileID != "file-1" {
		t.Fatalf("expected generation, got %+v", res)
	}
}

func TestHandleSubmitSwallowsErrors(t *testing.T) {
	f := newFixture(responseHeader, adaRow())
	f.renderer.err = errors.New("boom")
	res, handled := f.svc.HandleSubmit(context.Background(), Event{Row: 2})
	if !handled || !slices.Contains(res.Warnings, "generate.failed") {
		t.Fatalf("expected failure reported in result, got %+v", res)
	}
}

func TestPendingAndPoller(t *testing.T) {
	done := append(adaRow(), make([]string, 6)...)
	done[15], done[16] = "old", "https://files.example/old"
	blank := make([]string, 3)
	f := newFixture(responseHeader, adaRow(), done, blank, adaRow())

	rows, err := f.svc.Pending(context.Background())
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if diff := cmp.Diff([]int{2, 5}, rows); diff != "" {
		t.Fatalf("pending mismatch (-want +got):\n%s", diff)
	}

	p := &Poller{Service: f.svc}
	n, err := p.RunOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("expected 2 generated, got %d (%v)", n, err)
	}
	if f.row(t, 5)[submission.ColFormID] != "100000000544" {
		t.Fatalf("expected sequential ids, got %q", f.row(t, 5)[submission.ColFormID])
	}
	rows, _ = f.svc.Pending(context.Background())
	if len(rows) != 0 {
		t.Fatalf("expected nothing pending, got %v", rows)
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	f := newFixture(responseHeader)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- (&Poller{Service: f.svc, Interval: 10 * time.Millisecond}).Run(ctx) }()
	time.Sleep(25 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("poller did not stop")
	}
}
