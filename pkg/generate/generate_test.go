package generate

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/cache"
	"github.com/courseforge/courseforge/pkg/cache/sqlite"
	"github.com/courseforge/courseforge/pkg/config"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/models"
	"github.com/courseforge/courseforge/pkg/photos"
)

type fakeBackend struct {
	mu       sync.Mutex
	args     map[string]string
	err      error
	images   []llm.Image
	calls    int
	requests []llm.StructuredRequest
}

func (f *fakeBackend) Structured(_ context.Context, op string, req llm.StructuredRequest) (llm.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Arguments: json.RawMessage(f.args[op]), Provider: "fake"}, nil
}

func (f *fakeBackend) Image(_ context.Context, _ string, req llm.ImageRequest) (llm.ImageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.ImageResult{}, f.err
	}
	return llm.ImageResult{Images: f.images, Provider: "fake"}, nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePhotos struct{}

func (fakePhotos) Name() string { return "fake" }

func (fakePhotos) Search(_ context.Context, query string, _ int) ([]photos.Photo, error) {
	return []photos.Photo{{
		ID:           "p1",
		URL:          "https://img.example/" + strings.ReplaceAll(query, " ", "-") + ".jpg",
		Photographer: "Ana",
		Source:       "unsplash",
	}}, nil
}

func newTestService(t *testing.T, backend Backend, ph photos.Searcher) (*Service, *cache.Cache) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	c := cache.New(store)
	t.Cleanup(func() { c.Close() })
	return New(config.Default(), backend, c, ph), c
}

const markdownDeck = `{
  "presentationTitle": "## **Patient Safety**",
  "slides": [
    {"title": "**Why** it matters", "content": "Errors harm _patients_.\nMost are preventable.", "speakerNotes": "# Intro", "layout": "title"},
    {"title": "Identify", "content": ["Use two identifiers", "Check the *wristband*"], "speakerNotes": "Talk", "layout": "bullet-points"},
    {"title": "Report", "content": "Report every incident. Learn from it.", "speakerNotes": "", "layout": "nonsense", "suggestedImageQuery": "incident report"},
    {"title": "Extra 1", "content": "x", "speakerNotes": "", "layout": "quote"},
    {"title": "Extra 2", "content": "y", "speakerNotes": "", "layout": "quote"}
  ]
}`

func TestSlidesDemoMode(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpSlides: markdownDeck}}
	svc, _ := newTestService(t, backend, nil)

	deck, err := svc.Slides(context.Background(), models.SlideRequest{
		Topic:     "Patient Safety",
		Verbosity: "concise",
		NumSlides: 50,
		DemoMode:  true,
	})
	if err != nil {
		t.Fatalf("Slides: %v", err)
	}
	if deck.SlideCount != 3 || len(deck.Slides) != 3 {
		t.Fatalf("expected 3 slides, got %d (%d)", deck.SlideCount, len(deck.Slides))
	}
	if deck.PresentationTitle != "Patient Safety" {
		t.Errorf("expected cleaned title, got %q", deck.PresentationTitle)
	}
	for i, sl := range deck.Slides {
		if sl.SlideNumber != i+1 {
			t.Errorf("slide %d: expected number %d, got %d", i, i+1, sl.SlideNumber)
		}
		texts := append([]string{sl.Title, sl.Content, sl.SpeakerNotes}, sl.Bullets...)
		for _, txt := range texts {
			if strings.ContainsAny(txt, "*#_") {
				t.Errorf("slide %d: markdown left in %q", i+1, txt)
			}
		}
	}
	if got := deck.Slides[1].Content; got != "Use two identifiers\nCheck the wristband" {
		t.Errorf("expected joined list content, got %q", got)
	}
	if len(deck.Slides[1].Bullets) != 2 {
		t.Errorf("expected bullets backfilled from lines, got %v", deck.Slides[1].Bullets)
	}
	if deck.Slides[2].Layout != "title-content" {
		t.Errorf("expected unknown layout replaced, got %q", deck.Slides[2].Layout)
	}
	if deck.Industry != "healthcare" {
		t.Errorf("expected healthcare industry, got %q", deck.Industry)
	}
	if !strings.Contains(backend.requests[0].System, " 3 slides") {
		t.Errorf("expected demo count in prompt, got %q", backend.requests[0].System)
	}
	if backend.requests[0].Tool.Name != slidesTool.Name {
		t.Errorf("expected forced tool %s, got %s", slidesTool.Name, backend.requests[0].Tool.Name)
	}
}

func TestSlidesClampsCount(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpSlides: markdownDeck}}
	svc, _ := newTestService(t, backend, nil)

	if _, err := svc.Slides(context.Background(), models.SlideRequest{
		ModuleTitle: "M1",
		Script:      "Some script.",
		NumSlides:   500,
		Language:    "sv",
	}); err != nil {
		t.Fatal(err)
	}
	sys := backend.requests[0].System
	if !strings.Contains(sys, "Skapa exakt 30 slides") {
		t.Errorf("expected clamped Swedish prompt, got %q", sys)
	}
}

func TestSlidesPhotosNotCached(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpSlides: markdownDeck}}
	svc, c := newTestService(t, backend, fakePhotos{})
	req := models.SlideRequest{ModuleTitle: "M1", Script: "Script", NumSlides: 3}

	var tr Trace
	first, err := svc.Slides(WithTrace(context.Background(), &tr), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.Slides[2].ImageURL != "https://img.example/incident-report.jpg" {
		t.Errorf("expected photo from query, got %q", first.Slides[2].ImageURL)
	}
	if first.Slides[0].ImageAttribution != "Photo by Ana on unsplash" {
		t.Errorf("unexpected attribution %q", first.Slides[0].ImageAttribution)
	}

	raw, ok := c.Get(context.Background(), tr.CacheKey)
	if !ok {
		t.Fatal("expected deck to be cached")
	}
	if strings.Contains(string(raw), "imageUrl") {
		t.Errorf("expected image fields stripped from cache, got %s", raw)
	}

	second, err := svc.Slides(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache {
		t.Error("expected second call from cache")
	}
	if second.Slides[2].ImageURL == "" {
		t.Error("expected photos re-attached on cache hit")
	}
	if backend.callCount() != 1 {
		t.Errorf("expected 1 provider call, got %d", backend.callCount())
	}
}

func TestSlidesRequiresInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{}, nil)
	_, err := svc.Slides(context.Background(), models.SlideRequest{})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeInvalidRequest {
		t.Errorf("expected invalid_request, got %v", err)
	}
}

const exercisesArgs = `{"exercises":[
  {"type":"multiple-choice","question":"**Q1**","options":["a","b"],"correctAnswer":"a","explanation":"e"},
  {"type":"open","question":"Q2","correctAnswer":"x","explanation":"e","points":5},
  {"type":"true-false","question":"Q3","options":["True","False"],"correctAnswer":"True","explanation":"e"},
  {"type":"open","question":"Q4","correctAnswer":"x","explanation":"e"}
]}`

func TestExercisesServedFromCache(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpExercises: exercisesArgs}}
	svc, c := newTestService(t, backend, nil)
	script := strings.Repeat("Hand hygiene prevents infections. ", 40)
	req := models.ExerciseRequest{ModuleTitle: "M1", Script: script, ExerciseCount: 3}

	first, err := svc.Exercises(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if first.FromCache {
		t.Error("expected first call to miss")
	}
	if len(first.Exercises) != 3 {
		t.Fatalf("expected 3 exercises, got %d", len(first.Exercises))
	}
	if first.Exercises[0].Question != "Q1" || first.Exercises[0].ID == "" {
		t.Errorf("unexpected first exercise: %+v", first.Exercises[0])
	}
	if first.TotalPoints != 25 {
		t.Errorf("expected 25 points, got %d", first.TotalPoints)
	}

	// Same first 500 runes, different tail.
	req.Script = script + "A completely different ending."
	second, err := svc.Exercises(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache {
		t.Error("expected second call from cache")
	}
	if second.Exercises[0].ID != first.Exercises[0].ID {
		t.Errorf("expected cached IDs, got %s and %s", first.Exercises[0].ID, second.Exercises[0].ID)
	}
	if backend.callCount() != 1 {
		t.Errorf("expected provider invoked once, got %d", backend.callCount())
	}

	c.Wait()
	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalHits != 1 {
		t.Errorf("expected 1 stored hit, got %d", stats.TotalHits)
	}
}

func TestExercisesDemoMode(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpExercises: exercisesArgs}}
	svc, _ := newTestService(t, backend, nil)

	set, err := svc.Exercises(context.Background(), models.ExerciseRequest{ModuleTitle: "M", Script: "S", ExerciseCount: 9, DemoMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Exercises) != 2 {
		t.Errorf("expected 2 demo exercises, got %d", len(set.Exercises))
	}
}

func TestRateLimitIsRetryableAndNotCached(t *testing.T) {
	backend := &fakeBackend{err: apierr.FromStatus("gateway", 429, "slow down")}
	svc, _ := newTestService(t, backend, nil)
	req := models.ExerciseRequest{ModuleTitle: "M1", Script: "S"}

	for i := 0; i < 2; i++ {
		_, err := svc.Exercises(context.Background(), req)
		var e *apierr.Error
		if !errors.As(err, &e) {
			t.Fatalf("expected apierr.Error, got %v", err)
		}
		if e.Code != apierr.CodeRateLimited || !e.Retryable {
			t.Errorf("expected retryable rate_limited, got %s retryable=%v", e.Code, e.Retryable)
		}
	}
	if backend.callCount() != 2 {
		t.Errorf("expected failures not cached, got %d calls", backend.callCount())
	}
}

func TestMalformedArguments(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpSlides: `{"slides":"not a list"}`}}
	svc, _ := newTestService(t, backend, nil)

	_, err := svc.Slides(context.Background(), models.SlideRequest{ModuleTitle: "M", Script: "S"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeMalformedResponse {
		t.Errorf("expected malformed_response, got %v", err)
	}
}

func TestQuizPassingScore(t *testing.T) {
	args := `{"quizTitle":"","questions":[
	  {"type":"multiple-choice","question":"Q1","options":["a","b"],"correctAnswer":"a","explanation":"e","points":3,"difficulty":"easy"},
	  {"type":"true-false","question":"Q2","correctAnswer":"True","explanation":"e","points":9},
	  {"type":"open","question":"dropped","correctAnswer":"x","explanation":"e","points":2}
	]}`
	backend := &fakeBackend{args: map[string]string{models.OpQuiz: args}}
	svc, _ := newTestService(t, backend, nil)

	q, err := svc.Quiz(context.Background(), models.QuizRequest{ModuleTitle: "Hygiene", Script: "S"})
	if err != nil {
		t.Fatal(err)
	}
	if len(q.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(q.Questions))
	}
	if q.TotalPoints != 8 {
		t.Errorf("expected 8 points after clamping, got %d", q.TotalPoints)
	}
	if q.PassingScore != 6 {
		t.Errorf("expected passing score 6, got %d", q.PassingScore)
	}
	if q.QuizTitle != "Quiz: Hygiene" {
		t.Errorf("unexpected title %q", q.QuizTitle)
	}
	if len(q.Questions[1].Options) != 2 {
		t.Errorf("expected true/false options backfilled, got %v", q.Questions[1].Options)
	}
}

func TestQuizRequiresAType(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{}, nil)
	no := false
	_, err := svc.Quiz(context.Background(), models.QuizRequest{
		ModuleTitle: "M", Script: "S", IncludeMultipleChoice: &no, IncludeTrueFalse: &no,
	})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeInvalidRequest {
		t.Errorf("expected invalid_request, got %v", err)
	}
}

func TestStructurePreview(t *testing.T) {
	args := `{"recommendedModules":40,"recommendedDuration":0,"complexity":"hard","keyTopics":["**A**","B"],"learningObjectives":["L"]}`
	backend := &fakeBackend{args: map[string]string{models.OpStructure: args}}
	svc, _ := newTestService(t, backend, nil)

	p, err := svc.StructurePreview(context.Background(), models.StructureRequest{Title: "Ledarskap för chefer"})
	if err != nil {
		t.Fatal(err)
	}
	if p.RecommendedModules != 12 {
		t.Errorf("expected modules clamped to 12, got %d", p.RecommendedModules)
	}
	if p.RecommendedDuration != 180 {
		t.Errorf("expected derived duration 180, got %d", p.RecommendedDuration)
	}
	if p.Complexity != "intermediate" {
		t.Errorf("expected complexity default, got %q", p.Complexity)
	}
	if p.TargetAudience != "executives" {
		t.Errorf("expected inferred audience, got %q", p.TargetAudience)
	}
	if p.KeyTopics[0] != "A" {
		t.Errorf("expected cleaned topic, got %q", p.KeyTopics[0])
	}
}

func TestTitles(t *testing.T) {
	args := `{"suggestions":[{"title":"A","explanation":"x"},{"title":"","explanation":"x"},{"title":"B","explanation":"x"},
	  {"title":"C","explanation":"x"},{"title":"D","explanation":"x"},{"title":"E","explanation":"x"},{"title":"F","explanation":"x"}]}`
	backend := &fakeBackend{args: map[string]string{models.OpTitles: args}}
	svc, _ := newTestService(t, backend, nil)

	ts, err := svc.Titles(context.Background(), models.TitleRequest{Title: "Hygiene"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ts.Suggestions) != 5 {
		t.Fatalf("expected 5 suggestions, got %d", len(ts.Suggestions))
	}
	if ts.Suggestions[1].Title != "B" || ts.Suggestions[1].ID != "2" {
		t.Errorf("unexpected second suggestion: %+v", ts.Suggestions[1])
	}
}

func TestOutlineTotals(t *testing.T) {
	args := `{"modules":[{"title":"One","description":"d","estimatedDuration":20,"keyTopics":["a"]},
	  {"title":"Two","description":"d","estimatedDuration":0,"keyTopics":["b"]}]}`
	backend := &fakeBackend{args: map[string]string{models.OpOutline: args}}
	svc, _ := newTestService(t, backend, nil)

	o, err := svc.Outline(context.Background(), models.OutlineRequest{Title: "Course", NumModules: 2})
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalDuration != 35 {
		t.Errorf("expected total 35, got %d", o.TotalDuration)
	}
	if o.Modules[1].ID != "module-2" {
		t.Errorf("expected module-2, got %s", o.Modules[1].ID)
	}
	if backend.requests[0].MaxTokens != 6000 {
		t.Errorf("expected 6000 max tokens, got %d", backend.requests[0].MaxTokens)
	}
}

func TestScriptWordCount(t *testing.T) {
	args := `{"moduleTitle":"","sections":[{"title":"Intro","content":"**Welcome** to the module","slideMarkers":["Welcome"]},
	  {"title":"Body","content":"one two three","slideMarkers":[]}],"totalWords":9999,"citations":[" ","Source"]}`
	backend := &fakeBackend{args: map[string]string{models.OpScript: args}}
	svc, _ := newTestService(t, backend, nil)

	sc, err := svc.Script(context.Background(), models.ScriptRequest{ModuleTitle: "Intro module"})
	if err != nil {
		t.Fatal(err)
	}
	if sc.TotalWords != 7 {
		t.Errorf("expected 7 words, got %d", sc.TotalWords)
	}
	if sc.EstimatedDuration != 1 {
		t.Errorf("expected 1 minute, got %d", sc.EstimatedDuration)
	}
	if sc.ModuleTitle != "Intro module" {
		t.Errorf("expected request title, got %q", sc.ModuleTitle)
	}
	if len(sc.Citations) != 1 {
		t.Errorf("expected blank citation dropped, got %v", sc.Citations)
	}
}

func TestImages(t *testing.T) {
	backend := &fakeBackend{images: []llm.Image{{B64: "aGk=", MimeType: "image/png"}, {URL: "https://x/1.png"}, {B64: "b"}}}
	svc, c := newTestService(t, backend, nil)

	set, err := svc.Images(context.Background(), models.ImageRequest{Prompt: "Incident reporting", Count: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(set.Images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(set.Images))
	}
	if set.Mood != "serious" {
		t.Errorf("expected serious mood, got %q", set.Mood)
	}
	if !strings.Contains(set.Images[0].Prompt, "Mood: serious") {
		t.Errorf("expected mood in prompt, got %q", set.Images[0].Prompt)
	}

	entries, err := c.List(context.Background(), 1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected cached image set, got %v %v", entries, err)
	}
	if ttl := entries[0].ExpiresAt.Sub(entries[0].CreatedAt); ttl > hostedImageTTL {
		t.Errorf("expected hosted image TTL capped, got %s", ttl)
	}
}

func TestDispatch(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpTitles: `{"suggestions":[{"title":"A","explanation":"x"}]}`}}
	svc, _ := newTestService(t, backend, nil)

	out, err := svc.Dispatch(context.Background(), models.OpTitles, []byte(`{"title":"Hygiene"}`))
	if err != nil {
		t.Fatal(err)
	}
	if ts, ok := out.(*models.TitleSuggestions); !ok || len(ts.Suggestions) != 1 {
		t.Errorf("unexpected dispatch result %#v", out)
	}

	_, err = svc.Dispatch(context.Background(), "nope", nil)
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeInvalidRequest {
		t.Errorf("expected invalid_request for unknown operation, got %v", err)
	}

	_, err = svc.Dispatch(context.Background(), models.OpTitles, []byte(`{`))
	if !errors.As(err, &e) || e.Code != apierr.CodeInvalidRequest {
		t.Errorf("expected invalid_request for bad JSON, got %v", err)
	}
}

func TestTraceRecordsCacheHit(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpTitles: `{"suggestions":[{"title":"A","explanation":"x"}]}`}}
	svc, _ := newTestService(t, backend, nil)
	req := models.TitleRequest{Title: "Hygiene"}

	var first, second Trace
	if _, err := svc.Titles(WithTrace(context.Background(), &first), req); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Titles(WithTrace(context.Background(), &second), req); err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || first.Provider != "fake" {
		t.Errorf("unexpected first trace %+v", first)
	}
	if !second.CacheHit || second.CacheKey != first.CacheKey || second.Operation != models.OpTitles {
		t.Errorf("unexpected second trace %+v", second)
	}
}

func TestEmptyToolCallNotCached(t *testing.T) {
	for _, tc := range []struct {
		name string
		args map[string]string
		call func(*Service) error
	}{
		{"slides object", map[string]string{models.OpSlides: `{}`}, func(s *Service) error {
			_, err := s.Slides(context.Background(), models.SlideRequest{ModuleTitle: "M", Script: "S"})
			return err
		}},
		{"slides list", map[string]string{models.OpSlides: `{"slides":[]}`}, func(s *Service) error {
			_, err := s.Slides(context.Background(), models.SlideRequest{ModuleTitle: "M", Script: "S"})
			return err
		}},
		{"exercises", map[string]string{models.OpExercises: `{"exercises":[]}`}, func(s *Service) error {
			_, err := s.Exercises(context.Background(), models.ExerciseRequest{ModuleTitle: "M", Script: "S"})
			return err
		}},
		{"quiz filtered", map[string]string{models.OpQuiz: `{"questions":[{"type":"open","question":"Q"}]}`}, func(s *Service) error {
			_, err := s.Quiz(context.Background(), models.QuizRequest{ModuleTitle: "M", Script: "S"})
			return err
		}},
		{"titles blank", map[string]string{models.OpTitles: `{"suggestions":[{"title":" "}]}`}, func(s *Service) error {
			_, err := s.Titles(context.Background(), models.TitleRequest{Title: "T"})
			return err
		}},
		{"outline", map[string]string{models.OpOutline: `{}`}, func(s *Service) error {
			_, err := s.Outline(context.Background(), models.OutlineRequest{Title: "T"})
			return err
		}},
		{"script", map[string]string{models.OpScript: `{"sections":[]}`}, func(s *Service) error {
			_, err := s.Script(context.Background(), models.ScriptRequest{ModuleTitle: "M"})
			return err
		}},
		{"images", nil, func(s *Service) error {
			_, err := s.Images(context.Background(), models.ImageRequest{Prompt: "P"})
			return err
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{args: tc.args}
			svc, c := newTestService(t, backend, nil)

			for i := 0; i < 2; i++ {
				err := tc.call(svc)
				var e *apierr.Error
				if !errors.As(err, &e) || e.Code != apierr.CodeMalformedResponse {
					t.Fatalf("call %d: expected malformed_response, got %v", i+1, err)
				}
				if !errors.Is(err, errNoItems) {
					t.Errorf("call %d: expected errNoItems, got %v", i+1, err)
				}
			}
			if backend.callCount() != 2 {
				t.Errorf("expected 2 provider calls, got %d", backend.callCount())
			}
			stats, err := c.Stats(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if stats.Entries != 0 {
				t.Errorf("expected nothing cached, got %d entries", stats.Entries)
			}
		})
	}
}

func TestDemoModeShortfallNotCached(t *testing.T) {
	short := `{"slides":[{"title":"Only one","content":"x"}]}`
	backend := &fakeBackend{args: map[string]string{models.OpSlides: short}}
	svc, c := newTestService(t, backend, nil)

	_, err := svc.Slides(context.Background(), models.SlideRequest{Topic: "T", DemoMode: true})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeMalformedResponse {
		t.Fatalf("expected malformed_response, got %v", err)
	}
	if !strings.Contains(err.Error(), "needs 3 items, got 1") {
		t.Errorf("unexpected error text %q", err.Error())
	}
	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("expected nothing cached, got %d entries", stats.Entries)
	}

	deck, err := svc.Slides(context.Background(), models.SlideRequest{Topic: "T", NumSlides: 5})
	if err != nil {
		t.Fatalf("expected short deck accepted outside demo mode, got %v", err)
	}
	if deck.SlideCount != 1 {
		t.Errorf("expected 1 slide, got %d", deck.SlideCount)
	}
}

func TestReview(t *testing.T) {
	args := `{"improvedContent":"  Wash your hands before every patient.  ","changesMade":["**Shorter** sentence"," "]}`
	backend := &fakeBackend{args: map[string]string{models.OpReview: args}}
	svc, _ := newTestService(t, backend, nil)

	r, err := svc.Review(context.Background(), models.ReviewRequest{
		Content:  "It is important that hands are washed by staff prior to each patient contact.",
		Action:   "fix_grammar",
		Context:  "Hygiene course",
		Language: "en",
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Action != "fix-grammar" {
		t.Errorf("expected fix-grammar, got %q", r.Action)
	}
	if r.ImprovedContent != "Wash your hands before every patient." {
		t.Errorf("unexpected content %q", r.ImprovedContent)
	}
	if len(r.ChangesMade) != 1 || r.ChangesMade[0] != "Shorter sentence" {
		t.Errorf("unexpected changes %v", r.ChangesMade)
	}
	if r.Suggestions == nil {
		t.Error("expected empty suggestions, got nil")
	}
	sys := backend.requests[0].System
	if !strings.Contains(sys, reviewActions["fix-grammar"]) || !strings.Contains(sys, "review_content") {
		t.Errorf("unexpected system prompt %q", sys)
	}
	if !strings.Contains(backend.requests[0].User, "Additional context: Hygiene course") {
		t.Errorf("expected context in prompt, got %q", backend.requests[0].User)
	}

	unknown, err := svc.Review(context.Background(), models.ReviewRequest{Content: "Other text", Action: "rewrite"})
	if err != nil {
		t.Fatal(err)
	}
	if unknown.Action != "improve" {
		t.Errorf("expected unknown action to fall back to improve, got %q", unknown.Action)
	}
}

func TestReviewKeysOnFullContent(t *testing.T) {
	args := `{"improvedContent":"Edited","changesMade":["x"]}`
	backend := &fakeBackend{args: map[string]string{models.OpReview: args}}
	svc, _ := newTestService(t, backend, nil)
	head := strings.Repeat("Hand hygiene prevents infections. ", 40)

	for _, tail := range []string{"First ending.", "Second ending.", "First ending."} {
		if _, err := svc.Review(context.Background(), models.ReviewRequest{Content: head + tail}); err != nil {
			t.Fatal(err)
		}
	}
	if backend.callCount() != 2 {
		t.Errorf("expected 2 provider calls, got %d", backend.callCount())
	}
}

func TestTranslate(t *testing.T) {
	args := `{"translatedContent":"Wash your hands.","detectedLanguage":"SV"}`
	backend := &fakeBackend{args: map[string]string{models.OpTranslate: args}}
	svc, _ := newTestService(t, backend, nil)

	tr, err := svc.Translate(context.Background(), models.TranslateRequest{Content: "Tvätta händerna.", TargetLanguage: " EN ", SourceLanguage: "auto"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.TranslatedContent != "Wash your hands." || tr.TargetLanguage != "en" || tr.DetectedLanguage != "sv" {
		t.Errorf("unexpected translation %+v", tr)
	}
	if strings.Contains(backend.requests[0].System, "from the language") {
		t.Errorf("expected no source language for auto, got %q", backend.requests[0].System)
	}

	tr, err = svc.Translate(context.Background(), models.TranslateRequest{Content: "Tvätta händerna.", TargetLanguage: "de", SourceLanguage: "da"})
	if err != nil {
		t.Fatal(err)
	}
	if tr.DetectedLanguage != "da" {
		t.Errorf("expected given source language reported, got %q", tr.DetectedLanguage)
	}
	if !strings.Contains(backend.requests[1].System, `from the language with code "da"`) {
		t.Errorf("expected source in prompt, got %q", backend.requests[1].System)
	}

	_, err = svc.Translate(context.Background(), models.TranslateRequest{Content: "x"})
	var e *apierr.Error
	if !errors.As(err, &e) || e.Code != apierr.CodeInvalidRequest {
		t.Errorf("expected invalid_request without target, got %v", err)
	}
}

func TestTranslateEmptyResultNotCached(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{models.OpTranslate: `{"translatedContent":"  "}`}}
	svc, _ := newTestService(t, backend, nil)
	req := models.TranslateRequest{Content: "Hej", TargetLanguage: "en"}

	for i := 0; i < 2; i++ {
		_, err := svc.Translate(context.Background(), req)
		if !errors.Is(err, errNoItems) {
			t.Fatalf("expected errNoItems, got %v", err)
		}
	}
	if backend.callCount() != 2 {
		t.Errorf("expected 2 provider calls, got %d", backend.callCount())
	}
}

func TestEnhanceSlide(t *testing.T) {
	args := `{"enhancedContent":"**Clean** hands save lives.","improvedTitle":"Hygiene","suggestions":["Add a chart"]}`
	backend := &fakeBackend{args: map[string]string{models.OpEnhance: args}}
	svc, _ := newTestService(t, backend, nil)

	e, err := svc.EnhanceSlide(context.Background(), models.EnhanceSlideRequest{
		SlideTitle:      "Hygiene",
		SlideContent:    "Wash hands.",
		EnhancementType: "ADD_DATA",
		Language:        "sv",
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.EnhancementType != "add-data" {
		t.Errorf("expected add-data, got %q", e.EnhancementType)
	}
	if e.EnhancedContent != "Clean hands save lives." {
		t.Errorf("expected cleaned content, got %q", e.EnhancedContent)
	}
	if e.ImprovedTitle != "" {
		t.Errorf("expected unchanged title dropped, got %q", e.ImprovedTitle)
	}
	if !strings.Contains(backend.requests[0].System, "statistik") {
		t.Errorf("expected Swedish add-data instruction, got %q", backend.requests[0].System)
	}

	_, err = svc.EnhanceSlide(context.Background(), models.EnhanceSlideRequest{})
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Code != apierr.CodeInvalidRequest {
		t.Errorf("expected invalid_request, got %v", err)
	}
}

func TestDispatchEditingOperations(t *testing.T) {
	backend := &fakeBackend{args: map[string]string{
		models.OpReview:    `{"improvedContent":"A","changesMade":[]}`,
		models.OpTranslate: `{"translatedContent":"B"}`,
		models.OpEnhance:   `{"enhancedContent":"C","suggestions":[]}`,
	}}
	svc, _ := newTestService(t, backend, nil)
	ctx := context.Background()

	out, err := svc.Dispatch(ctx, models.OpReview, []byte(`{"content":"a"}`))
	if r, ok := out.(*models.Review); err != nil || !ok || r.ImprovedContent != "A" {
		t.Errorf("unexpected review result %#v %v", out, err)
	}
	out, err = svc.Dispatch(ctx, models.OpTranslate, []byte(`{"content":"b","targetLanguage":"en"}`))
	if tr, ok := out.(*models.Translation); err != nil || !ok || tr.TranslatedContent != "B" {
		t.Errorf("unexpected translate result %#v %v", out, err)
	}
	out, err = svc.Dispatch(ctx, models.OpEnhance, []byte(`{"slideTitle":"c"}`))
	if e, ok := out.(*models.SlideEnhancement); err != nil || !ok || e.EnhancedContent != "C" {
		t.Errorf("unexpected enhance result %#v %v", out, err)
	}
}
