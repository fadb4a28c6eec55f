package generate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/courseforge/courseforge/pkg/cachekey"
	"github.com/courseforge/courseforge/pkg/heuristics"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/models"
	"github.com/courseforge/courseforge/pkg/textclean"
)

var complexities = []string{"beginner", "intermediate", "advanced"}

const (
	titleSuggestions    = 5
	defaultModuleMins   = 15
	speakingWordsPerMin = 130
)

type structureKey struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	TargetAudience string `json:"targetAudience"`
	ScriptSample   string `json:"scriptSample"`
	Language       string `json:"language"`
}

// StructurePreview recommends a module structure for a course idea.
func (s *Service) StructurePreview(ctx context.Context, req models.StructureRequest) (*models.StructurePreview, error) {
	if err := required("title", req.Title); err != nil {
		return nil, err
	}
	lang := s.language(req.Language)
	sample := cachekey.Sample(req.Script)
	audience := heuristics.Audience.Resolve(req.TargetAudience, req.Title, cachekey.Sample(req.Description), sample)

	return run(ctx, s, job[models.StructurePreview]{
		op: models.OpStructure,
		params: structureKey{
			Title:          req.Title,
			Description:    cachekey.Sample(req.Description),
			TargetAudience: req.TargetAudience,
			ScriptSample:   sample,
			Language:       lang,
		},
		request: req,
		generate: func(ctx context.Context) (*models.StructurePreview, string, error) {
			p, provider, err := structured[models.StructurePreview](ctx, s, models.OpStructure, llm.StructuredRequest{
				System: structureSystem(lang, s.gen.MaxModules),
				User:   structureUser(req),
				Tool:   structureTool,
			})
			if err != nil {
				return nil, "", err
			}
			p.RecommendedModules = textclean.Clamp(p.RecommendedModules, 1, s.gen.MaxModules)
			if p.RecommendedDuration <= 0 {
				p.RecommendedDuration = p.RecommendedModules * defaultModuleMins
			}
			if !slices.Contains(complexities, p.Complexity) {
				p.Complexity = "intermediate"
			}
			p.TargetAudience = textclean.Clean(p.TargetAudience)
			if p.TargetAudience == "" {
				p.TargetAudience = audience
			}
			p.KeyTopics = textclean.CleanAll(p.KeyTopics)
			p.LearningObjectives = textclean.CleanAll(p.LearningObjectives)
			p.Suggestions = textclean.CleanAll(p.Suggestions)
			return p, provider, nil
		},
		finish: func(_ context.Context, p *models.StructurePreview, cached bool) {
			p.FromCache = cached
		},
	})
}

type titleKey struct {
	Title    string `json:"title"`
	Language string `json:"language"`
}

// Titles suggests alternative course titles.
func (s *Service) Titles(ctx context.Context, req models.TitleRequest) (*models.TitleSuggestions, error) {
	if err := required("title", req.Title); err != nil {
		return nil, err
	}
	lang := s.language(req.Language)

	return run(ctx, s, job[models.TitleSuggestions]{
		op:      models.OpTitles,
		params:  titleKey{Title: cachekey.Sample(req.Title), Language: lang},
		request: req,
		generate: func(ctx context.Context) (*models.TitleSuggestions, string, error) {
			t, provider, err := structured[models.TitleSuggestions](ctx, s, models.OpTitles, llm.StructuredRequest{
				System: titlesSystem(lang),
				User:   fmt.Sprintf("Original course title/topic: %q", req.Title),
				Tool:   titlesTool,
			})
			if err != nil {
				return nil, "", err
			}
			kept := t.Suggestions[:0]
			for _, sg := range t.Suggestions {
				sg.Title = textclean.Clean(sg.Title)
				sg.Explanation = textclean.Clean(sg.Explanation)
				if sg.Title == "" {
					continue
				}
				kept = append(kept, sg)
			}
			if len(kept) > titleSuggestions {
				kept = kept[:titleSuggestions]
			}
			for i := range kept {
				kept[i].ID = strconv.Itoa(i + 1)
			}
			t.Suggestions = kept
			if err := checkItems(provider, len(t.Suggestions), titleSuggestions, false); err != nil {
				return nil, "", err
			}
			return t, provider, nil
		},
		finish: func(_ context.Context, t *models.TitleSuggestions, cached bool) {
			t.FromCache = cached
		},
	})
}

type outlineKey struct {
	Title      string `json:"title"`
	NumModules int    `json:"numModules"`
	Language   string `json:"language"`
	Context    string `json:"context"`
}

// Outline generates a module outline for a course.
func (s *Service) Outline(ctx context.Context, req models.OutlineRequest) (*models.Outline, error) {
	if err := required("title", req.Title); err != nil {
		return nil, err
	}
	lang := s.language(req.Language)
	n := count(req.NumModules, 5, s.gen.MaxModules, false, 0)

	return run(ctx, s, job[models.Outline]{
		op: models.OpOutline,
		params: outlineKey{
			Title:      req.Title,
			NumModules: n,
			Language:   lang,
			Context:    cachekey.Sample(req.AdditionalContext),
		},
		request: req,
		generate: func(ctx context.Context) (*models.Outline, string, error) {
			o, provider, err := structured[models.Outline](ctx, s, models.OpOutline, llm.StructuredRequest{
				System:    outlineSystem(lang, n),
				User:      fmt.Sprintf("Course title: %q%s", req.Title, contextSuffix(req.AdditionalContext)),
				Tool:      outlineTool,
				MaxTokens: 6000,
			})
			if err != nil {
				return nil, "", err
			}
			shapeOutline(o, n)
			if err := checkItems(provider, len(o.Modules), n, false); err != nil {
				return nil, "", err
			}
			return o, provider, nil
		},
		finish: func(_ context.Context, o *models.Outline, cached bool) {
			o.FromCache = cached
		},
	})
}

func shapeOutline(o *models.Outline, n int) {
	if len(o.Modules) > n {
		o.Modules = o.Modules[:n]
	}
	sum := 0
	for i := range o.Modules {
		m := &o.Modules[i]
		m.ID = fmt.Sprintf("module-%d", i+1)
		m.Title = textclean.Clean(m.Title)
		m.Description = textclean.Clean(m.Description)
		m.KeyTopics = textclean.CleanAll(m.KeyTopics)
		if m.EstimatedDuration <= 0 {
			m.EstimatedDuration = defaultModuleMins
		}
		sum += m.EstimatedDuration
	}
	if o.Modules == nil {
		o.Modules = []models.OutlineModule{}
	}
	if o.TotalDuration <= 0 {
		o.TotalDuration = sum
	}
}

type scriptKey struct {
	ModuleTitle    string `json:"moduleTitle"`
	Description    string `json:"description"`
	CourseTitle    string `json:"courseTitle"`
	Language       string `json:"language"`
	TargetDuration int    `json:"targetDuration"`
	Tone           string `json:"tone"`
	Context        string `json:"context"`
}

// Script writes the narration script for one module.
func (s *Service) Script(ctx context.Context, req models.ScriptRequest) (*models.Script, error) {
	if err := required("moduleTitle", req.ModuleTitle); err != nil {
		return nil, err
	}
	lang := s.language(req.Language)
	minutes := req.TargetDuration
	if minutes <= 0 {
		minutes = 10
	}
	minutes = textclean.Clamp(minutes, 1, 120)
	tone := heuristics.Tone.Resolve(req.Tone, req.ModuleTitle, req.ModuleDescription)
	if _, ok := toneGuidance[tone]; !ok {
		tone = "professional"
	}

	return run(ctx, s, job[models.Script]{
		op: models.OpScript,
		params: scriptKey{
			ModuleTitle:    req.ModuleTitle,
			Description:    cachekey.Sample(req.ModuleDescription),
			CourseTitle:    req.CourseTitle,
			Language:       lang,
			TargetDuration: minutes,
			Tone:           tone,
			Context:        cachekey.Sample(req.AdditionalContext),
		},
		request: req,
		generate: func(ctx context.Context) (*models.Script, string, error) {
			user := fmt.Sprintf("Module title: %q\nModule description: %s\nCourse: %q%s",
				req.ModuleTitle, req.ModuleDescription, req.CourseTitle, contextSuffix(req.AdditionalContext))
			sc, provider, err := structured[models.Script](ctx, s, models.OpScript, llm.StructuredRequest{
				System:    scriptSystem(lang, minutes, tone),
				User:      user,
				Tool:      scriptTool,
				MaxTokens: 8000,
			})
			if err != nil {
				return nil, "", err
			}
			shapeScript(sc, req.ModuleTitle)
			if err := checkItems(provider, len(sc.Sections), 0, false); err != nil {
				return nil, "", err
			}
			return sc, provider, nil
		},
		finish: func(_ context.Context, sc *models.Script, cached bool) {
			sc.FromCache = cached
		},
	})
}

func shapeScript(sc *models.Script, moduleTitle string) {
	if sc.ModuleID == "" {
		sc.ModuleID = "module-1"
	}
	sc.ModuleTitle = textclean.Clean(sc.ModuleTitle)
	if sc.ModuleTitle == "" {
		sc.ModuleTitle = moduleTitle
	}
	words := 0
	for i := range sc.Sections {
		sec := &sc.Sections[i]
		sec.ID = fmt.Sprintf("section-%d", i+1)
		sec.Title = textclean.Clean(sec.Title)
		sec.Content = textclean.Clean(sec.Content)
		sec.SlideMarkers = textclean.CleanAll(sec.SlideMarkers)
		words += textclean.WordCount(sec.Content)
	}
	if sc.Sections == nil {
		sc.Sections = []models.ScriptSection{}
	}
	sc.TotalWords = words
	if sc.EstimatedDuration <= 0 {
		sc.EstimatedDuration = int(math.Ceil(float64(words) / speakingWordsPerMin))
	}
	cites := sc.Citations[:0]
	for _, c := range sc.Citations {
		if c = strings.TrimSpace(c); c != "" {
			cites = append(cites, c)
		}
	}
	sc.Citations = cites
	if sc.Citations == nil {
		sc.Citations = []string{}
	}
}
