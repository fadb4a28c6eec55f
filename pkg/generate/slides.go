package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/cachekey"
	"github.com/courseforge/courseforge/pkg/heuristics"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/models"
	"github.com/courseforge/courseforge/pkg/textclean"
)

// flexText accepts a JSON string or an array of strings. Models sometimes
// return slide content as a list.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []any
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if s, ok := it.(string); ok {
				parts = append(parts, s)
			}
		}
		*f = flexText(strings.Join(parts, "\n"))
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexText(s)
	return nil
}

type wireSlide struct {
	SlideNumber         int      `json:"slideNumber"`
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle"`
	Content             flexText `json:"content"`
	Bullets             []string `json:"bullets"`
	SpeakerNotes        flexText `json:"speakerNotes"`
	Layout              string   `json:"layout"`
	SuggestedImageQuery string   `json:"suggestedImageQuery"`
}

type wireDeck struct {
	PresentationTitle string      `json:"presentationTitle"`
	Slides            []wireSlide `json:"slides"`
}

// slideKey is the part of a slide request that identifies it in the cache.
type slideKey struct {
	ModuleTitle  string `json:"moduleTitle"`
	CourseTitle  string `json:"courseTitle"`
	Topic        string `json:"topic"`
	ScriptSample string `json:"scriptSample"`
	NumSlides    int    `json:"numSlides"`
	Language     string `json:"language"`
	Tone         string `json:"tone"`
	Verbosity    string `json:"verbosity"`
	Industry     string `json:"industry"`
	Audience     string `json:"audience"`
	TitleSlide   bool   `json:"titleSlide"`
	Agenda       bool   `json:"agenda"`
	DemoMode     bool   `json:"demoMode"`
}

// Slides generates a slide deck from a module script.
func (s *Service) Slides(ctx context.Context, req models.SlideRequest) (*models.SlideDeck, error) {
	if strings.TrimSpace(req.Script) == "" && strings.TrimSpace(req.Topic) == "" {
		return nil, apierr.Invalid("script or topic is required")
	}
	if strings.TrimSpace(req.ModuleTitle) == "" {
		req.ModuleTitle = req.Topic
	}

	sample := cachekey.Sample(req.Script)
	verbosity := strings.ToLower(req.Verbosity)
	if _, ok := verbosityGuidance[verbosity]; !ok {
		verbosity = "standard"
	}
	p := slidePrompt{
		req:       req,
		lang:      s.language(req.Language),
		count:     count(req.NumSlides, 10, s.gen.MaxSlides, req.DemoMode, s.gen.DemoSlides),
		verbosity: verbosity,
		tone:      heuristics.Tone.Resolve(req.Tone, req.ModuleTitle, req.CourseTitle, sample),
		industry:  heuristics.Industry.Resolve(req.Industry, req.ModuleTitle, req.CourseTitle, sample),
		audience:  heuristics.Audience.Resolve(req.Audience, req.ModuleTitle, req.CourseTitle, sample),
		title:     boolOr(req.IncludeTitleSlide, true),
	}
	if _, ok := toneGuidance[p.tone]; !ok {
		p.tone = "professional"
	}

	return run(ctx, s, job[models.SlideDeck]{
		op: models.OpSlides,
		params: slideKey{
			ModuleTitle:  req.ModuleTitle,
			CourseTitle:  req.CourseTitle,
			Topic:        req.Topic,
			ScriptSample: sample,
			NumSlides:    p.count,
			Language:     p.lang,
			Tone:         p.tone,
			Verbosity:    p.verbosity,
			Industry:     p.industry,
			Audience:     p.audience,
			TitleSlide:   p.title,
			Agenda:       req.IncludeTableOfContent,
			DemoMode:     req.DemoMode,
		},
		request: req,
		generate: func(ctx context.Context) (*models.SlideDeck, string, error) {
			wire, provider, err := structured[wireDeck](ctx, s, models.OpSlides, llm.StructuredRequest{
				System:    p.system(),
				User:      p.user(),
				Tool:      slidesTool,
				MaxTokens: 8000,
			})
			if err != nil {
				return nil, "", err
			}
			deck := shapeDeck(wire, p)
			if err := checkItems(provider, len(deck.Slides), p.count, req.DemoMode); err != nil {
				return nil, "", err
			}
			deck.Source = provider
			return deck, provider, nil
		},
		finish: func(ctx context.Context, deck *models.SlideDeck, cached bool) {
			deck.FromCache = cached
			if boolOr(req.IncludeImages, true) {
				s.attachPhotos(ctx, deck)
			}
		},
	})
}

// shapeDeck cleans model output and enforces the requested slide count.
func shapeDeck(w *wireDeck, p slidePrompt) *models.SlideDeck {
	slides := w.Slides
	if len(slides) > p.count {
		slides = slides[:p.count]
	}

	out := make([]models.Slide, 0, len(slides))
	for i, ws := range slides {
		sl := models.Slide{
			SlideNumber:         i + 1,
			Title:               textclean.Clean(ws.Title),
			Subtitle:            textclean.Clean(ws.Subtitle),
			Content:             textclean.Clean(string(ws.Content)),
			Bullets:             textclean.CleanAll(ws.Bullets),
			SpeakerNotes:        textclean.Clean(string(ws.SpeakerNotes)),
			Layout:              ws.Layout,
			SuggestedImageQuery: strings.TrimSpace(ws.SuggestedImageQuery),
		}
		if sl.Title == "" {
			sl.Title = "Untitled"
		}
		if !slices.Contains(slideLayouts, sl.Layout) {
			sl.Layout = "title-content"
		}
		if len(sl.Bullets) == 0 && sl.Layout != "title" && sl.Layout != "quote" {
			sl.Bullets = textclean.Bullets(sl.Content, maxBullets[p.verbosity])
		}
		if sl.Bullets == nil {
			sl.Bullets = []string{}
		}
		if sl.SuggestedImageQuery == "" {
			sl.SuggestedImageQuery = sl.Title
		}
		out = append(out, sl)
	}

	title := textclean.Clean(w.PresentationTitle)
	if title == "" {
		title = p.req.ModuleTitle
	}
	return &models.SlideDeck{
		PresentationTitle: title,
		Slides:            out,
		SlideCount:        len(out),
		Industry:          p.industry,
		Audience:          p.audience,
	}
}

// attachPhotos looks up a stock photo per slide. Failures leave a slide
// without an image.
func (s *Service) attachPhotos(ctx context.Context, deck *models.SlideDeck) {
	for i := range deck.Slides {
		deck.Slides[i].ImageURL = ""
		deck.Slides[i].ImageSource = ""
		deck.Slides[i].ImageAttribution = ""
	}
	if s.photos == nil {
		return
	}

	perQuery := s.photoCfg.PerQuery
	if perQuery <= 0 {
		perQuery = 3
	}
	g, gctx := errgroup.WithContext(ctx)
	if s.photoCfg.Parallelism > 0 {
		g.SetLimit(s.photoCfg.Parallelism)
	}
	for i := range deck.Slides {
		sl := &deck.Slides[i]
		if sl.SuggestedImageQuery == "" {
			continue
		}
		g.Go(func() error {
			found, err := s.photos.Search(gctx, sl.SuggestedImageQuery, perQuery)
			if err != nil || len(found) == 0 {
				return nil
			}
			ph := found[0]
			sl.ImageURL = ph.URL
			sl.ImageSource = ph.Source
			sl.ImageAttribution = ph.Attribution()
			return nil
		})
	}
	_ = g.Wait()
}
