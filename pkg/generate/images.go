package generate

import (
	"context"
	"strings"
	"time"

	"github.com/courseforge/courseforge/pkg/cachekey"
	"github.com/courseforge/courseforge/pkg/heuristics"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/models"
)

// hostedImageTTL bounds how long provider-hosted image URLs are cached.
// Providers expire them after about an hour.
const hostedImageTTL = time.Hour

type imageKey struct {
	Prompt     string `json:"prompt"`
	SlideTitle string `json:"slideTitle"`
	Style      string `json:"style"`
	Count      int    `json:"count"`
	DemoMode   bool   `json:"demoMode"`
}

// Images generates illustrations for a prompt.
func (s *Service) Images(ctx context.Context, req models.ImageRequest) (*models.ImageSet, error) {
	if err := required("prompt", req.Prompt); err != nil {
		return nil, err
	}
	n := count(req.Count, 1, s.gen.MaxImages, req.DemoMode, s.gen.DemoImages)
	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = "photorealistic"
	}
	mood := heuristics.ImageMood.Classify(req.Prompt, req.SlideTitle)
	prompt := imagePrompt(req, style, mood)

	return run(ctx, s, job[models.ImageSet]{
		op: models.OpImages,
		params: imageKey{
			Prompt:     cachekey.Sample(req.Prompt),
			SlideTitle: req.SlideTitle,
			Style:      style,
			Count:      n,
			DemoMode:   req.DemoMode,
		},
		request: req,
		generate: func(ctx context.Context) (*models.ImageSet, string, error) {
			res, err := s.backend.Image(ctx, models.OpImages, llm.ImageRequest{Prompt: prompt, Count: n})
			if err != nil {
				return nil, "", err
			}
			set := &models.ImageSet{Mood: mood, Images: make([]models.GeneratedImage, 0, len(res.Images))}
			for _, img := range res.Images {
				if len(set.Images) == n {
					break
				}
				if img.URL == "" && img.B64 == "" {
					continue
				}
				set.Images = append(set.Images, models.GeneratedImage{
					URL:      img.URL,
					B64:      img.B64,
					MimeType: img.MimeType,
					Prompt:   prompt,
				})
			}
			if err := checkItems(res.Provider, len(set.Images), n, req.DemoMode); err != nil {
				return nil, "", err
			}
			return set, res.Provider, nil
		},
		ttl: func(set *models.ImageSet) time.Duration {
			for _, img := range set.Images {
				if img.URL != "" {
					return hostedImageTTL
				}
			}
			return 0
		},
		finish: func(_ context.Context, set *models.ImageSet, cached bool) {
			set.FromCache = cached
		},
	})
}
