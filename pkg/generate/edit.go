package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/cachekey"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/models"
	"github.com/courseforge/courseforge/pkg/textclean"
)

// reviewContentLimit caps the text sent for review or translation, in runes.
const reviewContentLimit = 10000

// Editing operations rewrite the whole text, so their keys hash the full
// content instead of a sample.
type reviewKey struct {
	ContentHash string `json:"contentHash"`
	Action      string `json:"action"`
	Context     string `json:"context"`
	Language    string `json:"language"`
}

// Review edits a piece of course text according to an action such as
// simplify or fix-grammar. Unknown actions fall back to improve.
func (s *Service) Review(ctx context.Context, req models.ReviewRequest) (*models.Review, error) {
	if err := required("content", req.Content); err != nil {
		return nil, err
	}
	action := normalizeKind(req.Action)
	if _, ok := reviewActions[action]; !ok {
		action = "improve"
	}
	lang := s.language(req.Language)

	return run(ctx, s, job[models.Review]{
		op: models.OpReview,
		params: reviewKey{
			ContentHash: cachekey.RequestHash(req.Content),
			Action:      action,
			Context:     cachekey.Sample(req.Context),
			Language:    lang,
		},
		request: req,
		generate: func(ctx context.Context) (*models.Review, string, error) {
			r, provider, err := structured[models.Review](ctx, s, models.OpReview, llm.StructuredRequest{
				System: reviewSystem(lang, action),
				User:   reviewUser(req),
				Tool:   reviewTool,
			})
			if err != nil {
				return nil, "", err
			}
			r.Action = action
			r.ImprovedContent = strings.TrimSpace(r.ImprovedContent)
			r.ChangesMade = textclean.CleanAll(r.ChangesMade)
			r.Suggestions = textclean.CleanAll(r.Suggestions)
			if r.ImprovedContent == "" {
				return nil, "", checkItems(provider, 0, 1, false)
			}
			return r, provider, nil
		},
		finish: func(_ context.Context, r *models.Review, cached bool) {
			r.FromCache = cached
		},
	})
}

type translateKey struct {
	ContentHash string `json:"contentHash"`
	Target      string `json:"target"`
	Source      string `json:"source"`
}

// Translate translates course text to a target language code.
func (s *Service) Translate(ctx context.Context, req models.TranslateRequest) (*models.Translation, error) {
	if err := required("content", req.Content); err != nil {
		return nil, err
	}
	if err := required("targetLanguage", req.TargetLanguage); err != nil {
		return nil, err
	}
	target := strings.ToLower(strings.TrimSpace(req.TargetLanguage))
	source := strings.ToLower(strings.TrimSpace(req.SourceLanguage))
	if source == "auto" {
		source = ""
	}

	return run(ctx, s, job[models.Translation]{
		op: models.OpTranslate,
		params: translateKey{
			ContentHash: cachekey.RequestHash(req.Content),
			Target:      target,
			Source:      source,
		},
		request: req,
		generate: func(ctx context.Context) (*models.Translation, string, error) {
			tr, provider, err := structured[models.Translation](ctx, s, models.OpTranslate, llm.StructuredRequest{
				System: translateSystem(target, source),
				User:   textclean.Truncate(req.Content, reviewContentLimit),
				Tool:   translateTool,
			})
			if err != nil {
				return nil, "", err
			}
			tr.TranslatedContent = strings.TrimSpace(tr.TranslatedContent)
			if tr.TranslatedContent == "" {
				return nil, "", checkItems(provider, 0, 1, false)
			}
			tr.TargetLanguage = target
			if source != "" {
				tr.DetectedLanguage = source
			}
			tr.DetectedLanguage = strings.ToLower(strings.TrimSpace(tr.DetectedLanguage))
			return tr, provider, nil
		},
		finish: func(_ context.Context, tr *models.Translation, cached bool) {
			tr.FromCache = cached
		},
	})
}

type enhanceKey struct {
	SlideTitle  string `json:"slideTitle"`
	ContentHash string `json:"contentHash"`
	Enhancement string `json:"enhancement"`
	Language    string `json:"language"`
}

// EnhanceSlide rewrites a single slide. Unknown enhancement types fall back
// to improve-clarity.
func (s *Service) EnhanceSlide(ctx context.Context, req models.EnhanceSlideRequest) (*models.SlideEnhancement, error) {
	if strings.TrimSpace(req.SlideTitle) == "" && strings.TrimSpace(req.SlideContent) == "" {
		return nil, apierr.Invalid("slideTitle or slideContent is required")
	}
	kind := normalizeKind(req.EnhancementType)
	if _, ok := enhanceInstructions[kind]; !ok {
		kind = "improve-clarity"
	}
	lang := s.language(req.Language)

	return run(ctx, s, job[models.SlideEnhancement]{
		op: models.OpEnhance,
		params: enhanceKey{
			SlideTitle:  req.SlideTitle,
			ContentHash: cachekey.RequestHash(req.SlideContent),
			Enhancement: kind,
			Language:    lang,
		},
		request: req,
		generate: func(ctx context.Context) (*models.SlideEnhancement, string, error) {
			e, provider, err := structured[models.SlideEnhancement](ctx, s, models.OpEnhance, llm.StructuredRequest{
				System: enhanceSystem(lang, kind),
				User:   fmt.Sprintf("Title: %q\nContent: %s", req.SlideTitle, textclean.Truncate(req.SlideContent, slideScriptLimit)),
				Tool:   enhanceTool,
			})
			if err != nil {
				return nil, "", err
			}
			e.EnhancementType = kind
			e.EnhancedContent = textclean.Clean(e.EnhancedContent)
			e.ImprovedTitle = textclean.Clean(e.ImprovedTitle)
			if e.ImprovedTitle == textclean.Clean(req.SlideTitle) {
				e.ImprovedTitle = ""
			}
			e.Suggestions = textclean.CleanAll(e.Suggestions)
			if e.EnhancedContent == "" {
				return nil, "", checkItems(provider, 0, 1, false)
			}
			return e, provider, nil
		},
		finish: func(_ context.Context, e *models.SlideEnhancement, cached bool) {
			e.FromCache = cached
		},
	})
}

// normalizeKind lowercases an action name and accepts snake_case spellings.
func normalizeKind(kind string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(kind)), "_", "-")
}
