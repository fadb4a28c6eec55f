package generate

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/models"
)

// Dispatch decodes payload as the request type of op and runs it.
func (s *Service) Dispatch(ctx context.Context, op string, payload []byte) (any, error) {
	switch op {
	case models.OpSlides:
		return dispatch(ctx, payload, s.Slides)
	case models.OpExercises:
		return dispatch(ctx, payload, s.Exercises)
	case models.OpQuiz:
		return dispatch(ctx, payload, s.Quiz)
	case models.OpStructure:
		return dispatch(ctx, payload, s.StructurePreview)
	case models.OpImages:
		return dispatch(ctx, payload, s.Images)
	case models.OpTitles:
		return dispatch(ctx, payload, s.Titles)
	case models.OpOutline:
		return dispatch(ctx, payload, s.Outline)
	case models.OpScript:
		return dispatch(ctx, payload, s.Script)
	case models.OpReview:
		return dispatch(ctx, payload, s.Review)
	case models.OpTranslate:
		return dispatch(ctx, payload, s.Translate)
	case models.OpEnhance:
		return dispatch(ctx, payload, s.EnhanceSlide)
	default:
		return nil, apierr.Invalid("unknown operation %q", op)
	}
}

func dispatch[Req, Res any](ctx context.Context, payload []byte, fn func(context.Context, Req) (*Res, error)) (any, error) {
	var req Req
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, apierr.Invalid("invalid request body: %v", err)
		}
	}
	res, err := fn(ctx, req)
	if err != nil {
		return nil, err
	}
	return res, nil
}
