package generate

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/cachekey"
	"github.com/courseforge/courseforge/pkg/llm"
	"github.com/courseforge/courseforge/pkg/models"
	"github.com/courseforge/courseforge/pkg/textclean"
)

var exerciseTypes = []string{"multiple-choice", "true-false", "open"}

const passingRatio = 0.7

type exerciseKey struct {
	ModuleTitle   string `json:"moduleTitle"`
	CourseTitle   string `json:"courseTitle"`
	ScriptSample  string `json:"scriptSample"`
	ExerciseCount int    `json:"exerciseCount"`
	Difficulty    string `json:"difficulty"`
	Language      string `json:"language"`
	DemoMode      bool   `json:"demoMode"`
}

// Exercises generates practice exercises for a module.
func (s *Service) Exercises(ctx context.Context, req models.ExerciseRequest) (*models.ExerciseSet, error) {
	if err := required("script", req.Script); err != nil {
		return nil, err
	}
	if err := required("moduleTitle", req.ModuleTitle); err != nil {
		return nil, err
	}

	n := count(req.ExerciseCount, 5, s.gen.MaxExercises, req.DemoMode, s.gen.DemoExercises)
	lang := s.language(req.Language)
	difficulty := strings.ToLower(req.Difficulty)
	if _, ok := difficultyGuidance[difficulty]; !ok {
		difficulty = "medium"
	}

	return run(ctx, s, job[models.ExerciseSet]{
		op: models.OpExercises,
		params: exerciseKey{
			ModuleTitle:   req.ModuleTitle,
			CourseTitle:   req.CourseTitle,
			ScriptSample:  cachekey.Sample(req.Script),
			ExerciseCount: n,
			Difficulty:    difficulty,
			Language:      lang,
			DemoMode:      req.DemoMode,
		},
		request: req,
		generate: func(ctx context.Context) (*models.ExerciseSet, string, error) {
			set, provider, err := structured[models.ExerciseSet](ctx, s, models.OpExercises, llm.StructuredRequest{
				System: exerciseSystem(lang, difficulty, n),
				User:   moduleUser(req.ModuleTitle, req.CourseTitle, req.Script),
				Tool:   exercisesTool,
			})
			if err != nil {
				return nil, "", err
			}
			shapeExercises(set, n)
			if err := checkItems(provider, len(set.Exercises), n, req.DemoMode); err != nil {
				return nil, "", err
			}
			return set, provider, nil
		},
		finish: func(_ context.Context, set *models.ExerciseSet, cached bool) {
			set.FromCache = cached
		},
	})
}

func shapeExercises(set *models.ExerciseSet, n int) {
	if len(set.Exercises) > n {
		set.Exercises = set.Exercises[:n]
	}
	set.TotalPoints = 0
	for i := range set.Exercises {
		ex := &set.Exercises[i]
		if ex.ID == "" {
			ex.ID = uuid.NewString()
		}
		if !slices.Contains(exerciseTypes, ex.Type) {
			ex.Type = "open"
			if len(ex.Options) > 0 {
				ex.Type = "multiple-choice"
			}
		}
		ex.Question = textclean.Clean(ex.Question)
		ex.Options = textclean.CleanAll(ex.Options)
		ex.CorrectAnswer = textclean.Clean(ex.CorrectAnswer)
		ex.Explanation = textclean.Clean(ex.Explanation)
		if ex.Points <= 0 {
			ex.Points = 10
		}
		set.TotalPoints += ex.Points
	}
	if set.Exercises == nil {
		set.Exercises = []models.Exercise{}
	}
}

type quizKey struct {
	ModuleTitle   string   `json:"moduleTitle"`
	CourseTitle   string   `json:"courseTitle"`
	ScriptSample  string   `json:"scriptSample"`
	QuestionCount int      `json:"questionCount"`
	QuestionTypes []string `json:"questionTypes"`
	Language      string   `json:"language"`
}

// Quiz generates a knowledge-check quiz for a module.
func (s *Service) Quiz(ctx context.Context, req models.QuizRequest) (*models.Quiz, error) {
	if err := required("script", req.Script); err != nil {
		return nil, err
	}
	if err := required("moduleTitle", req.ModuleTitle); err != nil {
		return nil, err
	}

	var types []string
	if boolOr(req.IncludeMultipleChoice, true) {
		types = append(types, "multiple-choice")
	}
	if boolOr(req.IncludeTrueFalse, true) {
		types = append(types, "true-false")
	}
	if len(types) == 0 {
		return nil, apierr.Invalid("at least one question type must be enabled")
	}
	n := count(req.QuestionCount, 10, s.gen.MaxQuestions, false, 0)
	lang := s.language(req.Language)

	return run(ctx, s, job[models.Quiz]{
		op: models.OpQuiz,
		params: quizKey{
			ModuleTitle:   req.ModuleTitle,
			CourseTitle:   req.CourseTitle,
			ScriptSample:  cachekey.Sample(req.Script),
			QuestionCount: n,
			QuestionTypes: types,
			Language:      lang,
		},
		request: req,
		generate: func(ctx context.Context) (*models.Quiz, string, error) {
			quiz, provider, err := structured[models.Quiz](ctx, s, models.OpQuiz, llm.StructuredRequest{
				System: quizSystem(lang, n, types),
				User:   moduleUser(req.ModuleTitle, req.CourseTitle, req.Script),
				Tool:   quizTool,
			})
			if err != nil {
				return nil, "", err
			}
			shapeQuiz(quiz, n, types, req.ModuleTitle)
			if err := checkItems(provider, len(quiz.Questions), n, false); err != nil {
				return nil, "", err
			}
			return quiz, provider, nil
		},
		finish: func(_ context.Context, q *models.Quiz, cached bool) {
			q.FromCache = cached
		},
	})
}

func shapeQuiz(q *models.Quiz, n int, types []string, moduleTitle string) {
	kept := q.Questions[:0]
	for _, qq := range q.Questions {
		if !slices.Contains(types, qq.Type) {
			continue
		}
		kept = append(kept, qq)
	}
	q.Questions = kept
	if len(q.Questions) > n {
		q.Questions = q.Questions[:n]
	}

	q.TotalPoints = 0
	for i := range q.Questions {
		qq := &q.Questions[i]
		if qq.ID == "" {
			qq.ID = uuid.NewString()
		}
		qq.Question = textclean.Clean(qq.Question)
		qq.Options = textclean.CleanAll(qq.Options)
		qq.CorrectAnswer = textclean.Clean(qq.CorrectAnswer)
		qq.Explanation = textclean.Clean(qq.Explanation)
		if qq.Type == "true-false" && len(qq.Options) == 0 {
			qq.Options = []string{"True", "False"}
		}
		qq.Points = textclean.Clamp(qq.Points, 1, 5)
		switch qq.Difficulty {
		case "easy", "medium", "hard":
		default:
			qq.Difficulty = "medium"
		}
		q.TotalPoints += qq.Points
	}
	if q.Questions == nil {
		q.Questions = []models.QuizQuestion{}
	}

	q.QuizTitle = textclean.Clean(q.QuizTitle)
	if q.QuizTitle == "" {
		q.QuizTitle = "Quiz: " + moduleTitle
	}
	if q.PassingScore <= 0 || q.PassingScore > q.TotalPoints {
		q.PassingScore = int(math.Ceil(float64(q.TotalPoints) * passingRatio))
	}
}
