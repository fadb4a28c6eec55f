package models

// Operation names. They are part of every cache key and audit row.
const (
	OpSlides    = "generate-slides"
	OpExercises = "generate-exercises"
	OpQuiz      = "generate-quiz"
	OpStructure = "structure-preview"
	OpImages    = "generate-images"
	OpTitles    = "generate-titles"
	OpOutline   = "generate-outline"
	OpScript    = "generate-script"
	OpReview    = "generate-review"
	OpTranslate = "translate"
	OpEnhance   = "enhance-slide"
)

// Operations lists every generation operation in a stable order.
var Operations = []string{
	OpSlides, OpExercises, OpQuiz, OpStructure, OpImages, OpTitles, OpOutline, OpScript,
	OpReview, OpTranslate, OpEnhance,
}

// SlideRequest asks for a slide deck built from a module script.
type SlideRequest struct {
	Topic                 string `json:"topic,omitempty"`
	ModuleTitle           string `json:"moduleTitle"`
	CourseTitle           string `json:"courseTitle,omitempty"`
	Script                string `json:"script"`
	NumSlides             int    `json:"numSlides,omitempty"`
	Language              string `json:"language,omitempty"`
	Tone                  string `json:"tone,omitempty"`
	Verbosity             string `json:"verbosity,omitempty"`
	Industry              string `json:"industry,omitempty"`
	Audience              string `json:"audience,omitempty"`
	IncludeTitleSlide     *bool  `json:"includeTitleSlide,omitempty"`
	IncludeTableOfContent bool   `json:"includeTableOfContents,omitempty"`
	IncludeImages         *bool  `json:"includeImages,omitempty"`
	DemoMode              bool   `json:"demoMode,omitempty"`
}

// Slide is a single generated slide.
type Slide struct {
	SlideNumber         int      `json:"slideNumber"`
	Title               string   `json:"title"`
	Subtitle            string   `json:"subtitle,omitempty"`
	Content             string   `json:"content"`
	Bullets             []string `json:"bullets"`
	SpeakerNotes        string   `json:"speakerNotes"`
	Layout              string   `json:"layout"`
	SuggestedImageQuery string   `json:"suggestedImageQuery,omitempty"`
	ImageURL            string   `json:"imageUrl,omitempty"`
	ImageSource         string   `json:"imageSource,omitempty"`
	ImageAttribution    string   `json:"imageAttribution,omitempty"`
}

// SlideDeck is the result of generate-slides.
type SlideDeck struct {
	PresentationTitle string  `json:"presentationTitle"`
	Slides            []Slide `json:"slides"`
	SlideCount        int     `json:"slideCount"`
	Industry          string  `json:"industry,omitempty"`
	Audience          string  `json:"audience,omitempty"`
	Source            string  `json:"source"`
	FromCache         bool    `json:"fromCache"`
}

// ExerciseRequest asks for practice exercises for a module.
type ExerciseRequest struct {
	ModuleTitle   string `json:"moduleTitle"`
	CourseTitle   string `json:"courseTitle,omitempty"`
	Script        string `json:"script"`
	ExerciseCount int    `json:"exerciseCount,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	Language      string `json:"language,omitempty"`
	DemoMode      bool   `json:"demoMode,omitempty"`
}

// Exercise is a single generated exercise.
type Exercise struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Points        int      `json:"points"`
}

// ExerciseSet is the result of generate-exercises.
type ExerciseSet struct {
	Exercises   []Exercise `json:"exercises"`
	TotalPoints int        `json:"totalPoints"`
	FromCache   bool       `json:"fromCache"`
}

// QuizRequest asks for a knowledge check for a module.
type QuizRequest struct {
	ModuleTitle           string `json:"moduleTitle"`
	CourseTitle           string `json:"courseTitle,omitempty"`
	Script                string `json:"script"`
	QuestionCount         int    `json:"questionCount,omitempty"`
	IncludeMultipleChoice *bool  `json:"includeMultipleChoice,omitempty"`
	IncludeTrueFalse      *bool  `json:"includeTrueFalse,omitempty"`
	Language              string `json:"language,omitempty"`
}

// QuizQuestion is a single quiz question.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	Points        int      `json:"points"`
	Difficulty    string   `json:"difficulty"`
}

// Quiz is the result of generate-quiz.
type Quiz struct {
	QuizTitle    string         `json:"quizTitle"`
	Questions    []QuizQuestion `json:"questions"`
	TotalPoints  int            `json:"totalPoints"`
	PassingScore int            `json:"passingScore"`
	FromCache    bool           `json:"fromCache"`
}

// StructureRequest asks for a recommended course structure.
type StructureRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	TargetAudience string `json:"targetAudience,omitempty"`
	Script         string `json:"script,omitempty"`
	Language       string `json:"language,omitempty"`
}

// StructurePreview is the result of structure-preview.
type StructurePreview struct {
	RecommendedModules  int      `json:"recommendedModules"`
	RecommendedDuration int      `json:"recommendedDuration"`
	Complexity          string   `json:"complexity"`
	TargetAudience      string   `json:"targetAudience"`
	KeyTopics           []string `json:"keyTopics"`
	LearningObjectives  []string `json:"learningObjectives"`
	Suggestions         []string `json:"suggestions"`
	FromCache           bool     `json:"fromCache"`
}

// ImageRequest asks for generated illustrations.
type ImageRequest struct {
	Prompt     string `json:"prompt"`
	SlideTitle string `json:"slideTitle,omitempty"`
	Style      string `json:"style,omitempty"`
	Count      int    `json:"count,omitempty"`
	DemoMode   bool   `json:"demoMode,omitempty"`
}

// GeneratedImage is one generated image, either hosted or inline.
type GeneratedImage struct {
	URL      string `json:"url,omitempty"`
	B64      string `json:"b64,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Prompt   string `json:"prompt"`
}

// ImageSet is the result of generate-images.
type ImageSet struct {
	Images    []GeneratedImage `json:"images"`
	Mood      string           `json:"mood,omitempty"`
	FromCache bool             `json:"fromCache"`
}

// TitleRequest asks for alternative course titles.
type TitleRequest struct {
	Title    string `json:"title"`
	Language string `json:"language,omitempty"`
}

// TitleSuggestion is one suggested course title.
type TitleSuggestion struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
}

// TitleSuggestions is the result of generate-titles.
type TitleSuggestions struct {
	Suggestions []TitleSuggestion `json:"suggestions"`
	FromCache   bool              `json:"fromCache"`
}

// OutlineRequest asks for a module outline for a course.
type OutlineRequest struct {
	Title             string `json:"title"`
	NumModules        int    `json:"numModules,omitempty"`
	Language          string `json:"language,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// OutlineModule is one module of a course outline.
type OutlineModule struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	EstimatedDuration int      `json:"estimatedDuration"`
	KeyTopics         []string `json:"keyTopics"`
}

// Outline is the result of generate-outline.
type Outline struct {
	Modules       []OutlineModule `json:"modules"`
	TotalDuration int             `json:"totalDuration"`
	FromCache     bool            `json:"fromCache"`
}

// ScriptRequest asks for a narration script for one module.
type ScriptRequest struct {
	ModuleTitle       string `json:"moduleTitle"`
	ModuleDescription string `json:"moduleDescription,omitempty"`
	CourseTitle       string `json:"courseTitle,omitempty"`
	Language          string `json:"language,omitempty"`
	TargetDuration    int    `json:"targetDuration,omitempty"`
	Tone              string `json:"tone,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// ScriptSection is one section of a module script.
type ScriptSection struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	SlideMarkers []string `json:"slideMarkers"`
}

// Script is the result of generate-script.
type Script struct {
	ModuleID          string          `json:"moduleId"`
	ModuleTitle       string          `json:"moduleTitle"`
	Sections          []ScriptSection `json:"sections"`
	TotalWords        int             `json:"totalWords"`
	EstimatedDuration int             `json:"estimatedDuration"`
	Citations         []string        `json:"citations"`
	FromCache         bool            `json:"fromCache"`
}

// ReviewRequest asks for an edited version of a piece of course text.
type ReviewRequest struct {
	Content  string `json:"content"`
	Action   string `json:"action,omitempty"`
	Context  string `json:"context,omitempty"`
	Language string `json:"language,omitempty"`
}

// Review is the result of generate-review.
type Review struct {
	Action          string   `json:"action"`
	ImprovedContent string   `json:"improvedContent"`
	ChangesMade     []string `json:"changesMade"`
	Suggestions     []string `json:"suggestions"`
	FromCache       bool     `json:"fromCache"`
}

// TranslateRequest asks for course text in another language.
type TranslateRequest struct {
	Content        string `json:"content"`
	TargetLanguage string `json:"targetLanguage"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
}

// Translation is the result of translate.
type Translation struct {
	TranslatedContent string `json:"translatedContent"`
	TargetLanguage    string `json:"targetLanguage"`
	DetectedLanguage  string `json:"detectedLanguage,omitempty"`
	FromCache         bool   `json:"fromCache"`
}

// EnhanceSlideRequest asks for an improved version of a single slide.
type EnhanceSlideRequest struct {
	SlideTitle      string `json:"slideTitle"`
	SlideContent    string `json:"slideContent"`
	EnhancementType string `json:"enhancementType,omitempty"`
	Language        string `json:"language,omitempty"`
}

// SlideEnhancement is the result of enhance-slide.
type SlideEnhancement struct {
	EnhancementType string   `json:"enhancementType"`
	EnhancedContent string   `json:"enhancedContent"`
	ImprovedTitle   string   `json:"improvedTitle,omitempty"`
	Suggestions     []string `json:"suggestions"`
	FromCache       bool     `json:"fromCache"`
}
