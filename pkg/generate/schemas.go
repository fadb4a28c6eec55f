package generate

import "github.com/courseforge/courseforge/pkg/llm"

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func array(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

var slidesTool = llm.ToolSpec{
	Name:        "create_presentation",
	Description: "Return the slides of a presentation.",
	Parameters: object(map[string]any{
		"presentationTitle": str("Title of the whole presentation"),
		"slides": array("Slides in presentation order", object(map[string]any{
			"slideNumber":         integer("1-based position"),
			"title":               str("Slide headline"),
			"subtitle":            str("Optional subtitle"),
			"content":             str("Main slide text"),
			"bullets":             array("Bullet points shown on the slide", str("One bullet")),
			"speakerNotes":        str("What the presenter says"),
			"layout":              enum("Slide layout", slideLayouts...),
			"suggestedImageQuery": str("English stock-photo search keywords"),
		}, "title", "content", "speakerNotes", "layout")),
	}, "presentationTitle", "slides"),
}

var exercisesTool = llm.ToolSpec{
	Name:        "create_exercises",
	Description: "Return practice exercises for a course module.",
	Parameters: object(map[string]any{
		"exercises": array("Exercises", object(map[string]any{
			"type":          enum("Exercise type", exerciseTypes...),
			"question":      str("The question or task"),
			"options":       array("Answer options for multiple-choice and true-false", str("Option")),
			"correctAnswer": str("The correct answer"),
			"explanation":   str("Why the answer is correct"),
			"points":        integer("Points awarded"),
		}, "type", "question", "correctAnswer", "explanation")),
	}, "exercises"),
}

var quizTool = llm.ToolSpec{
	Name:        "create_quiz",
	Description: "Return a knowledge-check quiz for a course module.",
	Parameters: object(map[string]any{
		"quizTitle": str("Title of the quiz"),
		"questions": array("Quiz questions", object(map[string]any{
			"type":          enum("Question type", "multiple-choice", "true-false"),
			"question":      str("The question"),
			"options":       array("Answer options", str("Option")),
			"correctAnswer": str("The correct option"),
			"explanation":   str("Why the answer is correct"),
			"points":        integer("Points awarded, 1-5"),
			"difficulty":    enum("Question difficulty", "easy", "medium", "hard"),
		}, "type", "question", "options", "correctAnswer", "explanation")),
		"passingScore": integer("Points needed to pass"),
	}, "quizTitle", "questions"),
}

var structureTool = llm.ToolSpec{
	Name:        "preview_structure",
	Description: "Return a recommended course structure.",
	Parameters: object(map[string]any{
		"recommendedModules":  integer("Number of modules"),
		"recommendedDuration": integer("Total duration in minutes"),
		"complexity":          enum("Overall complexity", complexities...),
		"targetAudience":      str("Who the course is for"),
		"keyTopics":           array("Key topics", str("Topic")),
		"learningObjectives":  array("Learning objectives", str("Objective")),
		"suggestions":         array("Improvement suggestions", str("Suggestion")),
	}, "recommendedModules", "recommendedDuration", "complexity", "keyTopics", "learningObjectives"),
}

var titlesTool = llm.ToolSpec{
	Name:        "suggest_titles",
	Description: "Return alternative course titles.",
	Parameters: object(map[string]any{
		"suggestions": array("Exactly 5 suggestions", object(map[string]any{
			"title":       str("Suggested title"),
			"explanation": str("Why the title works"),
		}, "title", "explanation")),
	}, "suggestions"),
}

var outlineTool = llm.ToolSpec{
	Name:        "create_outline",
	Description: "Return a course outline.",
	Parameters: object(map[string]any{
		"modules": array("Modules in order", object(map[string]any{
			"title":             str("Module title"),
			"description":       str("What the module covers"),
			"estimatedDuration": integer("Duration in minutes"),
			"keyTopics":         array("3-5 key topics", str("Topic")),
		}, "title", "description", "estimatedDuration", "keyTopics")),
		"totalDuration": integer("Total duration in minutes"),
	}, "modules"),
}

var scriptTool = llm.ToolSpec{
	Name:        "write_script",
	Description: "Return the narration script for a course module.",
	Parameters: object(map[string]any{
		"moduleTitle": str("Module title"),
		"sections": array("3-5 sections", object(map[string]any{
			"title":        str("Section title"),
			"content":      str("Full narration for the section"),
			"slideMarkers": array("Natural slide breakpoints", str("Key point")),
		}, "title", "content", "slideMarkers")),
		"estimatedDuration": integer("Duration in minutes"),
		"citations":         array("Sources", str("Source")),
	}, "sections"),
}

var reviewTool = llm.ToolSpec{
	Name:        "review_content",
	Description: "Return the edited content and what was changed.",
	Parameters: object(map[string]any{
		"improvedContent": str("The edited content"),
		"changesMade":     array("Specific changes that were made", str("Change")),
		"suggestions":     array("Further improvement suggestions", str("Suggestion")),
	}, "improvedContent", "changesMade"),
}

var translateTool = llm.ToolSpec{
	Name:        "translate_content",
	Description: "Return the translated content.",
	Parameters: object(map[string]any{
		"translatedContent": str("The translation, keeping the original formatting"),
		"detectedLanguage":  str("ISO 639-1 code of the source text"),
	}, "translatedContent"),
}

var enhanceTool = llm.ToolSpec{
	Name:        "enhance_slide",
	Description: "Return the enhanced slide.",
	Parameters: object(map[string]any{
		"enhancedContent": str("The improved slide text"),
		"improvedTitle":   str("A better headline, empty to keep the current one"),
		"suggestions":     array("Further suggestions for the slide", str("Suggestion")),
	}, "enhancedContent", "suggestions"),
}
