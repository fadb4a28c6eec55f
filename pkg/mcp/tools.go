package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/courseforge/courseforge/pkg/apierr"
	"github.com/courseforge/courseforge/pkg/models"
)

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

func schema(required []string, props map[string]any) map[string]any {
	m := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		m["required"] = required
	}
	return m
}

var (
	languageProp = prop("string", "Output language: sv (default) or en")
	scriptProp   = prop("string", "Module script or source text")
)

// generationTools maps each generation tool to its operation.
var generationTools = []struct {
	def ToolDefinition
	op  string
}{
	{op: models.OpSlides, def: ToolDefinition{
		Name:        "courseforge_generate_slides",
		Description: "Generate a slide deck with speaker notes from a module script or topic.",
		InputSchema: schema(nil, map[string]any{
			"moduleTitle": prop("string", "Module title"),
			"courseTitle": prop("string", "Course title (optional)"),
			"topic":       prop("string", "Topic, used when there is no script"),
			"script":      scriptProp,
			"numSlides":   prop("integer", "Number of slides (1-30)"),
			"verbosity":   map[string]any{"type": "string", "enum": []string{"concise", "standard", "text-heavy"}},
			"tone":        map[string]any{"type": "string", "enum": []string{"professional", "casual", "educational", "inspirational"}},
			"language":    languageProp,
			"demoMode":    prop("boolean", "Return a short demo deck"),
		}),
	}},
	{op: models.OpExercises, def: ToolDefinition{
		Name:        "courseforge_generate_exercises",
		Description: "Generate practice exercises for a course module.",
		InputSchema: schema([]string{"moduleTitle", "script"}, map[string]any{
			"moduleTitle":   prop("string", "Module title"),
			"courseTitle":   prop("string", "Course title (optional)"),
			"script":        scriptProp,
			"exerciseCount": prop("integer", "Number of exercises (1-10)"),
			"difficulty":    map[string]any{"type": "string", "enum": []string{"easy", "medium", "hard"}},
			"language":      languageProp,
		}),
	}},
	{op: models.OpQuiz, def: ToolDefinition{
		Name:        "courseforge_generate_quiz",
		Description: "Generate a knowledge-check quiz for a course module.",
		InputSchema: schema([]string{"moduleTitle", "script"}, map[string]any{
			"moduleTitle":           prop("string", "Module title"),
			"script":                scriptProp,
			"questionCount":         prop("integer", "Number of questions (1-20)"),
			"includeMultipleChoice": prop("boolean", "Allow multiple-choice questions (default true)"),
			"includeTrueFalse":      prop("boolean", "Allow true/false questions (default true)"),
			"language":              languageProp,
		}),
	}},
	{op: models.OpStructure, def: ToolDefinition{
		Name:        "courseforge_generate_structure",
		Description: "Recommend module count, duration and learning objectives for a course idea.",
		InputSchema: schema([]string{"title"}, map[string]any{
			"title":          prop("string", "Course title"),
			"description":    prop("string", "Course description (optional)"),
			"targetAudience": prop("string", "Intended audience (optional)"),
			"script":         prop("string", "Existing material (optional)"),
			"language":       languageProp,
		}),
	}},
	{op: models.OpOutline, def: ToolDefinition{
		Name:        "courseforge_generate_outline",
		Description: "Generate a module outline for a course.",
		InputSchema: schema([]string{"title"}, map[string]any{
			"title":             prop("string", "Course title"),
			"numModules":        prop("integer", "Number of modules (1-12)"),
			"additionalContext": prop("string", "Extra context (optional)"),
			"language":          languageProp,
		}),
	}},
	{op: models.OpTitles, def: ToolDefinition{
		Name:        "courseforge_generate_titles",
		Description: "Suggest five alternative course titles.",
		InputSchema: schema([]string{"title"}, map[string]any{
			"title":    prop("string", "Working title or topic"),
			"language": languageProp,
		}),
	}},
	{op: models.OpScript, def: ToolDefinition{
		Name:        "courseforge_generate_script",
		Description: "Write the narration script for one course module.",
		InputSchema: schema([]string{"moduleTitle"}, map[string]any{
			"moduleTitle":       prop("string", "Module title"),
			"moduleDescription": prop("string", "What the module covers"),
			"courseTitle":       prop("string", "Course title (optional)"),
			"targetDuration":    prop("integer", "Target length in minutes"),
			"language":          languageProp,
		}),
	}},
	{op: models.OpImages, def: ToolDefinition{
		Name:        "courseforge_generate_images",
		Description: "Generate illustrations for a slide.",
		InputSchema: schema([]string{"prompt"}, map[string]any{
			"prompt":     prop("string", "What the image shows"),
			"slideTitle": prop("string", "Slide the image is for (optional)"),
			"style":      prop("string", "Visual style (default photorealistic)"),
			"count":      prop("integer", "Number of images (1-4)"),
		}),
	}},
	{op: models.OpReview, def: ToolDefinition{
		Name:        "courseforge_review_content",
		Description: "Edit a piece of course text and list the changes made.",
		InputSchema: schema([]string{"content"}, map[string]any{
			"content":  prop("string", "Text to edit"),
			"action":   map[string]any{"type": "string", "enum": []string{"improve", "simplify", "expand", "fix-grammar", "add-examples"}},
			"context":  prop("string", "What the text is for (optional)"),
			"language": languageProp,
		}),
	}},
	{op: models.OpTranslate, def: ToolDefinition{
		Name:        "courseforge_translate",
		Description: "Translate course text, keeping its formatting.",
		InputSchema: schema([]string{"content", "targetLanguage"}, map[string]any{
			"content":        prop("string", "Text to translate"),
			"targetLanguage": prop("string", "Target language code, e.g. en or de"),
			"sourceLanguage": prop("string", "Source language code, or auto (default)"),
		}),
	}},
	{op: models.OpEnhance, def: ToolDefinition{
		Name:        "courseforge_enhance_slide",
		Description: "Rewrite a single slide for clarity, examples, simplicity or data.",
		InputSchema: schema(nil, map[string]any{
			"slideTitle":      prop("string", "Current slide title"),
			"slideContent":    prop("string", "Current slide text"),
			"enhancementType": map[string]any{"type": "string", "enum": []string{"improve-clarity", "add-examples", "simplify", "add-data"}},
			"language":        languageProp,
		}),
	}},
}

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"courseforge_cache_stats":  handleCacheStats,
	"courseforge_audit_search": handleAuditSearch,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "courseforge_cache_stats",
		Description: "Show response cache statistics (entries, live, hits, misses, hit rate).",
		InputSchema: schema(nil, map[string]any{}),
	},
	{
		Name:        "courseforge_audit_search",
		Description: "Search the generation audit log with optional filters.",
		InputSchema: schema(nil, map[string]any{
			"operation":  prop("string", "Filter by operation, e.g. generate-slides (optional)"),
			"status":     prop("string", "Filter by status: ok, error or failed (optional)"),
			"since":      prop("string", "Start date in YYYY-MM-DD format (optional)"),
			"request_id": prop("string", "Filter by request ID (optional)"),
		}),
	},
}

func init() {
	gen := make([]ToolDefinition, 0, len(generationTools))
	for _, t := range generationTools {
		toolHandlers[t.def.Name] = generateHandler(t.op)
		gen = append(gen, t.def)
	}
	allTools = append(gen, allTools...)
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func generateHandler(op string) toolHandler {
	return func(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
		if s.gen == nil {
			return errorResult("Generation is not configured.")
		}
		out, err := s.gen.Dispatch(ctx, op, rawArgs)
		if err != nil {
			env, _ := json.Marshal(apierr.From(err).Envelope())
			return errorResult(string(env))
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errorResult("Error encoding result: " + err.Error())
		}
		return textResult(string(data))
	}
}

func handleCacheStats(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats(ctx)
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

type auditSearchArgs struct {
	Operation string `json:"operation"`
	Status    string `json:"status"`
	Since     string `json:"since"`
	RequestID string `json:"request_id"`
}

func handleAuditSearch(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.auditor == nil {
		return textResult("Audit logging is not configured.")
	}
	var args auditSearchArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}

	opts := models.AuditQueryOpts{
		Operation: args.Operation,
		Status:    args.Status,
		RequestID: args.RequestID,
		Limit:     50,
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	events, err := s.auditor.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching audit log: " + err.Error())
	}
	return textResult(formatAuditEvents(events))
}
