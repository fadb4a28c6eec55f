package generate

import (
	"fmt"
	"strings"

	"github.com/courseforge/courseforge/pkg/models"
	"github.com/courseforge/courseforge/pkg/textclean"
)

var verbosityGuidance = map[string]string{
	"concise":    "Maximum 15 words per slide. Headlines 5-7 words. Use minimal text, maximum 5 bullets with 3-5 words each.",
	"standard":   "Maximum 30-35 words per slide. Headlines 6-10 words. Use 4-5 bullets with 5-8 words each.",
	"text-heavy": "Maximum 60 words per slide. Headlines 8-12 words. Use 5-7 bullets with 8-12 words each, can include brief paragraphs.",
}

// maxBullets is the bullet backfill limit per verbosity.
var maxBullets = map[string]int{
	"concise":    5,
	"standard":   5,
	"text-heavy": 7,
}

var toneGuidance = map[string]string{
	"professional":  "Formal, authoritative, data-driven language. Use technical terms appropriately.",
	"casual":        "Friendly, conversational tone. Use simple language and relatable examples.",
	"educational":   "Clear, pedagogical approach. Define concepts, provide examples, check understanding.",
	"inspirational": "Motivational, uplifting language. Focus on transformation and possibility.",
}

var industryGuidance = map[string]string{
	"healthcare":    "The audience works in health and social care. Prefer patient-centred examples and correct clinical terminology.",
	"finance":       "Use examples from banking, accounting and risk. Be precise with figures.",
	"technology":    "Use concrete technical examples. Avoid marketing language.",
	"legal":         "Reference rules and obligations carefully. Do not give individual legal advice.",
	"education":     "Use classroom and learning-situation examples.",
	"manufacturing": "Use examples from production lines, quality and safety on the floor.",
	"retail":        "Use customer-facing examples from stores and e-commerce.",
	"hospitality":   "Use guest-experience examples from hotels and restaurants.",
}

var audienceGuidance = map[string]string{
	"executives":       "Keep the focus on decisions, outcomes and risk. Skip operational detail.",
	"healthcare-staff": "Focus on daily practice on the ward and what to do differently tomorrow.",
	"technical":        "Assume technical fluency. Prefer precise terms over simplifications.",
	"beginners":        "Assume no prior knowledge. Introduce every term before using it.",
	"students":         "Build understanding step by step and connect to what learners already know.",
}

var difficultyGuidance = map[string]string{
	"easy":   "Test recall of key facts and definitions.",
	"medium": "Test understanding and application in everyday situations.",
	"hard":   "Test analysis and judgement in realistic, ambiguous scenarios.",
}

// slideLayouts are the layouts a slide may use.
var slideLayouts = []string{"title", "title-content", "bullet-points", "two-column", "image-focus", "data-visualization", "quote"}

const layoutGuidance = `Layout types to use:
- 'title': Opening/closing slides, major section breaks (1-2 slides)
- 'title-content': Key statements with supporting detail (30% of slides)
- 'bullet-points': Lists of related items, process steps (25% of slides)
- 'two-column': Comparisons, before/after, pros/cons (15% of slides)
- 'image-focus': Emotional moments, product showcases (15% of slides)
- 'data-visualization': Statistics, trends, metrics (10% of slides)
- 'quote': Expert testimony, key takeaways (5% of slides)

IMPORTANT: Vary the layouts throughout - avoid using same layout consecutively.`

const plainTextRule = "Write plain text only. Do not use markdown such as **, #, _ or list markers inside text fields."

type slidePrompt struct {
	req       models.SlideRequest
	lang      string
	count     int
	verbosity string
	tone      string
	industry  string
	audience  string
	title     bool
}

func (p slidePrompt) system() string {
	var b strings.Builder
	if p.lang == "sv" {
		b.WriteString("Du är en världsklass presentationsdesigner och berättarexpert. ")
		fmt.Fprintf(&b, "Skapa exakt %d slides för en presentation på svenska.\n\n", p.count)
		fmt.Fprintf(&b, "VERBOSITY: %s\n\nTON: %s\n\n", verbosityGuidance[p.verbosity], toneGuidance[p.tone])
	} else {
		b.WriteString("You are a world-class presentation designer and storytelling expert. ")
		fmt.Fprintf(&b, "Create exactly %d slides for a presentation in English.\n\n", p.count)
		fmt.Fprintf(&b, "VERBOSITY: %s\n\nTONE: %s\n\n", verbosityGuidance[p.verbosity], toneGuidance[p.tone])
	}
	if g, ok := industryGuidance[p.industry]; ok {
		fmt.Fprintf(&b, "INDUSTRY: %s\n\n", g)
	}
	if g, ok := audienceGuidance[p.audience]; ok {
		fmt.Fprintf(&b, "AUDIENCE: %s\n\n", g)
	}
	b.WriteString(layoutGuidance)
	b.WriteString("\n\n")
	if p.title {
		b.WriteString("Slide 1 is a title slide with layout 'title'.\n")
	}
	if p.req.IncludeTableOfContent {
		b.WriteString("Include one agenda slide listing the main sections right after the title slide.\n")
	}
	b.WriteString("Every slide needs speaker notes and an English stock-photo search query in suggestedImageQuery.\n")
	b.WriteString(plainTextRule)
	b.WriteString("\nReturn the result by calling the create_presentation function.")
	return b.String()
}

func (p slidePrompt) user() string {
	topic := p.req.Topic
	if topic == "" {
		topic = p.req.ModuleTitle
	}
	script := textclean.Truncate(strings.TrimSpace(p.req.Script), slideScriptLimit)
	if script == "" {
		script = "(no script provided, build the presentation around the topic)"
	}
	return fmt.Sprintf("Module: %q\nCourse: %q\nTopic: %q\n\nScript content:\n%s",
		p.req.ModuleTitle, p.req.CourseTitle, topic, script)
}

func exerciseSystem(lang, difficulty string, n int) string {
	var b strings.Builder
	if lang == "sv" {
		fmt.Fprintf(&b, "Du är en erfaren pedagog. Skapa exakt %d övningar på svenska som hjälper deltagarna att befästa modulens innehåll.\n", n)
		b.WriteString("Blanda flervalsfrågor (multiple-choice), sant/falskt (true-false) och öppna frågor (open).\n")
	} else {
		fmt.Fprintf(&b, "You are an experienced instructional designer. Create exactly %d exercises in English that help learners consolidate the module content.\n", n)
		b.WriteString("Mix multiple-choice, true-false and open questions.\n")
	}
	fmt.Fprintf(&b, "DIFFICULTY: %s\n", difficultyGuidance[difficulty])
	b.WriteString("Multiple-choice exercises have 4 options and correctAnswer repeats the correct option verbatim.\n")
	b.WriteString(plainTextRule)
	b.WriteString("\nReturn the result by calling the create_exercises function.")
	return b.String()
}

func quizSystem(lang string, n int, types []string) string {
	var b strings.Builder
	if lang == "sv" {
		fmt.Fprintf(&b, "Du är expert på att skapa kunskapstester för vårdutbildning. Skapa exakt %d quizfrågor på svenska.\n", n)
	} else {
		fmt.Fprintf(&b, "You are an expert at creating knowledge checks for professional education. Create exactly %d quiz questions in English.\n", n)
	}
	fmt.Fprintf(&b, "Allowed question types: %s.\n", strings.Join(types, ", "))
	b.WriteString("Each question has a difficulty of easy, medium or hard and is worth 1 to 5 points.\n")
	b.WriteString("For true-false questions the options are exactly \"True\" and \"False\".\n")
	b.WriteString(plainTextRule)
	b.WriteString("\nReturn the result by calling the create_quiz function.")
	return b.String()
}

func moduleUser(moduleTitle, courseTitle, script string) string {
	return fmt.Sprintf("Module: %q\nCourse: %q\n\nScript content:\n%s",
		moduleTitle, courseTitle, textclean.Truncate(script, exerciseScriptLimit))
}

func structureSystem(lang string, maxModules int) string {
	if lang == "sv" {
		return fmt.Sprintf("Du är en expert på att strukturera utbildningar. Analysera kursidén och rekommendera en struktur med högst %d moduler. "+
			"Ange total längd i minuter, komplexitet (beginner, intermediate eller advanced), målgrupp, 3-8 nyckelämnen, 3-6 lärandemål och konkreta förbättringsförslag på svenska.\n%s\n"+
			"Returnera resultatet genom att anropa funktionen preview_structure.", maxModules, plainTextRule)
	}
	return fmt.Sprintf("You are an expert at structuring professional education. Analyse the course idea and recommend a structure with at most %d modules. "+
		"Give the total duration in minutes, a complexity (beginner, intermediate or advanced), the target audience, 3-8 key topics, 3-6 learning objectives and concrete suggestions.\n%s\n"+
		"Return the result by calling the preview_structure function.", maxModules, plainTextRule)
}

func structureUser(req models.StructureRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Course title: %q\n", req.Title)
	if req.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", req.Description)
	}
	if req.TargetAudience != "" {
		fmt.Fprintf(&b, "Intended audience: %s\n", req.TargetAudience)
	}
	if req.Script != "" {
		fmt.Fprintf(&b, "\nExisting material:\n%s\n", textclean.Truncate(req.Script, exerciseScriptLimit))
	}
	return b.String()
}

func titlesSystem(lang string) string {
	if lang == "sv" {
		return "Du är en expert på att skapa engagerande kurstitlar för vårdutbildning. " +
			"Generera exakt 5 alternativa kurstitlar baserade på användarens input. " +
			"Varje titel ska vara professionell, tydlig och attraktiv för vårdpersonal, med en kort förklaring.\n" +
			plainTextRule + "\nReturnera resultatet genom att anropa funktionen suggest_titles."
	}
	return "You are an expert at creating engaging course titles for healthcare education. " +
		"Generate exactly 5 alternative course titles based on the user's input. " +
		"Each title should be professional, clear, and appealing to healthcare professionals, with a brief explanation.\n" +
		plainTextRule + "\nReturn the result by calling the suggest_titles function."
}

func outlineSystem(lang string, n int) string {
	if lang == "sv" {
		return fmt.Sprintf("Du är en expert på att strukturera vårdutbildningar. Skapa en kursöversikt med exakt %d moduler. "+
			"Varje modul ska ha en beskrivande titel, en detaljerad beskrivning, uppskattat antal minuter och 3-5 nyckelämnen.\n%s\n"+
			"Returnera resultatet genom att anropa funktionen create_outline.", n, plainTextRule)
	}
	return fmt.Sprintf("You are an expert at structuring healthcare education. Create a course outline with exactly %d modules. "+
		"Each module should have a descriptive title, a detailed description, an estimated duration in minutes and 3-5 key topics.\n%s\n"+
		"Return the result by calling the create_outline function.", n, plainTextRule)
}

func scriptSystem(lang string, minutes int, tone string) string {
	if lang == "sv" {
		return fmt.Sprintf("Du är en expert på att skriva pedagogiska manus för vårdutbildningar. "+
			"Skapa ett detaljerat manus för en modul som ska ta cirka %d minuter. Manuset ska vara professionellt och engagerande, "+
			"hålla tonen: %s, vara strukturerat i 3-5 logiska sektioner med tydliga övergångar och innehålla slide markers "+
			"(naturliga brytpunkter för slides).\n%s\nReturnera resultatet genom att anropa funktionen write_script.",
			minutes, toneGuidance[tone], plainTextRule)
	}
	return fmt.Sprintf("You are an expert at writing educational scripts for healthcare education. "+
		"Create a detailed script for a module that should take approximately %d minutes. The script should be professional and engaging, "+
		"keep this tone: %s, be structured in 3-5 logical sections with clear transitions and include slide markers "+
		"(natural breakpoints for slides).\n%s\nReturn the result by calling the write_script function.",
		minutes, toneGuidance[tone], plainTextRule)
}

func contextSuffix(additional string) string {
	if strings.TrimSpace(additional) == "" {
		return ""
	}
	return "\n\nAdditional context: " + additional
}

func imagePrompt(req models.ImageRequest, style, mood string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Prompt))
	if req.SlideTitle != "" {
		fmt.Fprintf(&b, ". For a presentation slide titled %q", req.SlideTitle)
	}
	fmt.Fprintf(&b, ". Style: %s. Mood: %s. Landscape 16:9 composition. No text, letters or logos in the image.", style, mood)
	return b.String()
}

// reviewActions maps a review action to its editing instruction.
var reviewActions = map[string]string{
	"improve":      "Improve this content for clarity, engagement and professionalism.",
	"simplify":     "Simplify this content so it is more accessible and easier to understand.",
	"expand":       "Expand this content with more detail, examples and explanation.",
	"fix-grammar":  "Fix grammar, spelling and punctuation errors. Do not change the meaning.",
	"add-examples": "Add relevant practical examples that illustrate the concepts.",
}

func reviewSystem(lang, action string) string {
	language := "English"
	if lang == "sv" {
		language = "Swedish"
	}
	return fmt.Sprintf("You are an expert content editor for educational material. Write in %s.\nTASK: %s\n"+
		"List every change you made in changesMade and further ideas in suggestions.\n%s\n"+
		"Return the result by calling the review_content function.", language, reviewActions[action], plainTextRule)
}

func reviewUser(req models.ReviewRequest) string {
	return fmt.Sprintf("Content to edit:\n%s%s", textclean.Truncate(req.Content, reviewContentLimit), contextSuffix(req.Context))
}

func translateSystem(target, source string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional translator. Translate the content to the language with code %q", target)
	if source != "" {
		fmt.Fprintf(&b, " from the language with code %q", source)
	}
	b.WriteString(".\nKeep the original formatting, tone and meaning. Translate everything and add nothing.\n")
	b.WriteString("Return the result by calling the translate_content function.")
	return b.String()
}

// enhanceInstructions maps a slide enhancement type to its instruction.
var enhanceInstructions = map[string][2]string{
	"improve-clarity": {"Gör innehållet tydligare och mer lättförståeligt.", "Make the content clearer and easier to understand."},
	"add-examples":    {"Lägg till konkreta exempel och illustrationer.", "Add concrete examples and illustrations."},
	"simplify":        {"Förenkla språket och gör det mer tillgängligt.", "Simplify the language and make it more accessible."},
	"add-data":        {"Lägg till relevant statistik och data.", "Add relevant statistics and data."},
}

func enhanceSystem(lang, kind string) string {
	in := enhanceInstructions[kind]
	if lang == "sv" {
		return fmt.Sprintf("Du är expert på att förbättra presentationsinnehåll. %s Svara på svenska.\n%s\n"+
			"Returnera resultatet genom att anropa funktionen enhance_slide.", in[0], plainTextRule)
	}
	return fmt.Sprintf("You are an expert at improving presentation content. %s\n%s\n"+
		"Return the result by calling the enhance_slide function.", in[1], plainTextRule)
}
