// Package heuristics classifies free text into a small set of categories
// using ordered keyword rules. The first matching rule wins; when nothing
// matches the classifier's default is returned.
package heuristics

import (
	"regexp"
	"strings"
)

// Rule maps a keyword pattern to a category.
type Rule struct {
	Category string
	Pattern  *regexp.Regexp
}

// Classifier is an ordered rule list with a default.
type Classifier struct {
	Rules   []Rule
	Default string
}

// Classify returns the category of the first rule matching any of texts.
func (c Classifier) Classify(texts ...string) string {
	joined := strings.ToLower(strings.Join(texts, " "))
	if strings.TrimSpace(joined) == "" {
		return c.Default
	}
	for _, r := range c.Rules {
		if r.Pattern.MatchString(joined) {
			return r.Category
		}
	}
	return c.Default
}

// Resolve returns explicit when it is set, otherwise the inferred category.
func (c Classifier) Resolve(explicit string, texts ...string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return strings.ToLower(v)
	}
	return c.Classify(texts...)
}

func words(ws ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(` + strings.Join(ws, "|") + `)`)
}

// Industry infers the sector a course is written for. Keywords cover
// Swedish and English.
var Industry = Classifier{
	Default: "general",
	Rules: []Rule{
		{"healthcare", words("patient", "vård", "sjuk", "omvårdnad", "klinisk", "clinical", "nurs", "hospital", "medic", "hälsa", "health", "läkemedel", "hygien")},
		{"finance", words("finans", "bank", "ekonomi", "invest", "redovisning", "accounting", "budget", "försäkring", "insurance")},
		{"technology", words("mjukvara", "software", "programmer", "it-säkerhet", "cyber", "cloud", "moln", "data", "ai\\b", "digital", "utveckl")},
		{"legal", words("juridik", "lag\\b", "lagstiftning", "gdpr", "compliance", "regelefterlevnad", "avtal", "contract", "legal")},
		{"education", words("pedagog", "lärare", "teacher", "skola", "school", "undervis", "elev", "student")},
		{"manufacturing", words("tillverkning", "manufactur", "produktion", "fabrik", "factory", "lean", "kvalitetsstyrning")},
		{"retail", words("butik", "retail", "försäljning", "sales", "kundservice", "customer service", "e-handel")},
		{"hospitality", words("hotell", "hotel", "restaurang", "restaurant", "turism", "tourism", "gästupplevelse")},
	},
}

// Tone infers a presentation tone when none is requested.
var Tone = Classifier{
	Default: "professional",
	Rules: []Rule{
		{"inspirational", words("inspir", "motiv", "vision", "förändring", "transform", "drömm", "passion")},
		{"casual", words("vardag", "enkel", "kul\\b", "fun\\b", "casual", "avslappnad", "tips")},
		{"educational", words("grunder", "introduktion", "introduction", "basics", "lär dig", "learn", "förstå", "understand", "steg för steg", "step by step")},
	},
}

// Audience infers who a course is aimed at.
var Audience = Classifier{
	Default: "general",
	Rules: []Rule{
		{"executives", words("ledning", "chef", "executive", "leadership", "ledarskap", "strategi", "strategy", "styrelse", "board")},
		{"healthcare-staff", words("sjukskötersk", "underskötersk", "nurse", "läkare", "physician", "vårdpersonal", "caregiver")},
		{"technical", words("utvecklare", "developer", "ingenjör", "engineer", "tekniker", "architect", "arkitekt")},
		{"beginners", words("nybörjare", "beginner", "grundläggande", "introduktion", "introduction", "fundamentals", "first steps")},
		{"students", words("student", "elev", "studerande", "kursdeltagare", "learner")},
	},
}

// ImageMood picks a visual mood for image prompts and photo queries.
var ImageMood = Classifier{
	Default: "neutral",
	Rules: []Rule{
		{"calm", words("trygg", "safe", "lugn", "calm", "omsorg", "care", "återhämtning", "recovery", "wellbeing", "välmående")},
		{"energetic", words("tillväxt", "growth", "innovation", "framgång", "success", "energi", "energy", "snabb", "fast")},
		{"serious", words("risk", "fara", "danger", "säkerhet", "security", "incident", "avvikelse", "error", "fel\\b", "compliance")},
		{"warm", words("team", "samarbete", "collaboration", "gemenskap", "community", "kund", "customer", "möte", "meeting")},
	},
}
