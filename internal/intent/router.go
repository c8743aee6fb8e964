package intent

import (
	"strings"
)

// Tool enumerates the retrieval strategies the dispatcher can execute.
type Tool string

const (
	ToolSearch      Tool = "search_mazhab"
	ToolCompare     Tool = "compare_mazhab"
	ToolImamBio     Tool = "get_imam_bio"
	ToolFiqihRuling Tool = "get_fiqih_ruling"
	ToolListKitab   Tool = "list_kitab"
)

// Intent is the structured interpretation of one utterance. It is
// created fresh per query and never persisted.
type Intent struct {
	PrimaryTool    Tool
	DetectedSchool string
	DetectedTopic  string
	IsComparison   bool
}

// Router detects school, topic and operation from a raw utterance with
// a single case-insensitive keyword pass.
type Router struct {
	rules Rules
}

func NewRouter(rules Rules) *Router {
	return &Router{rules: rules}
}

// Route runs the detection rules in their fixed order. Later rules
// overwrite PrimaryTool: comparison can be overridden by biography,
// biography by a fiqih topic, a topic by kitab detection. This
// precedence-by-ordering is kept for compatibility with the existing
// bot behavior; IsComparison is independent of PrimaryTool and survives
// every override.
func (r *Router) Route(utterance string) Intent {
	message := strings.ToLower(utterance)

	intent := Intent{PrimaryTool: ToolSearch}

	// 1. School: first match in the fixed school order wins.
	for _, school := range r.rules.Schools {
		if containsAny(message, append([]string{school.School}, school.Variants...)) {
			intent.DetectedSchool = school.School
			break
		}
	}

	// 2. Comparison.
	if containsAny(message, r.rules.ComparisonKeywords) {
		intent.IsComparison = true
		intent.PrimaryTool = ToolCompare
	}

	// 3. Biography, only with a resolved school.
	if containsAny(message, r.rules.BiographyKeywords) && intent.DetectedSchool != "" {
		intent.PrimaryTool = ToolImamBio
	}

	// 4. Fiqih topic: first matching topic wins.
	for _, topic := range r.rules.Topics {
		if containsAny(message, topic.Keywords) {
			intent.DetectedTopic = topic.Topic
			intent.PrimaryTool = ToolFiqihRuling
			break
		}
	}

	// 5. Kitab reference, overriding a topic match.
	if containsAny(message, r.rules.KitabKeywords) {
		intent.PrimaryTool = ToolListKitab
	}

	return intent
}

func containsAny(message string, keywords []string) bool {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}
