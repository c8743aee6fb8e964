package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kitabmazhab/kitab-agent/internal/intent"
	"github.com/kitabmazhab/kitab-agent/internal/knowledge"
	"github.com/kitabmazhab/kitab-agent/internal/search"
)

// NoComparisonFound is returned when neither the comparison chunks nor
// the per-school fallback produced anything.
const NoComparisonFound = "Tidak ditemukan informasi perbandingan."

// contextDelimiter separates the primary context from a secondary
// comparison retrieval.
const contextDelimiter = "\n\n---\n\n"

// topicSynonyms normalizes colloquial topic terms to the canonical
// query phrasing before a ruling search.
var topicSynonyms = map[string]string{
	"wudhu":   "thaharah wudhu",
	"sholat":  "shalat",
	"salat":   "shalat",
	"mandi":   "thaharah mandi",
	"tayamum": "thaharah tayammum",
	"nikah":   "nikah pernikahan",
	"menikah": "nikah pernikahan",
}

// Dispatcher executes the retrieval strategy selected by the router and
// assembles the final context. Every failure path degrades to a
// human-readable sentinel; this layer performs read-only queries and
// never returns an error to the caller.
type Dispatcher struct {
	retriever *search.Service
}

func NewDispatcher(retriever *search.Service) *Dispatcher {
	return &Dispatcher{retriever: retriever}
}

// AssembleContext runs the primary tool for it and, when IsComparison
// is set on a non-comparison primary tool, appends a secondary
// comparison retrieval. Returns the assembled context and the tools
// that produced it.
func (d *Dispatcher) AssembleContext(ctx context.Context, utterance string, it intent.Intent) (string, []intent.Tool) {
	toolsUsed := []intent.Tool{it.PrimaryTool}
	parts := []string{d.executePrimary(ctx, utterance, it)}

	if it.IsComparison && it.PrimaryTool != intent.ToolCompare {
		toolsUsed = append(toolsUsed, intent.ToolCompare)
		parts = append(parts, d.compareMazhab(ctx, topicOrUtterance(it, utterance)))
	}

	log.Info().
		Str("primary_tool", string(it.PrimaryTool)).
		Str("school", it.DetectedSchool).
		Str("topic", it.DetectedTopic).
		Bool("comparison", it.IsComparison).
		Msg("Context assembled")

	return strings.Join(parts, contextDelimiter), toolsUsed
}

func (d *Dispatcher) executePrimary(ctx context.Context, utterance string, it intent.Intent) string {
	switch it.PrimaryTool {
	case intent.ToolCompare:
		return d.compareMazhab(ctx, topicOrUtterance(it, utterance))
	case intent.ToolImamBio:
		if it.DetectedSchool == "" {
			return d.searchMazhab(ctx, utterance, "")
		}
		return d.imamBio(ctx, it.DetectedSchool)
	case intent.ToolFiqihRuling:
		return d.fiqihRuling(ctx, topicOrUtterance(it, utterance), it.DetectedSchool)
	case intent.ToolListKitab:
		if it.DetectedSchool == "" {
			return d.listAllKitab(ctx)
		}
		return d.listKitab(ctx, it.DetectedSchool)
	default:
		return d.searchMazhab(ctx, utterance, it.DetectedSchool)
	}
}

// compareMazhab queries the cross-school comparison chunks, falling
// back to one snippet per school under a school-labeled header.
func (d *Dispatcher) compareMazhab(ctx context.Context, topic string) string {
	results, err := d.retriever.Search(ctx, "perbandingan "+topic, 3, "", knowledge.CategoryComparison)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Comparison search failed")
	}

	if len(results) > 0 {
		contents := make([]string, 0, len(results))
		for _, result := range results {
			contents = append(contents, result.Content)
		}
		return strings.Join(contents, "\n\n")
	}

	// Fallback: one snippet per school.
	var parts []string
	for _, school := range knowledge.Schools {
		schoolResults, err := d.retriever.Search(ctx, topic, 2, string(school), "")
		if err != nil || len(schoolResults) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("=== MAZHAB %s ===\n%s",
			strings.ToUpper(string(school)), schoolResults[0].Content))
	}

	if len(parts) == 0 {
		return NoComparisonFound
	}
	return strings.Join(parts, "\n\n")
}

func (d *Dispatcher) imamBio(ctx context.Context, school string) string {
	results, err := d.retriever.Search(ctx, "imam biografi "+school, 2, school, knowledge.CategoryImamBiography)
	if err != nil {
		log.Warn().Err(err).Str("school", school).Msg("Biography search failed")
	}
	if len(results) > 0 {
		return results[0].Content
	}

	return d.retriever.ContextFor(ctx, "siapa imam pendiri mazhab "+school, 3, "")
}

func (d *Dispatcher) fiqihRuling(ctx context.Context, topic, school string) string {
	searchTopic := topic
	if canonical, ok := topicSynonyms[strings.ToLower(topic)]; ok {
		searchTopic = canonical
	}
	return d.retriever.ContextFor(ctx, "hukum "+searchTopic, 5, school)
}

func (d *Dispatcher) listKitab(ctx context.Context, school string) string {
	results, err := d.retriever.Search(ctx, "kitab rujukan "+school, 2, school, knowledge.CategoryKitabReference)
	if err != nil {
		log.Warn().Err(err).Str("school", school).Msg("Kitab search failed")
	}
	if len(results) > 0 {
		return results[0].Content
	}

	return d.retriever.ContextFor(ctx, "kitab utama mazhab "+school, 3, "")
}

// listAllKitab lists the reference works of every school in the fixed
// order, keeping empty-sentinel segments so the listing stays complete.
func (d *Dispatcher) listAllKitab(ctx context.Context) string {
	parts := make([]string, 0, len(knowledge.Schools))
	for _, school := range knowledge.Schools {
		parts = append(parts, d.listKitab(ctx, string(school)))
	}
	return strings.Join(parts, "\n\n")
}

func (d *Dispatcher) searchMazhab(ctx context.Context, query, school string) string {
	return d.retriever.ContextFor(ctx, query, 5, school)
}

func topicOrUtterance(it intent.Intent, utterance string) string {
	if it.DetectedTopic != "" {
		return it.DetectedTopic
	}
	return utterance
}
