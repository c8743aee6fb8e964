package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// Metadata is the typed metadata record attached to every chunk.
// School is empty only for cross-school content (comparisons, adab).
type Metadata struct {
	School   string
	Category string
	Topic    string
	ImamName string
}

// Map renders the metadata as string pairs for the vector store,
// omitting empty fields.
func (m Metadata) Map() map[string]string {
	out := make(map[string]string, 4)
	if m.School != "" {
		out["school"] = m.School
	}
	if m.Category != "" {
		out["category"] = m.Category
	}
	if m.Topic != "" {
		out["topic"] = m.Topic
	}
	if m.ImamName != "" {
		out["imam_name"] = m.ImamName
	}
	return out
}

// Chunk is one independently retrievable passage.
type Chunk struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Builder turns a knowledge document into retrievable chunks.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// BuildJSON parses raw document bytes and builds chunks.
func (b *Builder) BuildJSON(data []byte) ([]Chunk, error) {
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	return b.Build(doc), nil
}

// Build produces the flat ordered chunk sequence: per school one
// biography, methodology, kitab reference and geographic spread chunk
// plus one ruling chunk per fiqih topic, then one comparison chunk per
// cross-school topic and at most one adab chunk. Schools follow the
// canonical order, fiqih and comparison topics are sorted so rebuilds
// are deterministic.
func (b *Builder) Build(doc *Document) []Chunk {
	var chunks []Chunk

	add := func(text string, meta Metadata) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:       fmt.Sprintf("chunk_%d", len(chunks)),
			Text:     text,
			Metadata: meta,
		})
	}

	for _, name := range schoolOrder(doc.Mazhab) {
		entry := doc.Mazhab[name]
		title := titleCase(name)

		if imam := entry.Imam; imam != nil {
			text := fmt.Sprintf(`MAZHAB %s

Imam: %s
Lahir: %s
Wafat: %s
Gelar: %s

Biografi:
%s

Guru-guru: %s
Murid utama: %s`,
				strings.ToUpper(title),
				imam.Nama, imam.Lahir, imam.Wafat, imam.Gelar, imam.Biografi,
				strings.Join(imam.Guru, ", "),
				strings.Join(imam.MuridUtama, ", "))
			add(text, Metadata{School: name, Category: CategoryImamBiography, ImamName: imam.Nama})
		}

		if metod := entry.Metodologi; metod != nil {
			text := fmt.Sprintf(`METODOLOGI MAZHAB %s

Sumber Hukum:
- %s

Ciri Khas:
%s

Prinsip Utama:
- %s`,
				strings.ToUpper(title),
				strings.Join(metod.SumberHukum, "\n- "),
				metod.CiriKhas,
				strings.Join(metod.PrinsipUtama, "\n- "))
			add(text, Metadata{School: name, Category: CategoryMethodology})
		}

		if len(entry.KitabUtama) > 0 {
			var lines []string
			for _, kitab := range entry.KitabUtama {
				lines = append(lines, fmt.Sprintf("• %s karya %s: %s", kitab.Judul, kitab.Penulis, kitab.Deskripsi))
			}
			text := fmt.Sprintf("KITAB-KITAB UTAMA MAZHAB %s\n\n%s",
				strings.ToUpper(title), strings.Join(lines, "\n"))
			add(text, Metadata{School: name, Category: CategoryKitabReference})
		}

		for _, topic := range sortedKeys(entry.HukumFiqih) {
			var sb strings.Builder
			fmt.Fprintf(&sb, "HUKUM %s MAZHAB %s\n\n", strings.ToUpper(topic), strings.ToUpper(title))
			renderRules(&sb, entry.HukumFiqih[topic], 0)
			add(sb.String(), Metadata{School: name, Category: FiqihCategory(topic), Topic: topic})
		}

		if len(entry.Penyebaran) > 0 {
			text := fmt.Sprintf(`PENYEBARAN MAZHAB %s

Mazhab %s tersebar luas di wilayah berikut:
%s

Mazhab ini menjadi mazhab mayoritas di daerah-daerah tersebut dan mempengaruhi praktik keagamaan masyarakat setempat.`,
				strings.ToUpper(title), title, strings.Join(entry.Penyebaran, ", "))
			add(text, Metadata{School: name, Category: CategoryGeographicalSpread})
		}
	}

	for _, topic := range sortedKeys(doc.Perbandingan) {
		opinions := doc.Perbandingan[topic]
		var sb strings.Builder
		fmt.Fprintf(&sb, "PERBANDINGAN ANTAR MAZHAB: %s\n\n", strings.ToUpper(humanize(topic)))
		for _, school := range schoolOrder(opinions) {
			fmt.Fprintf(&sb, "• Mazhab %s: %s\n", titleCase(school), opinions[school])
		}
		add(sb.String(), Metadata{Category: CategoryComparison, Topic: topic})
	}

	if adab := doc.Adab; adab != nil {
		text := fmt.Sprintf(`ADAB DALAM PERBEDAAN MAZHAB

Prinsip-prinsip dalam menyikapi perbedaan mazhab:
• %s

Kutipan dari para Imam:

%s`,
			strings.Join(adab.Prinsip, "\n• "),
			strings.Join(adab.KutipanUlama, "\n\n"))
		add(text, Metadata{Category: CategoryAdabIkhtilaf})
	}

	return chunks
}

// renderRules writes a nested ruling structure as an indented outline.
// Keys are humanized from snake_case, string lists become bullet points.
func renderRules(sb *strings.Builder, value any, indent int) {
	rules, ok := value.(map[string]any)
	if !ok {
		fmt.Fprintf(sb, "%s%v\n", strings.Repeat("  ", indent), value)
		return
	}

	prefix := strings.Repeat("  ", indent)
	for _, key := range sortedKeys(rules) {
		label := humanizeTitle(key)
		switch v := rules[key].(type) {
		case map[string]any:
			fmt.Fprintf(sb, "%s%s:\n", prefix, label)
			renderRules(sb, v, indent+1)
		case []any:
			fmt.Fprintf(sb, "%s%s:\n", prefix, label)
			for _, item := range v {
				switch it := item.(type) {
				case map[string]any:
					for _, k := range sortedKeys(it) {
						fmt.Fprintf(sb, "%s  • %s: %v\n", prefix, k, it[k])
					}
				default:
					fmt.Fprintf(sb, "%s  • %v\n", prefix, it)
				}
			}
		default:
			fmt.Fprintf(sb, "%s%s: %v\n", prefix, label, v)
		}
	}
}

// schoolOrder returns the keys of m with the canonical schools first,
// any unknown keys sorted after them.
func schoolOrder[V any](m map[string]V) []string {
	var names []string
	for _, s := range Schools {
		if _, ok := m[string(s)]; ok {
			names = append(names, string(s))
		}
	}
	var extra []string
	for name := range m {
		if !IsValidSchool(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleCase capitalizes the first letter only, like the school names
// rendered in chunk bodies (Hanafi, Syafii).
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// humanize replaces snake_case separators with spaces.
func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

// humanizeTitle turns snake_case keys into Title Case labels.
func humanizeTitle(s string) string {
	words := strings.Split(humanize(s), " ")
	for i, w := range words {
		words[i] = titleCase(w)
	}
	return strings.Join(words, " ")
}
