package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TopicRule binds a fiqih topic to the keywords that signal it. Rule
// order matters: the first matching topic wins.
type TopicRule struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
}

// SchoolRule binds a school to the spelling variants accepted besides
// the canonical name.
type SchoolRule struct {
	School   string   `yaml:"school"`
	Variants []string `yaml:"variants"`
}

// Rules holds every keyword set the router scans. All sets are
// compiled-in by default and can be overridden from a YAML file.
type Rules struct {
	Schools            []SchoolRule `yaml:"schools"`
	ComparisonKeywords []string     `yaml:"comparison_keywords"`
	BiographyKeywords  []string     `yaml:"biography_keywords"`
	Topics             []TopicRule  `yaml:"topics"`
	KitabKeywords      []string     `yaml:"kitab_keywords"`
}

// DefaultRules returns the built-in keyword sets.
func DefaultRules() Rules {
	return Rules{
		Schools: []SchoolRule{
			{School: "hanafi", Variants: []string{"hanafie"}},
			{School: "maliki", Variants: []string{"malikie"}},
			{School: "syafii", Variants: []string{"syafi'i"}},
			{School: "hanbali", Variants: []string{"hambali"}},
		},
		ComparisonKeywords: []string{
			"perbedaan", "perbandingan", "beda", "berbeda", "compare", "versus", "vs",
		},
		BiographyKeywords: []string{
			"siapa", "biografi", "riwayat hidup", "sejarah", "pendiri", "imam",
		},
		Topics: []TopicRule{
			{Topic: "wudhu", Keywords: []string{"wudhu", "wudu", "berwudhu"}},
			{Topic: "shalat", Keywords: []string{"shalat", "sholat", "salat", "sembahyang"}},
			{Topic: "thaharah", Keywords: []string{"thaharah", "bersuci", "mandi wajib", "tayammum", "najis"}},
			{Topic: "zakat", Keywords: []string{"zakat", "sedekah wajib"}},
			{Topic: "puasa", Keywords: []string{"puasa", "shaum", "saum", "ramadhan"}},
			{Topic: "haji", Keywords: []string{"haji", "umrah", "ihram", "thawaf", "sa'i"}},
			{Topic: "nikah", Keywords: []string{"nikah", "pernikahan", "menikah", "wali", "mahar"}},
			{Topic: "muamalah", Keywords: []string{"jual beli", "riba", "muamalah", "perdagangan"}},
		},
		KitabKeywords: []string{
			"kitab", "buku", "rujukan", "referensi", "karya",
		},
	}
}

// LoadRules reads a rules file, filling any set left empty from the
// defaults. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		path = os.Getenv("INTENT_RULES_PATH")
	}
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, err
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, err
	}

	applyDefaults(&rules)

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}

	return rules, nil
}

func applyDefaults(rules *Rules) {
	defaults := DefaultRules()
	if len(rules.Schools) == 0 {
		rules.Schools = defaults.Schools
	}
	if len(rules.ComparisonKeywords) == 0 {
		rules.ComparisonKeywords = defaults.ComparisonKeywords
	}
	if len(rules.BiographyKeywords) == 0 {
		rules.BiographyKeywords = defaults.BiographyKeywords
	}
	if len(rules.Topics) == 0 {
		rules.Topics = defaults.Topics
	}
	if len(rules.KitabKeywords) == 0 {
		rules.KitabKeywords = defaults.KitabKeywords
	}
}

func (r *Rules) Validate() error {
	for _, school := range r.Schools {
		if school.School == "" {
			return fmt.Errorf("school rule with empty school name")
		}
	}
	for _, topic := range r.Topics {
		if topic.Topic == "" || len(topic.Keywords) == 0 {
			return fmt.Errorf("topic rule %q needs a topic and at least one keyword", topic.Topic)
		}
	}
	return nil
}
