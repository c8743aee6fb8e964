package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedKnowledgeBase reports a structurally invalid knowledge
// document. Ingestion aborts and the previously indexed generation, if
// any, stays queryable.
var ErrMalformedKnowledgeBase = errors.New("malformed knowledge base document")

// School identifies one of the four fiqih schools covered by the
// knowledge base.
type School string

const (
	SchoolHanafi  School = "hanafi"
	SchoolMaliki  School = "maliki"
	SchoolSyafii  School = "syafii"
	SchoolHanbali School = "hanbali"
)

// Schools is the fixed enumeration in canonical order. Chunk ordering,
// full kitab listings and comparison fallbacks all follow this order.
var Schools = []School{SchoolHanafi, SchoolMaliki, SchoolSyafii, SchoolHanbali}

// IsValidSchool reports whether name is one of the four schools.
func IsValidSchool(name string) bool {
	for _, s := range Schools {
		if string(s) == name {
			return true
		}
	}
	return false
}

// Chunk metadata categories.
const (
	CategoryImamBiography      = "imam_biography"
	CategoryMethodology        = "methodology"
	CategoryKitabReference     = "kitab_reference"
	CategoryComparison         = "comparison"
	CategoryGeographicalSpread = "geographical_spread"
	CategoryAdabIkhtilaf       = "adab_ikhtilaf"

	fiqihCategoryPrefix = "fiqih_"
)

// FiqihCategory returns the ruling category tag for a fiqih topic.
func FiqihCategory(topic string) string {
	return fiqihCategoryPrefix + topic
}

// Imam is the biography section of a school entry.
type Imam struct {
	Nama       string   `json:"nama"`
	Lahir      string   `json:"lahir"`
	Wafat      string   `json:"wafat"`
	Gelar      string   `json:"gelar"`
	Biografi   string   `json:"biografi"`
	Guru       []string `json:"guru"`
	MuridUtama []string `json:"murid_utama"`
}

// Metodologi describes how a school derives rulings.
type Metodologi struct {
	SumberHukum  []string `json:"sumber_hukum"`
	CiriKhas     string   `json:"ciri_khas"`
	PrinsipUtama []string `json:"prinsip_utama"`
}

// Kitab is one reference work of a school.
type Kitab struct {
	Judul     string `json:"judul"`
	Penulis   string `json:"penulis"`
	Deskripsi string `json:"deskripsi"`
}

// AdabIkhtilaf holds the document-wide etiquette section.
type AdabIkhtilaf struct {
	Prinsip      []string `json:"prinsip"`
	KutipanUlama []string `json:"kutipan_ulama"`
}

// SchoolEntry is the per-school subtree of the knowledge document.
// Every section is optional; a missing section simply yields no chunk.
type SchoolEntry struct {
	Imam       *Imam          `json:"imam"`
	Metodologi *Metodologi    `json:"metodologi"`
	KitabUtama []Kitab        `json:"kitab_utama"`
	HukumFiqih map[string]any `json:"hukum_fiqih"`
	Penyebaran []string       `json:"penyebaran"`
}

// Document is the parsed knowledge base.
type Document struct {
	Mazhab       map[string]SchoolEntry
	Perbandingan map[string]map[string]string
	Adab         *AdabIkhtilaf
}

// ParseDocument decodes and validates a knowledge base document.
// A non-object top level or a non-object school entry fails with
// ErrMalformedKnowledgeBase.
func ParseDocument(data []byte) (*Document, error) {
	var raw struct {
		Mazhab       map[string]json.RawMessage   `json:"mazhab"`
		Perbandingan map[string]map[string]string `json:"perbandingan_praktis"`
		Adab         *AdabIkhtilaf                `json:"adab_ikhtilaf"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKnowledgeBase, err)
	}

	doc := &Document{
		Mazhab:       make(map[string]SchoolEntry, len(raw.Mazhab)),
		Perbandingan: raw.Perbandingan,
		Adab:         raw.Adab,
	}

	for name, entryJSON := range raw.Mazhab {
		var entry SchoolEntry
		if err := json.Unmarshal(entryJSON, &entry); err != nil {
			return nil, fmt.Errorf("%w: school %q: %v", ErrMalformedKnowledgeBase, name, err)
		}
		doc.Mazhab[name] = entry
	}

	return doc, nil
}
