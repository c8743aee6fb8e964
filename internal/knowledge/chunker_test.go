package knowledge

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const sampleDocument = `{
  "mazhab": {
    "syafii": {
      "imam": {
        "nama": "Imam Muhammad bin Idris asy-Syafi'i",
        "lahir": "150 H / 767 M di Gaza, Palestina",
        "wafat": "204 H / 820 M di Mesir",
        "gelar": "Nashirus Sunnah",
        "biografi": "Lahir di Gaza dan hafal Al-Quran pada usia 7 tahun.",
        "guru": ["Imam Malik", "Muslim bin Khalid az-Zanji"],
        "murid_utama": ["Imam Ahmad bin Hanbal", "Al-Muzani"]
      },
      "metodologi": {
        "sumber_hukum": ["Al-Quran", "As-Sunnah", "Ijma", "Qiyas"],
        "ciri_khas": "Keseimbangan antara ahlul hadits dan ahlul ra'yi",
        "prinsip_utama": ["Hadits shahih didahulukan atas qiyas"]
      },
      "kitab_utama": [
        {
          "judul": "Al-Umm",
          "penulis": "Imam asy-Syafi'i",
          "deskripsi": "Kitab induk fiqih mazhab Syafi'i"
        },
        {
          "judul": "Ar-Risalah",
          "penulis": "Imam asy-Syafi'i",
          "deskripsi": "Kitab ushul fiqih pertama"
        }
      ],
      "hukum_fiqih": {
        "wudhu": {
          "rukun": ["Niat", "Membasuh wajah", "Membasuh kedua tangan"],
          "pembatal": ["Keluar sesuatu dari dua jalan", "Tidur nyenyak"]
        },
        "shalat": {
          "posisi_tangan": "Bersedekap di atas pusar di bawah dada"
        }
      },
      "penyebaran": ["Indonesia", "Malaysia", "Mesir", "Yaman"]
    },
    "hanafi": {
      "imam": {
        "nama": "Imam Abu Hanifah",
        "lahir": "80 H / 699 M di Kufah",
        "wafat": "150 H / 767 M di Baghdad",
        "gelar": "Al-Imam al-A'zham",
        "biografi": "Pedagang kain yang menjadi ahli fiqih terbesar di Kufah.",
        "guru": ["Hammad bin Abi Sulaiman"],
        "murid_utama": ["Abu Yusuf", "Muhammad asy-Syaibani"]
      },
      "kitab_utama": [
        {
          "judul": "Al-Fiqh al-Akbar",
          "penulis": "Imam Abu Hanifah",
          "deskripsi": "Kitab akidah"
        }
      ]
    }
  },
  "perbandingan_praktis": {
    "posisi_tangan_shalat": {
      "hanafi": "Bersedekap di bawah pusar",
      "syafii": "Bersedekap di atas pusar di bawah dada"
    },
    "qunut_subuh": {
      "hanafi": "Tidak qunut",
      "syafii": "Qunut setiap subuh"
    }
  },
  "adab_ikhtilaf": {
    "prinsip": ["Perbedaan mazhab adalah rahmat", "Saling menghormati pendapat"],
    "kutipan_ulama": ["Imam asy-Syafi'i: Pendapatku benar tapi mungkin salah."]
  }
}`

func buildSample(t *testing.T) []Chunk {
	t.Helper()
	chunks, err := NewBuilder().BuildJSON([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("BuildJSON() failed: %v", err)
	}
	return chunks
}

func TestBuild_ChunkCountsAndOrder(t *testing.T) {
	chunks := buildSample(t)

	// hanafi: biography + kitab. syafii: biography, methodology, kitab,
	// 2 rulings, spread. Then 2 comparisons and 1 adab chunk.
	expected := 2 + 6 + 2 + 1
	if len(chunks) != expected {
		t.Fatalf("Expected %d chunks, got %d", expected, len(chunks))
	}

	// Canonical school order: hanafi before syafii regardless of JSON order.
	if chunks[0].Metadata.School != "hanafi" {
		t.Errorf("Expected first chunk school hanafi, got %q", chunks[0].Metadata.School)
	}
	if chunks[2].Metadata.School != "syafii" {
		t.Errorf("Expected third chunk school syafii, got %q", chunks[2].Metadata.School)
	}

	last := chunks[len(chunks)-1]
	if last.Metadata.Category != CategoryAdabIkhtilaf {
		t.Errorf("Expected last chunk category %q, got %q", CategoryAdabIkhtilaf, last.Metadata.Category)
	}

	for i, chunk := range chunks {
		wantID := fmt.Sprintf("chunk_%d", i)
		if chunk.ID != wantID {
			t.Errorf("Expected chunk ID %q at position %d, got %q", wantID, i, chunk.ID)
		}
		if strings.TrimSpace(chunk.Text) == "" {
			t.Errorf("Chunk %d has empty text", i)
		}
	}
}

func TestBuild_BiographyChunk(t *testing.T) {
	chunks := buildSample(t)

	bio := chunks[0]
	if bio.Metadata.Category != CategoryImamBiography {
		t.Fatalf("Expected category %q, got %q", CategoryImamBiography, bio.Metadata.Category)
	}
	if bio.Metadata.ImamName != "Imam Abu Hanifah" {
		t.Errorf("Expected imam name in metadata, got %q", bio.Metadata.ImamName)
	}
	if !strings.HasPrefix(bio.Text, "MAZHAB HANAFI") {
		t.Errorf("Expected biography header, got: %s", bio.Text[:40])
	}
	if !strings.Contains(bio.Text, "Guru-guru: Hammad bin Abi Sulaiman") {
		t.Errorf("Expected guru list in biography text")
	}
}

func TestBuild_KitabChunkFormat(t *testing.T) {
	chunks := buildSample(t)

	var kitab *Chunk
	for i := range chunks {
		if chunks[i].Metadata.Category == CategoryKitabReference && chunks[i].Metadata.School == "syafii" {
			kitab = &chunks[i]
			break
		}
	}
	if kitab == nil {
		t.Fatal("No kitab chunk for syafii")
	}

	if !strings.HasPrefix(kitab.Text, "KITAB-KITAB UTAMA MAZHAB SYAFII") {
		t.Errorf("Unexpected kitab header: %s", kitab.Text[:40])
	}
	if !strings.Contains(kitab.Text, "• Al-Umm karya Imam asy-Syafi'i: Kitab induk fiqih mazhab Syafi'i") {
		t.Errorf("Expected bullet line for Al-Umm, got:\n%s", kitab.Text)
	}
}

func TestBuild_RulingChunks(t *testing.T) {
	chunks := buildSample(t)

	var wudhu *Chunk
	for i := range chunks {
		if chunks[i].Metadata.Topic == "wudhu" && chunks[i].Metadata.School == "syafii" {
			wudhu = &chunks[i]
			break
		}
	}
	if wudhu == nil {
		t.Fatal("No wudhu ruling chunk")
	}

	if wudhu.Metadata.Category != FiqihCategory("wudhu") {
		t.Errorf("Expected category %q, got %q", FiqihCategory("wudhu"), wudhu.Metadata.Category)
	}
	if !strings.HasPrefix(wudhu.Text, "HUKUM WUDHU MAZHAB SYAFII") {
		t.Errorf("Unexpected ruling header: %s", wudhu.Text[:40])
	}
	if !strings.Contains(wudhu.Text, "Rukun:") {
		t.Errorf("Expected humanized Rukun label, got:\n%s", wudhu.Text)
	}
	if !strings.Contains(wudhu.Text, "• Niat") {
		t.Errorf("Expected list items as bullets, got:\n%s", wudhu.Text)
	}
}

func TestBuild_ComparisonChunks(t *testing.T) {
	chunks := buildSample(t)

	var comparisons []Chunk
	for _, chunk := range chunks {
		if chunk.Metadata.Category == CategoryComparison {
			comparisons = append(comparisons, chunk)
		}
	}
	if len(comparisons) != 2 {
		t.Fatalf("Expected 2 comparison chunks, got %d", len(comparisons))
	}

	// Topics sorted: posisi_tangan_shalat before qunut_subuh.
	if comparisons[0].Metadata.Topic != "posisi_tangan_shalat" {
		t.Errorf("Expected first comparison topic posisi_tangan_shalat, got %q", comparisons[0].Metadata.Topic)
	}
	if comparisons[0].Metadata.School != "" {
		t.Errorf("Comparison chunk should have no school, got %q", comparisons[0].Metadata.School)
	}
	if !strings.HasPrefix(comparisons[0].Text, "PERBANDINGAN ANTAR MAZHAB: POSISI TANGAN SHALAT") {
		t.Errorf("Unexpected comparison header: %s", comparisons[0].Text[:60])
	}
	if !strings.Contains(comparisons[0].Text, "• Mazhab Hanafi: Bersedekap di bawah pusar") {
		t.Errorf("Expected per-school opinion line, got:\n%s", comparisons[0].Text)
	}

	// Hanafi listed before syafii inside the comparison body.
	hanafiIdx := strings.Index(comparisons[0].Text, "Mazhab Hanafi")
	syafiiIdx := strings.Index(comparisons[0].Text, "Mazhab Syafii")
	if hanafiIdx < 0 || syafiiIdx < 0 || hanafiIdx > syafiiIdx {
		t.Errorf("Expected canonical school order in comparison body")
	}
}

func TestBuild_SkipsMissingSections(t *testing.T) {
	doc := `{"mazhab": {"maliki": {"penyebaran": ["Maroko", "Tunisia"]}}}`
	chunks, err := NewBuilder().BuildJSON([]byte(doc))
	if err != nil {
		t.Fatalf("BuildJSON() failed: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Metadata.Category != CategoryGeographicalSpread {
		t.Errorf("Expected spread chunk, got %q", chunks[0].Metadata.Category)
	}
}

func TestBuildJSON_MalformedDocument(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not json", "not json at all"},
		{"top level array", `["mazhab"]`},
		{"school entry not object", `{"mazhab": {"hanafi": "just a string"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewBuilder().BuildJSON([]byte(tc.doc))
			if !errors.Is(err, ErrMalformedKnowledgeBase) {
				t.Errorf("Expected ErrMalformedKnowledgeBase, got %v", err)
			}
		})
	}
}

func TestBuild_EmptyDocument(t *testing.T) {
	chunks, err := NewBuilder().BuildJSON([]byte(`{}`))
	if err != nil {
		t.Fatalf("BuildJSON() failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty document, got %d", len(chunks))
	}
}

func TestMetadataMap_OmitsEmptyFields(t *testing.T) {
	m := Metadata{School: "hanafi", Category: CategoryMethodology}
	got := m.Map()

	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d: %v", len(got), got)
	}
	if got["school"] != "hanafi" || got["category"] != CategoryMethodology {
		t.Errorf("Unexpected map contents: %v", got)
	}
	if _, ok := got["topic"]; ok {
		t.Error("Empty topic should be omitted")
	}
}
