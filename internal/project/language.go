package project

import (
	"strings"
	"unicode"

	"github.com/bobarin/ugcstudio/internal/models"
)

// SpeechLocale maps a project language to the BCP 47 tag used by local speech engines.
var SpeechLocale = map[models.Language]string{
	models.LanguageJA: "ja-JP",
	models.LanguageEN: "en-US",
	models.LanguageKO: "ko-KR",
	models.LanguageZH: "zh-CN",
	models.LanguageFR: "fr-FR",
	models.LanguageIT: "it-IT",
}

var (
	frHints = []string{" le ", " la ", " les ", " des ", " pour ", " avec ", " est ", "bonjour", "merci", "très", "cette"}
	itHints = []string{" il ", " lo ", " gli ", " per ", " con ", " questo ", " questa ", "grazie", "ciao", "molto", "oggi"}
)

const latinExtras = "àâçéèêëîïôûùüÿñæœ"

// DetectLanguage guesses the script language from character classes and a few
// French and Italian function words.
func DetectLanguage(script string) models.LanguageSuggestion {
	text := strings.TrimSpace(script)
	if text == "" {
		return models.LanguageSuggestion{Language: models.LanguageJA, Confidence: 0, Reason: "script is empty"}
	}

	var kana, hangul, han, latin int
	for _, r := range text {
		switch {
		case r >= 0x3040 && r <= 0x30ff:
			kana++
		case r >= 0xac00 && r <= 0xd7af:
			hangul++
		case r >= 0x4e00 && r <= 0x9fff:
			han++
		case isLatinLetter(r):
			latin++
		}
	}

	lowered := " " + strings.ToLower(text) + " "
	fr := countHints(lowered, frHints)
	it := countHints(lowered, itHints)

	if hangul > 3 {
		return models.LanguageSuggestion{Language: models.LanguageKO, Confidence: 0.95, Reason: "hangul detected"}
	}
	if kana > 3 {
		return models.LanguageSuggestion{Language: models.LanguageJA, Confidence: 0.95, Reason: "hiragana/katakana detected"}
	}
	if han > 3 {
		if kana > 0 {
			return models.LanguageSuggestion{Language: models.LanguageJA, Confidence: 0.75, Reason: "kanji mixed with kana"}
		}
		return models.LanguageSuggestion{Language: models.LanguageZH, Confidence: 0.85, Reason: "han characters dominate"}
	}

	if latin > 0 {
		switch {
		case fr > it && fr >= 2:
			return models.LanguageSuggestion{Language: models.LanguageFR, Confidence: 0.82, Reason: "french vocabulary detected"}
		case it > fr && it >= 2:
			return models.LanguageSuggestion{Language: models.LanguageIT, Confidence: 0.82, Reason: "italian vocabulary detected"}
		case fr == it && fr >= 2:
			return models.LanguageSuggestion{Language: models.LanguageEN, Confidence: 0.55, Reason: "latin script, french and italian cues tied"}
		}
		return models.LanguageSuggestion{Language: models.LanguageEN, Confidence: 0.72, Reason: "latin script dominates"}
	}

	return models.LanguageSuggestion{Language: models.LanguageEN, Confidence: 0.4, Reason: "too little evidence, defaulting to english"}
}

func isLatinLetter(r rune) bool {
	lr := unicode.ToLower(r)
	if lr >= 'a' && lr <= 'z' {
		return true
	}
	return strings.ContainsRune(latinExtras, lr)
}

func countHints(text string, hints []string) int {
	n := 0
	for _, h := range hints {
		if strings.Contains(text, h) {
			n++
		}
	}
	return n
}

// IsCJK reports whether the language is written without spaces between words.
func IsCJK(lang models.Language) bool {
	return lang == models.LanguageJA || lang == models.LanguageZH || lang == models.LanguageKO
}
