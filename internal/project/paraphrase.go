package project

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bobarin/ugcstudio/internal/models"
)

// phrasebook holds the rotating openers and claim softening rules for one
// script language.
type phrasebook struct {
	openers []string
	// hedge replaces "100%".
	hedge  string
	claims *strings.Replacer
	// guarantee matches guarantee wording; soften rewrites each match.
	guarantee *regexp.Regexp
	soften    func(string) string
}

var phrasebooks = map[models.Language]phrasebook{
	models.LanguageJA: {
		openers: []string{
			"【結論から】%s",
			"正直に言うと、%s",
			"%s（本音レビュー）",
			"比べてみたら、%s",
			"毎日使って分かった。%s",
		},
		hedge:  "ほぼ",
		claims: strings.NewReplacer("絶対", "きっと", "保証", "期待"),
	},
	models.LanguageEN: {
		openers: []string{
			"Quick take: %s",
			"Honestly? %s",
			"%s (real review)",
			"Side by side: %s",
			"After a week of use: %s",
		},
		hedge:     "nearly",
		guarantee: regexp.MustCompile(`(?i)guarantee(d|s)?`),
		soften: func(m string) string {
			switch strings.ToLower(m) {
			case "guaranteed":
				return "expected"
			case "guarantees":
				return "expects"
			}
			return "expect"
		},
	},
	models.LanguageKO: {
		openers: []string{
			"한줄 요약: %s",
			"솔직히 말하면, %s",
			"%s (실사용 후기)",
			"직접 비교해보니, %s",
			"일주일 써보니: %s",
		},
		hedge:  "거의",
		claims: strings.NewReplacer("무조건", "아마", "보장", "기대"),
	},
	models.LanguageZH: {
		openers: []string{
			"先说结论：%s",
			"说实话，%s",
			"%s（真实测评）",
			"对比之后，%s",
			"用了一周：%s",
		},
		hedge:  "几乎",
		claims: strings.NewReplacer("绝对", "应该", "保证", "有望"),
	},
	models.LanguageFR: {
		openers: []string{
			"En bref : %s",
			"Franchement ? %s",
			"%s (avis sincère)",
			"Comparaison faite : %s",
			"Après une semaine : %s",
		},
		hedge:     "presque",
		claims:    strings.NewReplacer("absolument", "sans doute"),
		guarantee: regexp.MustCompile(`(?i)garanti(e|s|es)?\b`),
		soften: func(m string) string {
			return "prévu" + strings.ToLower(m[len("garanti"):])
		},
	},
	models.LanguageIT: {
		openers: []string{
			"In breve: %s",
			"Sinceramente? %s",
			"%s (recensione vera)",
			"A confronto: %s",
			"Dopo una settimana: %s",
		},
		hedge:     "quasi",
		claims:    strings.NewReplacer("assolutamente", "probabilmente"),
		guarantee: regexp.MustCompile(`(?i)garantit(o|a|i|e)\b`),
		soften: func(m string) string {
			return "previst" + strings.ToLower(m[len("garantit"):])
		},
	},
}

func phrasebookFor(lang models.Language) phrasebook {
	if pb, ok := phrasebooks[lang]; ok {
		return pb
	}
	return phrasebooks[models.LanguageEN]
}

// ParaphraseTemplateCount is the number of rotating openers per language.
func ParaphraseTemplateCount(lang models.Language) int {
	return len(phrasebookFor(lang).openers)
}

// Paraphrase rewrites a script for the item at index. The first non-empty line
// gets the opener index % len(templates); every line has absolute claims softened.
func Paraphrase(script string, index int, lang models.Language) string {
	templates := phrasebookFor(lang).openers
	slot := index % len(templates)
	if slot < 0 {
		slot += len(templates)
	}

	lines := strings.Split(script, "\n")
	opened := false
	for i, line := range lines {
		if !opened && strings.TrimSpace(line) != "" {
			line = fmt.Sprintf(templates[slot], strings.TrimSpace(line))
			opened = true
		}
		lines[i] = SoftenClaims(line, lang)
	}
	return strings.Join(lines, "\n")
}

// SoftenClaims replaces absolute or guarantee-style wording with a hedged
// equivalent in the script language.
func SoftenClaims(line string, lang models.Language) string {
	pb := phrasebookFor(lang)
	if pb.claims != nil {
		line = pb.claims.Replace(line)
	}
	line = strings.ReplaceAll(line, "100%", pb.hedge)
	if pb.guarantee != nil {
		line = pb.guarantee.ReplaceAllStringFunc(line, pb.soften)
	}
	return line
}
