// Package presets holds the scene presets and script templates offered to a project.
package presets

import (
	"fmt"
	"strings"
)

type Scene struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Location    string   `json:"location" yaml:"location"`
	Lighting    string   `json:"lighting" yaml:"lighting"`
	CameraMove  string   `json:"cameraMove" yaml:"cameraMove"`
	Mood        string   `json:"mood" yaml:"mood"`
	Props       []string `json:"props" yaml:"props"`
	DurationSec int      `json:"durationSec" yaml:"durationSec"`
	Tags        []string `json:"tags" yaml:"tags"`
}

type Template struct {
	ID                     string   `json:"id" yaml:"id"`
	Title                  string   `json:"title" yaml:"title"`
	Style                  string   `json:"style" yaml:"style"`
	Body                   string   `json:"body" yaml:"body"`
	Placeholders           []string `json:"placeholders" yaml:"placeholders"`
	RecommendedDurationSec int      `json:"recommendedDurationSec" yaml:"recommendedDurationSec"`
}

// Catalog is the full preset set. The zero value is empty; use Default or LoadCatalog.
type Catalog struct {
	Scenes    []Scene    `json:"scenes" yaml:"scenes"`
	Templates []Template `json:"templates" yaml:"templates"`
}

const (
	sceneCount    = 100
	templateCount = 50
)

var (
	sceneLocations = []string{"リビング", "キッチン", "寝室", "オフィス", "カフェ", "ジム", "ベランダ", "洗面所", "玄関", "スタジオ"}
	sceneLighting  = []string{"自然光", "ソフトボックス", "夕方の逆光", "ネオン", "暖色ライト"}
	sceneCameras   = []string{"固定", "ゆっくりパン", "手持ち風", "ズームイン", "俯瞰"}
	sceneMoods     = []string{"清潔感", "高級感", "親しみ", "元気", "落ち着き"}
	sceneProps     = []string{"商品パッケージ", "マグカップ", "観葉植物", "ノートPC"}
	sceneTags      = []string{"UGC", "リアル", "縦動画"}

	templateHooks = []string{"最初の3秒で惹きつける", "失敗談から入る", "比較で見せる", "ビフォーアフター", "体験レビュー"}
	templateCTAs  = []string{"今すぐ詳細を見る", "プロフィールのリンクをチェック", "保存してあとで見返してね", "コメントで質問してね"}

	templatePlaceholders = []string{"target_audience", "pain_point", "product_name", "usage_scene", "benefit_1", "benefit_2", "benefit_3"}
)

// Default generates the built-in catalog of 100 scenes and 50 templates.
func Default() *Catalog {
	c := &Catalog{
		Scenes:    make([]Scene, sceneCount),
		Templates: make([]Template, templateCount),
	}
	for i := range c.Scenes {
		location := sceneLocations[i%len(sceneLocations)]
		c.Scenes[i] = Scene{
			ID:          fmt.Sprintf("scene-%03d", i+1),
			Name:        fmt.Sprintf("%sシーン %d", location, i+1),
			Location:    location,
			Lighting:    sceneLighting[i%len(sceneLighting)],
			CameraMove:  sceneCameras[i%len(sceneCameras)],
			Mood:        sceneMoods[i%len(sceneMoods)],
			Props:       append([]string(nil), sceneProps[:2+i%3]...),
			DurationSec: 12 + i%10,
			Tags:        append([]string(nil), sceneTags...),
		}
	}
	for i := range c.Templates {
		hook := templateHooks[i%len(templateHooks)]
		c.Templates[i] = Template{
			ID:                     fmt.Sprintf("tpl-%03d", i+1),
			Title:                  fmt.Sprintf("TikTok Shop台本テンプレ %d", i+1),
			Style:                  hook,
			Body:                   templateBody(hook, templateCTAs[i%len(templateCTAs)]),
			Placeholders:           append([]string(nil), templatePlaceholders...),
			RecommendedDurationSec: 20 + i%25,
		}
	}
	return c
}

func templateBody(hook, cta string) string {
	return strings.Join([]string{
		"【導入】" + hook + "！",
		"【悩み】{{target_audience}}の悩みは「{{pain_point}}」。",
		"【提案】そこで{{product_name}}を{{usage_scene}}で使ってみました。",
		"【根拠】{{benefit_1}}・{{benefit_2}}・{{benefit_3}}が特に実感ポイント。",
		"【締め】" + cta + "。",
	}, "\n")
}

func (c *Catalog) Scene(id string) (Scene, bool) {
	for _, s := range c.Scenes {
		if s.ID == id {
			return s, true
		}
	}
	return Scene{}, false
}

func (c *Catalog) Template(id string) (Template, bool) {
	for _, t := range c.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
