package generator

import (
	"github.com/lysyi3m/content-pilot/app/database"
)

// Reference is one piece of source material fed to analysis prompts
type Reference struct {
	Title   string
	Content string
}

// Request describes one generation run. Count bounds the number of articles
// in agent mode and the chapter count in story mode; zero picks the mode's
// default.
type Request struct {
	Direction  *database.ContentDirection
	Topic      string
	Count      int
	References []Reference
}

// Result reports what a run produced. Failed counts drafts that were
// planned but could not be generated (agent mode tolerates partial output).
type Result struct {
	Articles []database.Article
	Planned  int
	Failed   int
}

// draftPayload is the JSON contract every article completion must follow
type draftPayload struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

// analysisPayload is the agent mode reference analysis
type analysisPayload struct {
	MainTopic      string   `json:"main_topic"`
	SubTopics      []string `json:"sub_topics"`
	WritingStyle   string   `json:"writing_style"`
	TargetAudience string   `json:"target_audience"`
	Keywords       []string `json:"keywords"`
	CoreViewpoints []string `json:"core_viewpoints"`
	ContentGaps    []string `json:"content_gaps"`
}

// planPayload is the agent mode series plan
type planPayload struct {
	SeriesTitle      string        `json:"series_title"`
	Description      string        `json:"description"`
	RecommendedStyle string        `json:"recommended_style"`
	Articles         []plannedItem `json:"articles"`
}

type plannedItem struct {
	Order       int      `json:"order"`
	Title       string   `json:"title"`
	Angle       string   `json:"angle"`
	Description string   `json:"description"`
	KeyPoints   []string `json:"key_points"`
}

// storyElements is the story mode material extraction
type storyElements struct {
	Era           string           `json:"era"`
	Setting       string           `json:"setting"`
	Characters    []storyCharacter `json:"characters"`
	CoreConflict  string           `json:"core_conflict"`
	KeyEvents     []string         `json:"key_events"`
	EmotionalTone string           `json:"emotional_tone"`
	StorySeeds    []string         `json:"story_seeds"`
}

type storyCharacter struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Identity    string `json:"identity"`
	Personality string `json:"personality"`
	Motivation  string `json:"motivation"`
	Arc         string `json:"arc"`
}

// storyOutline is the story mode chapter plan
type storyOutline struct {
	Title    string         `json:"story_title"`
	Summary  string         `json:"story_summary"`
	Narrator storyNarrator  `json:"narrator"`
	Chapters []storyChapter `json:"chapters"`
}

type storyNarrator struct {
	Name       string `json:"name"`
	Identity   string `json:"identity"`
	VoiceStyle string `json:"voice_style"`
}

type storyChapter struct {
	Number         int      `json:"chapter_num"`
	Title          string   `json:"chapter_title"`
	TargetWords    int      `json:"target_words"`
	KeyPlotPoints  []string `json:"key_plot_points"`
	EmotionalCurve string   `json:"emotional_curve"`
	Hook           string   `json:"chapter_hook"`
}

// storyMeta is the final title and description pass
type storyMeta struct {
	FullStory string   `json:"full_story"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
}

// topicsPayload is the topic selection response
type topicsPayload struct {
	Topics []string `json:"topics"`
}
