package generator

import (
	"fmt"
	"strings"
)

// styleDescriptions expands a direction's style key into prompt guidance.
// Unknown keys fall back to professional.
var styleDescriptions = map[string]string{
	"professional":  "professional and rigorous, data driven, citing industry reports and research, written for practitioners",
	"casual":        "relaxed and approachable, plain language, everyday analogies and examples for a general audience",
	"humorous":      "witty and playful, using jokes and reversals to carry the knowledge, entertaining like good stand-up",
	"academic":      "academically rigorous, tightly argued, well referenced, suitable for scholarly discussion",
	"analytical":    "analysis heavy, leaning on comparisons, trends and concrete numbers to make every point",
	"controversial": "opinionated and contrarian, arguing a bold counter-mainstream position with both sides examined",
	"comparison":    "comparative review format, side by side across several dimensions, listing pros and cons to help readers decide",
	"storytelling":  "narrative driven, unfolding through real stories and cases, built for emotional resonance",
	"tutorial":      "tutorial format, clear numbered steps, code samples or concrete instructions where they help",
}

func styleDescription(style string) string {
	if desc, ok := styleDescriptions[style]; ok {
		return desc
	}
	return styleDescriptions["professional"]
}

const draftFormatContract = `You must respond with exactly this JSON structure and nothing else:
{
    "title": "article title, 8 to 15 words, containing the core keyword",
    "content": "article body in Markdown",
    "summary": "summary of at most 60 words, used as the article description",
    "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}`

// Naturalness addons by anti-detection level. Level 1 softens the obvious
// patterns, level 2 adds the full humanizing rule set, level 3 additionally
// demands personal material in every piece.
const antiDetectLight = `

## Naturalness requirements
- Avoid stock transition phrases such as "however", "moreover", "it is worth noting", "in conclusion"
- Use conversational wording where it fits
- Vary paragraph length instead of keeping it uniform`

const antiDetectFull = `

## Humanized writing rules (strict)

Banned phrases: "however", "moreover", "it is worth noting", "undoubtedly", "meanwhile", "in this era of", "with the development of", "in summary", "as we all know", "it is obvious that", "needless to say".

Required habits of a real author:
1. Conversational transitions: "put simply", "in other words", "look at it this way", "to be honest"
2. Personal framing: "personally I think", "as far as I know", "I ran into this before", "a friend once told me"
3. Hedged statements: "probably", "roughly", "I am not entirely sure, but"
4. Occasional digression pulled back: "but I digress, back to the point"
5. Random paragraph length: some paragraphs 2-3 sentences, some 7-8, never uniform
6. Sentence rhythm: alternate long and short, use the occasional rhetorical question or exclamation
7. Concrete over precise: "late last year" instead of "recently", "around 70 percent" instead of "72.3 percent"
8. Occasional self-deprecation or admitted limits: "I may be off on this one, take it with a grain of salt"`

const antiDetectPersonal = `
9. At least two cases in every piece written as first-hand experience
10. Industry slang and insider references where the audience would use them`

const antiDetectUserLight = `
Note: avoid stock AI phrasing, keep the voice natural.
`

const antiDetectUserFull = `
Humanizing requirements (mandatory):
- Never use stock transitions like "however", "it is worth noting", "undoubtedly"
- Write like a real columnist with a personal voice and conversational wording
- Weave in 2-3 concrete cases or first-hand experiences
- Vary paragraph length and sentence structure
- Imperfect, hedged statements are allowed and welcome
`

func antiDetectSystemAddon(level int) string {
	switch {
	case level >= 3:
		return antiDetectFull + antiDetectPersonal
	case level == 2:
		return antiDetectFull
	case level == 1:
		return antiDetectLight
	default:
		return ""
	}
}

func antiDetectUserAddon(level int) string {
	switch {
	case level >= 2:
		return antiDetectUserFull
	case level == 1:
		return antiDetectUserLight
	default:
		return ""
	}
}

func buildArticleSystemPrompt(antiDetectLevel int) string {
	return fmt.Sprintf(`You are a top columnist with a six-figure following whose articles regularly reach the trending page.

## Writing method
- Build the skeleton first: core thesis, 3-5 supporting arguments, evidence for each
- Place a counter-intuitive observation at a key point to make readers think
- Back every claim with data, a case or a chain of reasoning

## Layout conventions
- Break sections with ## second-level headings
- Mark key statements in **bold**
- Use > quote blocks to highlight punchlines or data
- Use ordered or unordered lists to condense key points
- Separate major sections with --- dividers
%s
## Output format
%s`, antiDetectSystemAddon(antiDetectLevel), draftFormatContract)
}

func buildArticleUserPrompt(topic, style string, wordCount, antiDetectLevel int, references string) string {
	refsBlock := ""
	if references != "" {
		refsBlock = fmt.Sprintf(`
Background material for grounding (do not copy from it):
%s
`, references)
	}

	return fmt.Sprintf(`Write a column article on the topic "%s".
%s
Requirements:
- Writing style: %s
- Target length: about %d words
- The title must grab attention and contain the core keyword
- Go deep, offer a distinct point of view, never generic filler
- Format the body in Markdown
- Pick 5 related tags with high reader interest
- Close with an open question that invites comments
%s
Respond strictly in the specified JSON format.`, topic, refsBlock, styleDescription(style), wordCount, antiDetectUserAddon(antiDetectLevel))
}

const topicsSystemPrompt = `You are a content planning expert with a talent for spotting hot topics and angles readers care about.
You generate fresh, attractive article topics for a given content direction.
You must respond strictly in JSON format and return nothing else.`

func buildTopicsUserPrompt(name, description, keywords string, existing []string, count int) string {
	existingBlock := ""
	if len(existing) > 0 {
		var lines []string
		for _, topic := range existing {
			lines = append(lines, "- "+topic)
		}
		existingBlock = fmt.Sprintf(`

The following topics were already written. You must avoid repeating them or producing close variants:
%s
`, strings.Join(lines, "\n"))
	}

	if description == "" {
		description = "none"
	}

	return fmt.Sprintf(`Generate %d article topics for the following content direction (extras allowed, they will be filtered):

Direction: %s
Description: %s
Core keywords: %s
%s
Topic requirements:
1. Each topic takes a distinct angle, none may overlap with existing topics
2. Titles should follow proven viral patterns: question form, numbered form, belief-challenging form, experience-sharing form
3. Titles of 8 to 15 words containing a core keyword
4. Topics should carry discussion potential
5. Cover different sub-directions and entry points

Respond strictly in this JSON format:
{
    "topics": [
        "first topic title",
        "second topic title"
    ]
}`, count, name, description, keywords, existingBlock)
}

const analyzeSystemPrompt = `You are a senior content strategy analyst skilled at profiling the topic, style and audience of written material.
Analyze the reference articles carefully and extract the key information.
You must respond strictly in the specified JSON format and return nothing else.`

func buildAnalyzeUserPrompt(references []Reference) string {
	var refs strings.Builder
	for i, ref := range references {
		fmt.Fprintf(&refs, "\n\n--- Reference %d: %s ---\n%s", i+1, ref.Title, truncateRunes(ref.Content, 2000))
	}

	return fmt.Sprintf(`Analyze the following %d reference articles and extract the core information:
%s

Respond strictly in this JSON format:
{
    "main_topic": "the core subject area of these articles, a few words",
    "sub_topics": ["sub topic 1", "sub topic 2", "sub topic 3"],
    "writing_style": "overall writing style description",
    "target_audience": "description of the target readership",
    "keywords": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5"],
    "core_viewpoints": ["viewpoint 1", "viewpoint 2", "viewpoint 3"],
    "content_gaps": ["related angle these articles do not cover 1", "angle 2", "angle 3"]
}`, len(references), refs.String())
}

const planSystemPrompt = `You are a senior column planning editor who designs new article series on top of existing material.
Based on the analysis of the reference articles, plan a fresh series where every piece has a differentiated angle.
No article may rehash the reference content.
You must respond strictly in the specified JSON format and return nothing else.`

func buildPlanUserPrompt(analysis *analysisPayload, count int) string {
	return fmt.Sprintf(`Based on this analysis of the reference articles, plan %d new related articles:

Analysis:
- Core topic: %s
- Sub topics: %s
- Writing style: %s
- Target audience: %s
- Keywords: %s
- Core viewpoints: %s
- Uncovered angles: %s

Planning requirements:
1. Each article takes a unique angle and entry point, never duplicating the references
2. Cover dimensions and viewpoints the references missed
3. Articles relate to each other without overlapping
4. Titles follow proven viral patterns: question form, numbered form, belief-challenging form
5. Each article lists its concrete key points

Respond strictly in this JSON format:
{
    "series_title": "series title",
    "description": "series introduction, under 30 words",
    "recommended_style": "recommended style (professional/casual/humorous/academic/storytelling/tutorial)",
    "articles": [
        {
            "order": 1,
            "title": "article title, 8 to 15 words",
            "angle": "the unique angle of this piece, one phrase",
            "description": "content outline, under 30 words",
            "key_points": ["point 1", "point 2", "point 3", "point 4"]
        }
    ]
}`, count,
		analysis.MainTopic,
		strings.Join(analysis.SubTopics, ", "),
		analysis.WritingStyle,
		analysis.TargetAudience,
		strings.Join(analysis.Keywords, ", "),
		strings.Join(analysis.CoreViewpoints, "; "),
		strings.Join(analysis.ContentGaps, "; "))
}

func buildSeriesArticleUserPrompt(item *plannedItem, plan *planPayload, analysis *analysisPayload, style string, wordCount, position, total int) string {
	var points []string
	for _, p := range item.KeyPoints {
		points = append(points, "- "+p)
	}

	return fmt.Sprintf(`Write a column article titled "%s".

Background:
- This is part %d of %d in the series "%s"
- Core subject area: %s
- Target audience: %s
- The unique angle of this piece: %s
- Article outline: %s

Key points to cover:
%s

Writing requirements:
- Writing style: %s
- Target length: about %d words
- The content must be original, never copied from the references
- Go deep on this article's unique angle with distinct insights
- Format the body in Markdown
- Pick 5 related tags with high reader interest
- Close with an open question that invites comments

Respond strictly in the specified JSON format.`,
		item.Title, position, total, plan.SeriesTitle,
		analysis.MainTopic, analysis.TargetAudience,
		item.Angle, item.Description,
		strings.Join(points, "\n"),
		styleDescription(style), wordCount)
}
