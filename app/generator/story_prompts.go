package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

const storyExtractSystemPrompt = `You are a veteran story material analyst skilled at pulling narrative building blocks out of raw source material.
Study the provided references and extract every element usable for constructing a serialized first-person story.
You must respond strictly in the requested JSON format and with nothing else.`

func buildStoryExtractPrompt(source string) string {
	return fmt.Sprintf(`Analyze the following source material and extract the core elements for building a serialized story:

--- Source material ---
%s

Respond strictly in this JSON format:
{
    "era": "when the story takes place, as concretely as possible",
    "setting": "where it takes place, one or two sentences",
    "characters": [
        {
            "name": "character name, invented if the material has none",
            "role": "protagonist / supporting / antagonist",
            "identity": "occupation or social position",
            "personality": "defining traits, one sentence",
            "motivation": "what drives them",
            "arc": "how they change, one sentence"
        }
    ],
    "core_conflict": "the central conflict, one or two sentences",
    "key_events": ["event 1", "event 2", "event 3", "event 4", "event 5"],
    "emotional_tone": "the emotional register, e.g. oppressive with a thread of hope",
    "story_seeds": ["plot thread worth developing 1", "thread 2", "thread 3"]
}`, source)
}

const storyOutlineSystemPrompt = `You are a lead fiction editor with a sharp sense for serialized pacing.
The opening third must hook the reader hard, the middle keeps escalating the conflict, and the ending needs a reversal or an emotional release.
You must respond strictly in the requested JSON format and with nothing else.`

func buildStoryOutlinePrompt(elements *storyElements, chapterCount, totalWords int) string {
	wordsPerChapter := totalWords / chapterCount

	characters, _ := json.Marshal(elements.Characters)
	events, _ := json.Marshal(elements.KeyEvents)
	seeds, _ := json.Marshal(elements.StorySeeds)

	return fmt.Sprintf(`Plan a %d-chapter serialized story from this material analysis:

Material analysis:
- Era: %s
- Setting: %s
- Core conflict: %s
- Characters: %s
- Key events: %s
- Emotional tone: %s
- Plot threads: %s

Total target length: about %d words
Each chapter: about %d words

Planning rules:
1. First-person narration throughout
2. Open with a hook sentence, then an unsettling scene, then a hint of the core conflict
3. Every chapter ends on an unresolved question
4. The finale must land with force, not trail off

Respond strictly in this JSON format:
{
    "story_title": "story title with an edge of suspense",
    "story_summary": "story synopsis in under 100 words",
    "narrator": {
        "name": "first-person narrator's name",
        "identity": "narrator's position in the story",
        "voice_style": "how the narration sounds, e.g. a middle-aged man looking back with some self-mockery"
    },
    "chapters": [
        {
            "chapter_num": 1,
            "chapter_title": "chapter title",
            "target_words": %d,
            "key_plot_points": ["plot point 1", "plot point 2", "plot point 3"],
            "emotional_curve": "emotional trajectory, e.g. calm, then tense, then shock",
            "chapter_hook": "the unresolved question the chapter ends on"
        }
    ]
}`, chapterCount,
		elements.Era, elements.Setting, elements.CoreConflict,
		characters, events, elements.EmotionalTone, seeds,
		totalWords, wordsPerChapter, wordsPerChapter)
}

func buildStoryChapterSystemPrompt(narrator storyNarrator) string {
	name := narrator.Name
	if name == "" {
		name = "the narrator"
	}
	voice := narrator.VoiceStyle
	if voice == "" {
		voice = "plain, unhurried recollection"
	}

	return fmt.Sprintf(`You are a serial fiction author who writes immersive first-person stories.

Writing rules:
1. Strict first-person point of view. The narrator is %s (%s). Voice: %s
2. Dialogue must be alive; each character speaks in their own way
3. Build scenes from sensory detail rather than summary
4. Never write "I thought to myself"; imply inner state through action and dialogue
5. No stock transitions: never "however", "suddenly", "it is worth noting", "without a doubt", "meanwhile"
6. Favor short sentences; use an occasional long one to shift the rhythm
7. Use concrete times and places instead of vague ones
8. Let the narration be imperfect: a hesitation, a self-correction, a brief digression pulled back

Output the chapter body only. No title, no chapter number, no commentary, no JSON. Plain Markdown paragraphs.`,
		name, narrator.Identity, voice)
}

func buildStoryChapterPrompt(ch *storyChapter, position, total int, summaries []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write chapter %d of %d: %s\n\n", position, total, ch.Title)

	b.WriteString("Previously:\n")
	if len(summaries) == 0 {
		b.WriteString("This is the opening chapter. Nothing has happened yet.\n")
	} else {
		for i, s := range summaries {
			fmt.Fprintf(&b, "Chapter %d: %s\n", i+1, s)
		}
	}

	fmt.Fprintf(&b, "\nChapter requirements:\n- Target length: %d words\n- Emotional trajectory: %s\n", ch.TargetWords, ch.EmotionalCurve)

	if len(ch.KeyPlotPoints) > 0 {
		b.WriteString("\nPlot points to cover:\n")
		for i, p := range ch.KeyPlotPoints {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
		}
	}

	if ch.Hook != "" {
		fmt.Fprintf(&b, "\nEnd the chapter on: %s\n", ch.Hook)
	}

	if position == 1 {
		b.WriteString(`
Opening chapter requirements:
1. The very first sentence must raise a question the reader needs answered
2. Establish something off-kilter within the first two paragraphs
3. Hint at the core conflict early without revealing it
4. Ground the scene with a concrete time, place and sensory detail
`)
	} else if position == total {
		b.WriteString(`
Final chapter requirements:
1. Resolve every open question raised earlier
2. Give the ending weight; let the consequences land
3. Close on a line that lingers rather than summarizes
`)
	}

	return b.String()
}

const storyAssembleSystemPrompt = `You are a senior story editor who turns chapter drafts into one smooth, complete story.

Your tasks:
1. Check the seams between chapters and add one or two bridging sentences where a cut feels abrupt
2. Keep the first-person voice and character names consistent throughout
3. Do not rewrite the chapters; only patch transitions and inconsistencies
4. Separate chapters with --- and start each one with a ## heading

Respond strictly in this JSON format:
{
    "full_story": "the complete story in Markdown, chapters separated by ---",
    "title": "final story title",
    "summary": "story blurb in under 200 words",
    "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}`

func buildStoryAssemblePrompt(title string, chapters []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Assemble the following chapter drafts into the complete story.\n\nStory title: %s\n\nChapter drafts:\n", title)
	for i, ch := range chapters {
		fmt.Fprintf(&b, "\n\n## Chapter %d\n\n%s", i+1, ch)
	}
	b.WriteString("\n\nCheck the transitions and consistency, then return the complete story in the JSON format.")

	return b.String()
}

const storyTransitionSystemPrompt = `You are a story editor who writes the bridge between chapters. Output one or two short bridging sentences and nothing else: no formatting, no explanation.`

func buildStoryTransitionPrompt(prevEnding, nextOpening string) string {
	return fmt.Sprintf(`End of the previous chapter:
%s

Start of the next chapter:
%s

Write one or two short sentences that carry the reader naturally from one to the other. Output the bridge alone.`,
		prevEnding, nextOpening)
}

const storyMetaSystemPrompt = `You are a story editor who writes gripping story blurbs. You must respond strictly in the requested JSON format and with nothing else.`

func buildStoryMetaPrompt(title, opening string) string {
	return fmt.Sprintf(`Write a blurb of under 200 words and five topic tags for this story.

Story title: %s
Opening of the story: %s

Respond strictly in this JSON format:
{
    "summary": "story blurb",
    "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"]
}`, title, opening)
}

const storyPolishSystemPrompt = `You are a prose doctor who makes machine-drafted fiction read like a person wrote it.

Polish checklist:
1. Cut stock transitions ("however", "it is worth noting", "without a doubt", "meanwhile"); where a turn is needed, make it concrete
2. Let the narrator hesitate, interject or briefly digress where it feels human
3. Tighten the rhythm: short sentences where the tension rises, longer ones where it settles
4. Replace vague time and vague feeling with concrete detail and physical reaction
5. Follow dialogue with a gesture or a beat of the scene

Keep the plot and structure untouched; polish at the wording level only.
Output the polished text directly. No commentary, no JSON.`

func buildStoryPolishPrompt(part string, position, total int) string {
	return fmt.Sprintf(`Polish this story section (%d of %d) so no trace of machine writing remains:

%s

Output the polished text directly.`, position, total, part)
}
