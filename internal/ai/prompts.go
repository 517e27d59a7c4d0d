package ai

import (
	"fmt"
	"strings"

	"github.com/gnemet/LessonForge/internal/catalog"
	"github.com/gnemet/LessonForge/internal/lesson"
)

// Grounded search cannot be combined with a response schema, so step one asks
// for free text and step two does the structuring.
func IdentifyPrompt(date string) string {
	return fmt.Sprintf(`Identify the LDS "Come, Follow Me" lesson topic and assigned scripture readings for the week including Sunday, %s.
Please provide a concise summary of the lesson title and the specific scripture blocks assigned.`, date)
}

// SlidesSystemInstruction is the system prompt for slide generation.
func SlidesSystemInstruction(audience lesson.Audience) string {
	var b strings.Builder
	b.WriteString("You are an expert Latter-day Saint teacher.\n")
	b.WriteString(`Create a presentation lesson plan based on the provided "Come, Follow Me" lesson details.` + "\n\n")
	fmt.Fprintf(&b, "Audience Profile: %s\n\n", audience)

	b.WriteString("CRITICAL INSTRUCTIONS FOR CONTENT:\n")
	b.WriteString("1. QUESTIONS ONLY: Do NOT use standard bullet point statements. Every item in the 'bullets' array must be an engaging, open-ended QUESTION designed to spark discussion among the class members.\n")
	b.WriteString("2. Tone:\n")
	for _, e := range catalog.Audiences() {
		fmt.Fprintf(&b, "   - %s: %s (e.g., %q)\n", strings.ToUpper(e.Label), e.Tone, e.ExampleQuestion)
	}

	b.WriteString("\nCRITICAL INSTRUCTIONS FOR IMAGERY ('imageKeyword'):\n")
	for _, e := range catalog.Audiences() {
		fmt.Fprintf(&b, "- %s: Start with %q. Keep description concise (max 10 words).\n", strings.ToUpper(e.Label), e.ImageStyle)
	}

	fmt.Fprintf(&b, "\nGenerate %d-%d slides.\n", lesson.MinSlides, lesson.MaxSlides)
	b.WriteString("The 'imageKeyword' will be used by an AI image generator, so keep it short but descriptive of the style.\n")
	return b.String()
}

func SlidesUserPrompt(lessonContext string) string {
	return fmt.Sprintf("Here is the lesson context found via search: %s. Generate the slides now.", lessonContext)
}

// Field descriptions shared by the Gemini schema and the OpenAI prompt.
var slideFieldDescriptions = map[string]string{
	"bullets":            "A list of discussion questions. Do not use statements.",
	"scriptureReference": "Relevant verses for this specific slide",
	"discussionQuestion": "One main 'big idea' question for the class",
	"imageKeyword":       "Short visual prompt (max 10 words) describing style and subject",
	"speakerNotes":       "Tips for the teacher on how to present this slide",
}

var requiredSlideFields = []string{"title", "bullets", "imageKeyword", "speakerNotes"}

// jsonEnvelopeInstruction is appended for providers without schema support.
func jsonEnvelopeInstruction() string {
	var b strings.Builder
	b.WriteString(`Respond with a single JSON object of the form {"slides": [...]}. Each slide object has the fields:` + "\n")
	b.WriteString("- title (string, required)\n")
	for _, f := range []string{"bullets", "scriptureReference", "discussionQuestion", "imageKeyword", "speakerNotes"} {
		req := "optional"
		for _, r := range requiredSlideFields {
			if r == f {
				req = "required"
			}
		}
		typ := "string"
		if f == "bullets" {
			typ = "array of strings"
		}
		fmt.Fprintf(&b, "- %s (%s, %s): %s\n", f, typ, req, slideFieldDescriptions[f])
	}
	return b.String()
}
