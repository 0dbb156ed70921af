package generators

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"AutoPostAPI/models"
)

const (
	imageModelUnsplash    = "Unsplash API"
	imageModelPlaceholder = "Placeholder Service"

	truncatedCaptionLength = 2190
)

var (
	jsonFence       = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)\\n\\s*```")
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

func buildCaptionPrompt(req models.GenerationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a creative and engaging Instagram caption and a separate, concise image search query for a %q post.\n", req.Occasion)
	fmt.Fprintf(&b, "The post is for a %q context", req.Category)
	if req.Audience != "" && req.Audience != models.AudienceGeneral {
		fmt.Fprintf(&b, " and speaks to %s", req.Audience)
	}
	b.WriteString(".\n")
	b.WriteString("It should be concise, use relevant emojis, and include appropriate hashtags.\n")
	if hint := strings.TrimSpace(req.PromptHint); hint != "" {
		fmt.Fprintf(&b, "Also, consider this specific instruction: %q\n", hint)
	}
	b.WriteString(`The output should be in JSON format with two keys: "caption" (string) and "image_prompt" (string).` + "\n")
	b.WriteString(`Example: {"caption": "Happy Engineers' Day! #EngineersDay", "image_prompt": "engineers working on a project"}`)
	return b.String()
}

type captionPayload struct {
	Caption     string `json:"caption"`
	ImagePrompt string `json:"image_prompt"`
}

// parseCaption extracts caption and image prompt from the model output. The
// JSON may arrive inside a markdown fence. When it cannot be parsed the
// caption falls back to a generic sentence and ok is false.
func parseCaption(raw, occasion string) (caption, imagePrompt string, ok bool) {
	text := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var payload captionPayload
	ok = json.Unmarshal([]byte(text), &payload) == nil

	caption = strings.TrimSpace(payload.Caption)
	if caption == "" {
		caption = fmt.Sprintf("Generated post for %s.", occasion)
	}
	imagePrompt = strings.TrimSpace(payload.ImagePrompt)
	if imagePrompt == "" {
		imagePrompt = occasion
	}
	return caption, imagePrompt, ok
}

func truncateCaption(caption string) string {
	if utf8.RuneCountInString(caption) <= models.MaxCaptionLength {
		return caption
	}
	return string([]rune(caption)[:truncatedCaptionLength]) + "..."
}

// PlaceholderImageURL returns the branded placeholder used when no photo is
// available for occasion.
func PlaceholderImageURL(occasion string) string {
	clean := strings.TrimSpace(whitespaceRun.ReplaceAllString(nonAlphanumeric.ReplaceAllString(occasion, ""), " "))
	if clean == "" {
		return "https://placehold.co/1080x1080/4f46e5/ffffff.png"
	}
	return "https://placehold.co/1080x1080/4f46e5/ffffff.png?text=" + url.QueryEscape(clean)
}
