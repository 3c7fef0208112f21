package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/tmc/langchaingo/llms"

	"pdf-tagger/extract"
	"pdf-tagger/geometry"
	"pdf-tagger/regions"
)

// contextMargin is how far, in canvas pixels, around a region text counts as its context.
const contextMargin = 40

var errEmptyCrop = errors.New("region lies outside the rendered page")

// suggestAltText asks the vision model to describe the part of the page covered by r.
func (app *App) suggestAltText(ctx context.Context, ws *Workspace, r regions.Region) (string, error) {
	source, _ := ws.Source()

	page, err := source.Rasterize(ctx, r.Page, app.Scale)
	if err != nil {
		return "", fmt.Errorf("error rendering page %d: %w", r.Page, err)
	}
	crop, err := cropRegion(page, r.Box)
	if err != nil {
		return "", err
	}

	var jpegBuffer bytes.Buffer
	if err := imaging.Encode(&jpegBuffer, crop, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("error encoding region image: %w", err)
	}

	language := r.Language
	if language == "" {
		language = currentSettings().DefaultLanguage
	}
	prompt, err := altTextPrompt(language, r.Label, app.regionContext(ctx, source, r))
	if err != nil {
		return "", err
	}
	log.Debugf("Alt text prompt: %s", prompt)

	// If not OpenAI then use binary part for image, otherwise, use the ImageURL part with encoding from https://platform.openai.com/docs/guides/vision
	jpegBytes := jpegBuffer.Bytes()
	var parts []llms.ContentPart
	if strings.ToLower(visionLlmProvider) != "openai" {
		parts = []llms.ContentPart{
			llms.BinaryPart("image/jpeg", jpegBytes),
			llms.TextPart(prompt),
		}
	} else {
		base64Image := base64.StdEncoding.EncodeToString(jpegBytes)
		parts = []llms.ContentPart{
			llms.ImageURLPart(fmt.Sprintf("data:image/jpeg;base64,%s", base64Image)),
			llms.TextPart(prompt),
		}
	}

	completion, err := app.VisionLLM.GenerateContent(ctx, []llms.MessageContent{
		{
			Parts: parts,
			Role:  llms.ChatMessageTypeHuman,
		},
	})
	if err != nil {
		return "", fmt.Errorf("error getting response from LLM: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	return strings.TrimSpace(strings.Trim(completion.Choices[0].Content, "\" \n")), nil
}

func altTextPrompt(language, label, nearby string) (string, error) {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	var promptBuffer bytes.Buffer
	err := altTextTemplate.Execute(&promptBuffer, map[string]interface{}{
		"Language": language,
		"Label":    label,
		"Context":  nearby,
	})
	if err != nil {
		return "", fmt.Errorf("error executing alt text template: %w", err)
	}
	return promptBuffer.String(), nil
}

// regionContext collects the text of blocks near r on its page. Failures only cost
// the prompt its context.
func (app *App) regionContext(ctx context.Context, source PDFSource, r regions.Region) string {
	vp, err := source.Viewport(r.Page, app.Scale)
	if err != nil {
		return ""
	}
	items, err := source.TextContent(ctx, r.Page)
	if err != nil {
		log.WithError(err).WithField("page", r.Page).Debug("No text content for alt text context")
		return ""
	}

	area := r.Box.Pad(contextMargin)
	var lines []string
	for _, block := range extract.DetectTextBlocks(r.Page, items, vp, extract.DefaultOptions()) {
		if geometry.Overlap(area, block.Box, 0) && block.Text != "" {
			lines = append(lines, block.Text)
		}
	}
	return strings.Join(lines, "\n")
}

// cropRegion cuts box out of a page rendered at the same scale as the canvas.
func cropRegion(page image.Image, box geometry.Box) (image.Image, error) {
	rect := image.Rect(
		int(math.Floor(box.X)),
		int(math.Floor(box.Y)),
		int(math.Ceil(box.Right())),
		int(math.Ceil(box.Bottom())),
	).Add(page.Bounds().Min).Intersect(page.Bounds())
	if rect.Empty() {
		return nil, errEmptyCrop
	}
	return imaging.Crop(page, rect), nil
}
