package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

// createImageDescription is the strict textual trigger for the image
// tool. The model is instructed to invoke it only on an explicit
// create-an-image phrase, never for diagrams or charts.
const createImageDescription = "You must ONLY use the function create_img if and only if the user asks you to create an image with the sentence 'crée une image' or 'create an image'. Don't use this function without this instruction.You only use the create_img function if you explicitly include the phrase 'creates an image'.Do not use this function for diagrams, graphs, charts"

var createImageParameters = json.RawMessage(`{"type":"object","properties":{"prompt":{"type":"string"}}}`)

// ImageStore persists generated images and resolves their public URLs.
type ImageStore interface {
	Upload(ctx context.Context, threadID, name string, data []byte) error
	URL(ctx context.Context, threadID, name string) (string, error)
}

// ImageTool generates images with DALL-E and stores them for the chat
// UI to render.
type ImageTool struct {
	client *openai.Client
	store  ImageStore
	config *ToolConfig
	logger *slog.Logger
}

// NewImageTool creates a new ImageTool
func NewImageTool(client *openai.Client, store ImageStore, config *ToolConfig, logger *slog.Logger) *ImageTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return &ImageTool{
		client: client,
		store:  store,
		config: config,
		logger: logger,
	}
}

// Definition builds the create_img tool for one turn. The raw user
// message, not the model's rewritten prompt, is what gets sent to the
// image model; the prompt argument is only validated.
func (t *ImageTool) Definition(threadID, userMessage string) Definition {
	return Definition{
		Name:        "create_img",
		Description: createImageDescription,
		Parameters:  createImageParameters,
		Execute: func(ctx context.Context, arguments string) string {
			return t.execute(ctx, threadID, userMessage, arguments)
		},
	}
}

func (t *ImageTool) execute(ctx context.Context, threadID, userMessage, arguments string) string {
	var args struct {
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil || args.Prompt == "" {
		return "No prompt provided"
	}

	if len(args.Prompt) >= t.config.MaxImagePromptLength {
		return "Prompt is too long, it must be less than 4000 characters"
	}

	resp, err := t.client.CreateImage(ctx, openai.ImageRequest{
		Model:          t.config.ImageModel,
		Prompt:         userMessage,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		t.logger.Error("image generation failed", "thread_id", threadID, "error", err)
		return fmt.Sprintf("There was an error creating the image: %v. Return this message to the user and halt execution.", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "There was an error creating the image: Invalid API response received. Return this message to the user and halt execution."
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return fmt.Sprintf("There was an error creating the image: %v. Return this message to the user and halt execution.", err)
	}

	imageName := uuid.NewString() + ".png"
	if err := t.store.Upload(ctx, threadID, imageName, data); err != nil {
		t.logger.Error("image upload failed", "thread_id", threadID, "error", err)
		return fmt.Sprintf("There was an error storing the image: %v. Return this message to the user and halt execution.", err)
	}

	url, err := t.store.URL(ctx, threadID, imageName)
	if err != nil {
		return fmt.Sprintf("There was an error storing the image: %v. Return this message to the user and halt execution.", err)
	}

	payload, _ := json.Marshal(map[string]string{
		"revised_prompt": resp.Data[0].RevisedPrompt,
		"url":            url,
	})
	return string(payload)
}
