package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"parley/internal/config"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/service/retrieval"
)

const citationInstructions = `
- Review the following content from documents uploaded by the user and create a final answer.
- You must always include a citation at the end of your answer and don't include full stop after the citations.
- If you don't know the answer, you can try to make up an answer but make it clear.
- Use the format for your citation {%% citation items=[{name:"filename 1",id:"file id"}, {name:"filename 2",id:"file id"}] /%%}
----------------
content:
%s
----------------
question:
%s`

// Assembler builds the message list handed to a provider adapter for a
// single turn: system prompt, recent history, and the current user
// message (possibly rewritten for document grounding or expanded with
// an image attachment).
type Assembler struct {
	messages chatRepo.MessageRepository
	searcher retrieval.Searcher
	logger   *slog.Logger
}

// NewAssembler creates a new Assembler
func NewAssembler(messages chatRepo.MessageRepository, searcher retrieval.Searcher, logger *slog.Logger) *Assembler {
	return &Assembler{
		messages: messages,
		searcher: searcher,
		logger:   logger,
	}
}

// AssembleInput carries everything Assemble needs for one turn.
// Extensions must already be resolved for the thread.
type AssembleInput struct {
	Thread       *chatModels.Thread
	UserMessage  string
	ImageDataURL string
	Strategy     Strategy
	Extensions   []chatModels.Extension
	HashedUserID string
}

// AssembledContext is the provider-ready message list plus the
// citations collected while grounding the user message. Citations are
// emitted to the client only, never persisted.
type AssembledContext struct {
	Messages  []openai.ChatCompletionMessage
	Citations []chatModels.Citation
}

// Assemble loads the history window and composes the full message list
// for the turn. History is loaded before the current user message is
// persisted, so the caller's message appears exactly once.
func (a *Assembler) Assemble(ctx context.Context, in AssembleInput) (*AssembledContext, error) {
	history, err := a.historyWindow(ctx, in.Thread, in.Strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: a.systemPrompt(in.Thread, in.Extensions),
	})
	messages = append(messages, history...)

	var citations []chatModels.Citation
	switch in.Strategy {
	case StrategyMultimodal:
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: in.UserMessage},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: in.ImageDataURL},
				},
			},
		})
	case StrategyRetrievalAugmented:
		var content string
		content, citations = a.groundUserMessage(ctx, in)
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: content,
		})
	default:
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: in.UserMessage,
		})
	}

	return &AssembledContext{Messages: messages, Citations: citations}, nil
}

// systemPrompt joins the base prompt with the thread's persona message
// and the execution steps of every attached extension. The deck export
// marker carries no execution steps of its own.
func (a *Assembler) systemPrompt(thread *chatModels.Thread, extensions []chatModels.Extension) string {
	prompt := config.DefaultSystemPrompt + " \n\n " + thread.PersonaMessage

	for _, ext := range extensions {
		if strings.TrimSpace(ext.ExecutionSteps) == "" {
			continue
		}
		prompt += "\n" + ext.ExecutionSteps
	}

	return prompt
}

// historyWindow loads the most recent messages and returns them oldest
// first. Blank messages are dropped. Legacy models do not accept the
// function role, so those turns are filtered out for the simple
// strategy.
func (a *Assembler) historyWindow(ctx context.Context, thread *chatModels.Thread, strategy Strategy) ([]openai.ChatCompletionMessage, error) {
	recent, err := a.messages.FindTopByThread(ctx, thread.ID, thread.UserID, config.HistoryWindow)
	if err != nil {
		return nil, err
	}

	history := make([]openai.ChatCompletionMessage, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if strategy == StrategySimple && msg.Role == chatModels.RoleFunction {
			continue
		}
		history = append(history, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Name:    functionName(msg),
			Content: msg.Content,
		})
	}

	return history, nil
}

// HasPersonaDocuments reports whether the persona has indexed documents
// in retrieval scope. Lookup failures degrade to false with a log line,
// the same way grounding itself degrades.
func (a *Assembler) HasPersonaDocuments(ctx context.Context, personaID string) bool {
	has, err := a.searcher.HasPersonaDocuments(ctx, personaID)
	if err != nil {
		a.logger.Error("Persona document lookup failed, treating as none",
			slog.String("persona_id", personaID),
			slog.String("error", err.Error()))
		return false
	}
	return has
}

// groundUserMessage searches the thread's document index and rewrites
// the user message around the retrieved passages. Retrieval failures
// degrade to the original message so the turn still completes.
func (a *Assembler) groundUserMessage(ctx context.Context, in AssembleInput) (string, []chatModels.Citation) {
	filter := retrieval.Filter{
		HashedUserID: in.HashedUserID,
		ThreadID:     in.Thread.ID,
	}
	if in.Thread.PersonaID != nil {
		filter.PersonaID = *in.Thread.PersonaID
	}

	results, err := a.searcher.SimilaritySearch(ctx, in.UserMessage, config.RetrievalTopK, filter)
	if err != nil {
		a.logger.Error("Document retrieval failed, continuing without grounding",
			slog.String("thread_id", in.Thread.ID),
			slog.String("error", err.Error()))
		return in.UserMessage, nil
	}
	if len(results) == 0 {
		return in.UserMessage, nil
	}

	passages := make([]string, 0, len(results))
	citations := make([]chatModels.Citation, 0, len(results))
	for i, r := range results {
		passages = append(passages, fmt.Sprintf("[%d]. file name: %s \n file id: %s \n %s", i, r.FileName, r.ID, r.Passage))
		citations = append(citations, chatModels.Citation{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			Name:       r.FileName,
			Passage:    r.Passage,
			Score:      r.Score,
		})
	}

	content := fmt.Sprintf(citationInstructions, strings.Join(passages, "\n------\n"), in.UserMessage)
	return content, citations
}

func functionName(msg chatModels.Message) string {
	if msg.Role == chatModels.RoleFunction {
		return msg.Name
	}
	return ""
}
