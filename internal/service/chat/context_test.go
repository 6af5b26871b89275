package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	chatModels "parley/internal/domain/models/chat"
	"parley/internal/service/retrieval"
)

// mockMessageRepo returns canned history, newest first.
type mockMessageRepo struct {
	recent []chatModels.Message
	err    error
}

func (m *mockMessageRepo) AppendMessage(ctx context.Context, msg *chatModels.Message) error {
	return nil
}

func (m *mockMessageRepo) FindTopByThread(ctx context.Context, threadID, userID string, limit int) ([]chatModels.Message, error) {
	return m.recent, m.err
}

func (m *mockMessageRepo) SoftDeleteMessage(ctx context.Context, messageID, userID string) error {
	return nil
}

func (m *mockMessageRepo) SoftDeleteByThread(ctx context.Context, threadID, userID string) error {
	return nil
}

// mockSearcher returns canned passages or a failure.
type mockSearcher struct {
	results     []retrieval.Result
	err         error
	personaDocs bool
	personaErr  error
	lastQuery   string
	lastFilter  retrieval.Filter
	lastPersona string
}

func (m *mockSearcher) SimilaritySearch(ctx context.Context, query string, k int, f retrieval.Filter) ([]retrieval.Result, error) {
	m.lastQuery = query
	m.lastFilter = f
	return m.results, m.err
}

func (m *mockSearcher) HasPersonaDocuments(ctx context.Context, personaID string) (bool, error) {
	m.lastPersona = personaID
	return m.personaDocs, m.personaErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testThread() *chatModels.Thread {
	return &chatModels.Thread{
		ID:             "thread-1",
		UserID:         "user-1",
		Model:          "gpt-4o",
		PersonaMessage: "You speak like a pirate.",
	}
}

func TestAssemble_HistoryOrderAndFiltering(t *testing.T) {
	// Repository returns newest first; the assembled list must be
	// chronological with blanks dropped.
	repo := &mockMessageRepo{recent: []chatModels.Message{
		{Role: chatModels.RoleAssistant, Content: "second answer"},
		{Role: chatModels.RoleUser, Content: "   "},
		{Role: chatModels.RoleFunction, Name: "get_weather", Content: `{"temp":12}`},
		{Role: chatModels.RoleUser, Content: "first question"},
	}}
	a := NewAssembler(repo, &mockSearcher{}, testLogger())

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:      testThread(),
		UserMessage: "what now?",
		Strategy:    StrategyExtensions,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	// system + 3 surviving history entries + user message
	if len(out.Messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(out.Messages))
	}
	if out.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Errorf("first message role = %q, want system", out.Messages[0].Role)
	}
	if out.Messages[1].Content != "first question" {
		t.Errorf("history not reversed: got %q first", out.Messages[1].Content)
	}
	if out.Messages[2].Name != "get_weather" {
		t.Errorf("function message lost its name: %q", out.Messages[2].Name)
	}
	last := out.Messages[len(out.Messages)-1]
	if last.Role != openai.ChatMessageRoleUser || last.Content != "what now?" {
		t.Errorf("last message = %+v, want user message", last)
	}
}

func TestAssemble_SimpleStrategyFiltersFunctionRole(t *testing.T) {
	repo := &mockMessageRepo{recent: []chatModels.Message{
		{Role: chatModels.RoleFunction, Name: "get_weather", Content: `{"temp":12}`},
		{Role: chatModels.RoleUser, Content: "hello"},
	}}
	a := NewAssembler(repo, &mockSearcher{}, testLogger())

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:      testThread(),
		UserMessage: "again",
		Strategy:    StrategySimple,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	for _, m := range out.Messages {
		if m.Role == string(chatModels.RoleFunction) {
			t.Errorf("function-role message leaked into simple strategy: %+v", m)
		}
	}
}

func TestAssemble_SystemPromptIncludesPersonaAndExecutionSteps(t *testing.T) {
	a := NewAssembler(&mockMessageRepo{}, &mockSearcher{}, testLogger())

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:      testThread(),
		UserMessage: "hi",
		Strategy:    StrategyExtensions,
		Extensions: []chatModels.Extension{
			{ID: "a", ExecutionSteps: "Use get_weather for weather questions."},
			{ID: "b", ExecutionSteps: "   "},
		},
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	system := out.Messages[0].Content
	if !strings.Contains(system, "You speak like a pirate.") {
		t.Error("system prompt missing persona message")
	}
	if !strings.Contains(system, "Use get_weather for weather questions.") {
		t.Error("system prompt missing extension execution steps")
	}
	if strings.Count(system, "\n"+"Use get_weather") != 1 {
		t.Error("execution steps appended more than once")
	}
}

func TestAssemble_Multimodal(t *testing.T) {
	a := NewAssembler(&mockMessageRepo{}, &mockSearcher{}, testLogger())

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:       testThread(),
		UserMessage:  "what is in this picture?",
		ImageDataURL: "data:image/png;base64,AAAA",
		Strategy:     StrategyMultimodal,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	last := out.Messages[len(out.Messages)-1]
	if len(last.MultiContent) != 2 {
		t.Fatalf("got %d content parts, want 2", len(last.MultiContent))
	}
	if last.MultiContent[0].Type != openai.ChatMessagePartTypeText ||
		last.MultiContent[0].Text != "what is in this picture?" {
		t.Errorf("text part = %+v", last.MultiContent[0])
	}
	if last.MultiContent[1].Type != openai.ChatMessagePartTypeImageURL ||
		last.MultiContent[1].ImageURL.URL != "data:image/png;base64,AAAA" {
		t.Errorf("image part = %+v", last.MultiContent[1])
	}
}

func TestAssemble_RetrievalRewritesUserMessage(t *testing.T) {
	searcher := &mockSearcher{results: []retrieval.Result{
		{ID: "chunk-1", DocumentID: "doc-1", FileName: "handbook.pdf", Passage: "Expenses are reimbursed monthly.", Score: 0.91},
	}}
	a := NewAssembler(&mockMessageRepo{}, searcher, testLogger())

	thread := testThread()
	personaID := "persona-1"
	thread.PersonaID = &personaID

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:       thread,
		UserMessage:  "when are expenses reimbursed?",
		Strategy:     StrategyRetrievalAugmented,
		HashedUserID: "hash-abc",
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	last := out.Messages[len(out.Messages)-1]
	if !strings.Contains(last.Content, "[0]. file name: handbook.pdf") {
		t.Errorf("grounded message missing passage marker:\n%s", last.Content)
	}
	if !strings.Contains(last.Content, "when are expenses reimbursed?") {
		t.Error("grounded message does not carry the question verbatim")
	}
	if !strings.Contains(last.Content, `{% citation items=`) {
		t.Error("grounded message missing citation format instructions")
	}

	if len(out.Citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(out.Citations))
	}
	if out.Citations[0].Name != "handbook.pdf" || out.Citations[0].ID != "chunk-1" {
		t.Errorf("citation = %+v", out.Citations[0])
	}

	if searcher.lastFilter.HashedUserID != "hash-abc" ||
		searcher.lastFilter.ThreadID != "thread-1" ||
		searcher.lastFilter.PersonaID != "persona-1" {
		t.Errorf("search filter = %+v", searcher.lastFilter)
	}
}

func TestAssemble_RetrievalFailureDegradesToRawMessage(t *testing.T) {
	searcher := &mockSearcher{err: errors.New("index unavailable")}
	a := NewAssembler(&mockMessageRepo{}, searcher, testLogger())

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:      testThread(),
		UserMessage: "when are expenses reimbursed?",
		Strategy:    StrategyRetrievalAugmented,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v, want degraded success", err)
	}

	last := out.Messages[len(out.Messages)-1]
	if last.Content != "when are expenses reimbursed?" {
		t.Errorf("message was rewritten despite retrieval failure: %q", last.Content)
	}
	if len(out.Citations) != 0 {
		t.Errorf("got %d citations after failed retrieval, want 0", len(out.Citations))
	}
}

func TestAssemble_EmptyRetrievalKeepsRawMessage(t *testing.T) {
	a := NewAssembler(&mockMessageRepo{}, &mockSearcher{}, testLogger())

	out, err := a.Assemble(context.Background(), AssembleInput{
		Thread:      testThread(),
		UserMessage: "anything?",
		Strategy:    StrategyRetrievalAugmented,
	})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	last := out.Messages[len(out.Messages)-1]
	if last.Content != "anything?" {
		t.Errorf("message rewritten with zero passages: %q", last.Content)
	}
}

func TestAssemble_HistoryLoadFailure(t *testing.T) {
	repo := &mockMessageRepo{err: errors.New("connection refused")}
	a := NewAssembler(repo, &mockSearcher{}, testLogger())

	_, err := a.Assemble(context.Background(), AssembleInput{
		Thread:      testThread(),
		UserMessage: "hi",
		Strategy:    StrategyExtensions,
	})
	if err == nil {
		t.Fatal("Assemble() succeeded despite history load failure")
	}
}
