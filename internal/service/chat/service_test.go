package chat

import (
	"context"
	"errors"
	"testing"

	"parley/internal/capabilities"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	"parley/internal/service/chat/providers"
	"parley/internal/service/chat/tools"
	"parley/internal/service/retrieval"
)

// mockExtensionRepo serves canned extensions for the pipeline tests.
type mockExtensionRepo struct {
	extensions []chatModels.Extension
	listErr    error
}

func (m *mockExtensionRepo) GetExtension(ctx context.Context, extensionID, userID string) (*chatModels.Extension, error) {
	return nil, domain.ErrNotFound
}

func (m *mockExtensionRepo) ListExtensions(ctx context.Context, extensionIDs []string, userID string) ([]chatModels.Extension, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.extensions, nil
}

func (m *mockExtensionRepo) SecureHeaderValue(ctx context.Context, headerID string) (string, error) {
	return "", domain.ErrNotFound
}

// recordingMessageRepo records every appended message.
type recordingMessageRepo struct {
	mockMessageRepo
	appended []chatModels.Message
}

func (m *recordingMessageRepo) AppendMessage(ctx context.Context, msg *chatModels.Message) error {
	m.appended = append(m.appended, *msg)
	return nil
}

// fakeStream is a scripted provider adapter.
type fakeStream struct {
	gotReq *providers.Request
	deltas []string
	final  string
	err    error
}

func (f *fakeStream) Run(ctx context.Context, req *providers.Request, h providers.Handler) error {
	f.gotReq = req
	if f.err != nil {
		return f.err
	}
	cumulative := ""
	for _, d := range f.deltas {
		cumulative += d
		if err := h.OnDelta(ctx, cumulative); err != nil {
			return err
		}
	}
	return h.OnDone(ctx, f.final)
}

// recordingSink captures normalized SSE frames.
type recordingSink struct {
	events []string
	data   []interface{}
}

func (r *recordingSink) WriteEvent(eventType string, data interface{}) error {
	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
	return nil
}

// nullExporter satisfies tools.DeckExporter.
type nullExporter struct{}

func (nullExporter) Export(ctx context.Context, threadID, deckJSON string) (string, error) {
	return "", errors.New("not configured")
}

type serviceFixture struct {
	svc      *InferenceService
	threads  *mockThreadRepo
	messages *recordingMessageRepo
	searcher *mockSearcher
	streams  struct {
		completions *fakeStream
		responses   *fakeStream
		external    *fakeStream
	}
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := testLogger()

	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	f := &serviceFixture{
		threads:  newMockThreadRepo(),
		messages: &recordingMessageRepo{},
		searcher: &mockSearcher{},
	}
	f.streams.completions = &fakeStream{final: "answer"}
	f.streams.responses = &fakeStream{final: "reasoned answer"}
	f.streams.external = &fakeStream{final: "mistral answer"}

	extRepo := &mockExtensionRepo{}
	toolset := tools.NewRegistry(
		tools.NewImageTool(nil, nil, nil, logger),
		tools.NewDeckTool(nullExporter{}, logger),
		tools.NewDynamicTools(extRepo, nil, logger),
		logger,
	)
	assembler := NewAssembler(f.messages, f.searcher, logger)

	f.svc = NewInferenceService(
		f.threads,
		f.messages,
		extRepo,
		registry,
		assembler,
		toolset,
		StreamSet{
			Completions: f.streams.completions,
			Responses:   f.streams.responses,
			External:    f.streams.external,
		},
		logger,
	)
	return f
}

func (f *serviceFixture) seedThread(t *testing.T, model string) *chatModels.Thread {
	t.Helper()
	thread := &chatModels.Thread{
		ID:          "thread-1",
		UserID:      "user-1",
		Name:        "Test",
		Model:       model,
		Temperature: 0.5,
	}
	if err := f.threads.CreateThread(context.Background(), thread); err != nil {
		t.Fatalf("seeding thread: %v", err)
	}
	return thread
}

func TestPrepareTurn(t *testing.T) {
	t.Run("validation failure", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.PrepareTurn(context.Background(), InferenceInput{})
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})

	t.Run("unknown thread", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
			ThreadID: "missing", UserID: "user-1", Message: "hi",
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("extensions strategy resolves tools", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedThread(t, "gpt-4o")

		turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
			ThreadID: "thread-1", UserID: "user-1", Message: "hi",
		})
		if err != nil {
			t.Fatalf("PrepareTurn() error = %v", err)
		}
		if turn.Strategy() != StrategyExtensions {
			t.Errorf("strategy = %q", turn.Strategy())
		}
		if len(turn.toolDefs) == 0 {
			t.Error("no tools resolved for extensions strategy")
		}
	})

	t.Run("legacy model gets no tools", func(t *testing.T) {
		f := newServiceFixture(t)
		f.seedThread(t, "o3-mini")

		turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
			ThreadID: "thread-1", UserID: "user-1", Message: "hi",
		})
		if err != nil {
			t.Fatalf("PrepareTurn() error = %v", err)
		}
		if turn.Strategy() != StrategySimple {
			t.Errorf("strategy = %q", turn.Strategy())
		}
		if len(turn.toolDefs) != 0 {
			t.Errorf("legacy turn resolved %d tools", len(turn.toolDefs))
		}
	})
}

func TestStreamTurn_HappyPath(t *testing.T) {
	f := newServiceFixture(t)
	f.seedThread(t, "gpt-4o")
	sink := &recordingSink{}

	turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
		ThreadID: "thread-1", UserID: "user-1", Message: "hello",
	})
	if err != nil {
		t.Fatalf("PrepareTurn() error = %v", err)
	}

	f.svc.StreamTurn(context.Background(), turn, sink)

	// User message first, assistant answer last.
	if len(f.messages.appended) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(f.messages.appended))
	}
	if f.messages.appended[0].Role != chatModels.RoleUser || f.messages.appended[0].Content != "hello" {
		t.Errorf("first persisted = %+v", f.messages.appended[0])
	}
	if f.messages.appended[1].Role != chatModels.RoleAssistant || f.messages.appended[1].Content != "answer" {
		t.Errorf("second persisted = %+v", f.messages.appended[1])
	}

	last := sink.events[len(sink.events)-1]
	if last != chatModels.SSEEventFinalContent {
		t.Errorf("terminal event = %q", last)
	}

	req := f.streams.completions.gotReq
	if req == nil {
		t.Fatal("completions adapter never invoked")
	}
	if req.Temperature == nil || *req.Temperature != 0.5 {
		t.Errorf("temperature = %v, want thread temperature", req.Temperature)
	}
}

func TestStreamTurn_RoutesLegacyToResponsesWire(t *testing.T) {
	f := newServiceFixture(t)
	f.seedThread(t, "o3-mini")
	sink := &recordingSink{}

	turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
		ThreadID: "thread-1", UserID: "user-1", Message: "think hard",
	})
	if err != nil {
		t.Fatalf("PrepareTurn() error = %v", err)
	}

	f.svc.StreamTurn(context.Background(), turn, sink)

	req := f.streams.responses.gotReq
	if req == nil {
		t.Fatal("responses adapter never invoked")
	}
	if req.Temperature != nil {
		t.Error("legacy request carries a temperature")
	}
	if req.ReasoningEffort != "medium" {
		t.Errorf("reasoning effort = %q", req.ReasoningEffort)
	}
	if f.streams.completions.gotReq != nil {
		t.Error("completions adapter also invoked")
	}
}

func TestStreamTurn_RoutesMistralToExternal(t *testing.T) {
	f := newServiceFixture(t)
	f.seedThread(t, "mistral-large-latest")
	sink := &recordingSink{}

	turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
		ThreadID: "thread-1", UserID: "user-1", Message: "bonjour",
	})
	if err != nil {
		t.Fatalf("PrepareTurn() error = %v", err)
	}
	if turn.Strategy() != StrategyExternalInference {
		t.Fatalf("strategy = %q", turn.Strategy())
	}

	f.svc.StreamTurn(context.Background(), turn, sink)

	if f.streams.external.gotReq == nil {
		t.Fatal("external adapter never invoked")
	}
}

func TestStreamTurn_ProviderFailureEmitsError(t *testing.T) {
	f := newServiceFixture(t)
	f.seedThread(t, "gpt-4o")
	f.streams.completions.err = errors.New("rate limited")
	sink := &recordingSink{}

	turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
		ThreadID: "thread-1", UserID: "user-1", Message: "hello",
	})
	if err != nil {
		t.Fatalf("PrepareTurn() error = %v", err)
	}

	f.svc.StreamTurn(context.Background(), turn, sink)

	// User message is durable even though the provider failed, and the
	// failed turn still leaves an (empty) assistant message.
	if len(f.messages.appended) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(f.messages.appended))
	}
	if f.messages.appended[0].Role != chatModels.RoleUser {
		t.Errorf("first persisted = %+v", f.messages.appended[0])
	}
	if f.messages.appended[1].Role != chatModels.RoleAssistant || f.messages.appended[1].Content != "" {
		t.Errorf("second persisted = %+v", f.messages.appended[1])
	}
	last := sink.events[len(sink.events)-1]
	if last != chatModels.SSEEventError {
		t.Errorf("terminal event = %q, want error", last)
	}
}

func TestStreamTurn_CancellationEmitsAbort(t *testing.T) {
	f := newServiceFixture(t)
	f.seedThread(t, "gpt-4o")
	f.streams.completions.err = context.Canceled
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	turn, err := f.svc.PrepareTurn(ctx, InferenceInput{
		ThreadID: "thread-1", UserID: "user-1", Message: "hello",
	})
	if err != nil {
		t.Fatalf("PrepareTurn() error = %v", err)
	}
	cancel()

	f.svc.StreamTurn(ctx, turn, sink)

	last := sink.events[len(sink.events)-1]
	if last != chatModels.SSEEventAbort {
		t.Errorf("terminal event = %q, want abort", last)
	}
	// Only the user message survives an aborted turn.
	for _, m := range f.messages.appended {
		if m.Role == chatModels.RoleAssistant {
			t.Errorf("assistant message persisted on abort: %+v", m)
		}
	}
}

func TestPrepareTurn_PersonaDocumentsSelectRetrieval(t *testing.T) {
	t.Run("persona documents route to retrieval", func(t *testing.T) {
		f := newServiceFixture(t)
		thread := f.seedThread(t, "gpt-4o")
		personaID := "persona-1"
		thread.PersonaID = &personaID
		if err := f.threads.UpdateThread(context.Background(), thread); err != nil {
			t.Fatalf("updating thread: %v", err)
		}
		f.searcher.personaDocs = true

		turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
			ThreadID: "thread-1", UserID: "user-1", Message: "what does the handbook say?",
		})
		if err != nil {
			t.Fatalf("PrepareTurn() error = %v", err)
		}
		if turn.Strategy() != StrategyRetrievalAugmented {
			t.Errorf("strategy = %q, want retrieval-augmented", turn.Strategy())
		}
		if f.searcher.lastPersona != "persona-1" {
			t.Errorf("queried persona = %q", f.searcher.lastPersona)
		}
	})

	t.Run("lookup failure degrades to extensions", func(t *testing.T) {
		f := newServiceFixture(t)
		thread := f.seedThread(t, "gpt-4o")
		personaID := "persona-1"
		thread.PersonaID = &personaID
		if err := f.threads.UpdateThread(context.Background(), thread); err != nil {
			t.Fatalf("updating thread: %v", err)
		}
		f.searcher.personaErr = errors.New("index unavailable")

		turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
			ThreadID: "thread-1", UserID: "user-1", Message: "hi",
		})
		if err != nil {
			t.Fatalf("PrepareTurn() error = %v", err)
		}
		if turn.Strategy() != StrategyExtensions {
			t.Errorf("strategy = %q, want extensions", turn.Strategy())
		}
	})

	t.Run("thread documents skip the lookup", func(t *testing.T) {
		f := newServiceFixture(t)
		thread := f.seedThread(t, "gpt-4o")
		thread.DocumentIDs = []string{"doc-1"}
		if err := f.threads.UpdateThread(context.Background(), thread); err != nil {
			t.Fatalf("updating thread: %v", err)
		}

		turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
			ThreadID: "thread-1", UserID: "user-1", Message: "hi",
		})
		if err != nil {
			t.Fatalf("PrepareTurn() error = %v", err)
		}
		if turn.Strategy() != StrategyRetrievalAugmented {
			t.Errorf("strategy = %q, want retrieval-augmented", turn.Strategy())
		}
		if f.searcher.lastPersona != "" {
			t.Error("persona lookup ran despite attached thread documents")
		}
	})
}

func TestStreamTurn_EmitsCitationsBeforeContent(t *testing.T) {
	f := newServiceFixture(t)
	thread := f.seedThread(t, "gpt-4o")
	thread.DocumentIDs = []string{"doc-1"}
	if err := f.threads.UpdateThread(context.Background(), thread); err != nil {
		t.Fatalf("updating thread: %v", err)
	}
	f.searcher.results = []retrieval.Result{
		{ID: "chunk-1", DocumentID: "doc-1", FileName: "handbook.pdf", Passage: "PTO policy", Score: 0.91},
	}
	f.streams.completions.deltas = []string{"answer"}
	sink := &recordingSink{}

	turn, err := f.svc.PrepareTurn(context.Background(), InferenceInput{
		ThreadID: "thread-1", UserID: "user-1", Message: "how much PTO do I get?",
	})
	if err != nil {
		t.Fatalf("PrepareTurn() error = %v", err)
	}

	f.svc.StreamTurn(context.Background(), turn, sink)

	if len(sink.events) == 0 || sink.events[0] != chatModels.SSEEventCitations {
		t.Fatalf("events = %v, want citations first", sink.events)
	}
	ev, ok := sink.data[0].(chatModels.CitationsEvent)
	if !ok || len(ev.Citations) != 1 || ev.Citations[0].ID != "chunk-1" {
		t.Errorf("citations payload = %+v", sink.data[0])
	}
	if last := sink.events[len(sink.events)-1]; last != chatModels.SSEEventFinalContent {
		t.Errorf("terminal event = %q", last)
	}
}
