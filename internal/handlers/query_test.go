package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"kitab/internal/chat"
	"kitab/internal/llm"
	"kitab/internal/rag"
	"kitab/internal/storage"
	storagemocks "kitab/internal/storage/mocks"
)

// fakeEngine returns a canned response.
type fakeEngine struct {
	resp *rag.AskResponse
	err  error
	last rag.AskRequest
}

func (f *fakeEngine) Ask(_ context.Context, req rag.AskRequest) (*rag.AskResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeEngine) SetTopK(int) {}

// fakeLimiter answers with a fixed verdict.
type fakeLimiter struct {
	allowed bool
	err     error
}

func (f *fakeLimiter) Allowed(context.Context, string) (bool, error) {
	return f.allowed, f.err
}

func postQuery(t *testing.T, handler *QueryHandler, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestQueryHandler_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockMessageStore(ctrl)
	var recorded []*storage.MessageRecord
	store.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *storage.MessageRecord) error {
			recorded = append(recorded, msg)
			return nil
		}).
		Times(2)

	engine := &fakeEngine{resp: &rag.AskResponse{Answer: "Generated answer."}}
	manager := chat.NewManager(store, 0, 0, 0)
	handler := NewQueryHandler(engine, manager, &fakeLimiter{allowed: true})

	rec := postQuery(t, handler, QueryRequest{Question: "What is kitab?", SessionID: "sess1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp rag.AskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Answer != "Generated answer." {
		t.Errorf("answer = %q", resp.Answer)
	}

	if len(recorded) != 2 {
		t.Fatalf("recorded %d messages, want 2", len(recorded))
	}
	if recorded[0].Role != storage.RoleUser || recorded[0].Content != "What is kitab?" {
		t.Errorf("first record = %+v, want user question", recorded[0])
	}
	if recorded[1].Role != storage.RoleAssistant || recorded[1].Content != "Generated answer." {
		t.Errorf("second record = %+v, want assistant answer", recorded[1])
	}
}

func TestQueryHandler_IncludeSourcesForwarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockMessageStore(ctrl)
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	engine := &fakeEngine{resp: &rag.AskResponse{Answer: "ok", Sources: []rag.Source{{Excerpt: "bit"}}}}
	handler := NewQueryHandler(engine, chat.NewManager(store, 0, 0, 0), &fakeLimiter{allowed: true})

	rec := postQuery(t, handler, QueryRequest{Question: "q", SessionID: "s", IncludeSources: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !engine.last.IncludeSources {
		t.Error("IncludeSources not forwarded to engine")
	}
}

func TestQueryHandler_RateLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockMessageStore(ctrl)
	var recorded []*storage.MessageRecord
	store.EXPECT().
		Insert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg *storage.MessageRecord) error {
			recorded = append(recorded, msg)
			return nil
		}).
		Times(2)

	// The engine must not be called at all.
	engine := &fakeEngine{err: errors.New("engine should not run")}
	handler := NewQueryHandler(engine, chat.NewManager(store, 0, 0, 0), &fakeLimiter{allowed: false})

	rec := postQuery(t, handler, QueryRequest{Question: "one more", SessionID: "sess1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp rag.AskResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if resp.Answer != chat.RateLimitReply {
		t.Errorf("answer = %q, want rate limit reply", resp.Answer)
	}

	if len(recorded) != 2 {
		t.Fatalf("recorded %d messages, want both turns", len(recorded))
	}
	if recorded[1].Content != chat.RateLimitReply {
		t.Errorf("assistant record = %q, want rate limit reply", recorded[1].Content)
	}
}

func TestQueryHandler_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockMessageStore(ctrl)
	handler := NewQueryHandler(&fakeEngine{}, chat.NewManager(store, 0, 0, 0), &fakeLimiter{allowed: true})

	tests := []struct {
		name string
		body QueryRequest
	}{
		{name: "missing question", body: QueryRequest{SessionID: "s"}},
		{name: "blank question", body: QueryRequest{Question: "   ", SessionID: "s"}},
		{name: "missing session", body: QueryRequest{Question: "q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postQuery(t, handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestQueryHandler_GenerationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockMessageStore(ctrl)
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

	engine := &fakeEngine{err: llm.ErrGeneration}
	handler := NewQueryHandler(engine, chat.NewManager(store, 0, 0, 0), &fakeLimiter{allowed: true})

	rec := postQuery(t, handler, QueryRequest{Question: "q", SessionID: "s"})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestQueryHandler_LimiterError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := storagemocks.NewMockMessageStore(ctrl)
	handler := NewQueryHandler(&fakeEngine{}, chat.NewManager(store, 0, 0, 0), &fakeLimiter{err: errors.New("db down")})

	rec := postQuery(t, handler, QueryRequest{Question: "q", SessionID: "s"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
