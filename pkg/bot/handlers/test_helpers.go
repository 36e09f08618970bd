package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/smith3v/lexicon-clash/pkg/content"
	"github.com/smith3v/lexicon-clash/pkg/game"
	"github.com/smith3v/lexicon-clash/pkg/logger"
	"github.com/smith3v/lexicon-clash/pkg/service"
	"github.com/smith3v/lexicon-clash/pkg/store"
	"github.com/smith3v/lexicon-clash/pkg/words"
)

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

type mockClient struct {
	mu       sync.Mutex
	requests []recordedRequest
	response string
}

func newMockClient() *mockClient {
	return &mockClient{
		response: `{"ok":true,"result":{}}`,
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	m.mu.Lock()
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})
	m.mu.Unlock()

	response := m.response
	if strings.HasSuffix(req.URL.Path, "/answerCallbackQuery") {
		response = `{"ok":true,"result":true}`
	}
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(response)),
		Header:     make(http.Header),
	}
	return resp, nil
}

// calls returns the recorded requests for one Bot API method.
func (m *mockClient) calls(apiMethod string) []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []recordedRequest
	for _, req := range m.requests {
		if strings.HasSuffix(req.path, "/"+apiMethod) {
			out = append(out, req)
		}
	}
	return out
}

func (m *mockClient) lastCall(t *testing.T, apiMethod string) recordedRequest {
	t.Helper()
	calls := m.calls(apiMethod)
	if len(calls) == 0 {
		t.Fatalf("expected a %s request", apiMethod)
	}
	return calls[len(calls)-1]
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	text, _ := multipartField(t, m.lastCall(t, "sendMessage"), "text")
	return text
}

func (m *mockClient) lastEditedText(t *testing.T) string {
	t.Helper()
	text, _ := multipartField(t, m.lastCall(t, "editMessageText"), "text")
	return text
}

func (m *mockClient) lastCallbackAnswer(t *testing.T) string {
	t.Helper()
	text, _ := multipartField(t, m.lastCall(t, "answerCallbackQuery"), "text")
	return text
}

func multipartField(t *testing.T, req recordedRequest, fieldName string) (string, string) {
	t.Helper()

	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data), part.FileName()
		}
	}
	// Empty optional fields are omitted from the form.
	return "", ""
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Text: text,
		},
	}
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}

// stubBuilder builds rounds with fixed match counts.
type stubBuilder struct {
	mu     sync.Mutex
	counts [2]int
	err    error
	n      int
}

func (b *stubBuilder) Build(ctx context.Context, word words.Word) (*game.Round, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.n++
	r := &game.Round{ID: fmt.Sprintf("round%d", b.n), Word: word, CreatedAt: time.Now().UTC()}
	for i := range r.Cards {
		r.Cards[i] = game.Card{
			ID:    fmt.Sprintf("card-%d", i),
			Word:  word,
			Item:  content.Item{ID: fmt.Sprintf("item-%d", i), Title: fmt.Sprintf("post %d", i+1), SourceGroup: "words"},
			Match: game.MatchResult{Count: b.counts[i], Excerpts: []string{"The **" + word.Text + "** thing."}},
		}
	}
	return r, nil
}

type fixture struct {
	client  *mockClient
	bot     *telegram.Bot
	engine  *service.Engine
	builder *stubBuilder
	h       *Handlers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)

	catalog, err := words.New([]words.Word{
		{Text: "ubiquitous", Definition: "found everywhere"},
		{Text: "ephemeral", Definition: "lasting a very short time"},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	builder := &stubBuilder{counts: [2]int{3, 1}}
	engine, err := service.New(service.Options{
		Store:                store.NewMemory(store.Options{}),
		Builder:              builder,
		Words:                catalog,
		ClearCompletedOnInit: true,
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	client := newMockClient()
	now := func() time.Time { return time.Date(2025, 4, 3, 10, 0, 0, 0, time.UTC) }
	return &fixture{
		client:  client,
		bot:     newTestTelegramBot(t, client),
		engine:  engine,
		builder: builder,
		h:       New(engine, WithNow(now)),
	}
}
