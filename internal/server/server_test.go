package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/adrianhensler/botterverse/internal/director"
	"github.com/adrianhensler/botterverse/internal/llm"
	"github.com/adrianhensler/botterverse/internal/persona"
	"github.com/adrianhensler/botterverse/internal/store"
	"github.com/adrianhensler/botterverse/internal/tooling"
	"github.com/adrianhensler/botterverse/pkg/logging"
)

type scriptedAdapter struct {
	response string
}

func (a *scriptedAdapter) Name() string { return "scripted" }
func (a *scriptedAdapter) Usable() bool { return true }
func (a *scriptedAdapter) Generate(ctx context.Context, voice persona.Voice, genCtx llm.Context, prompt, model string) (string, llm.Usage, error) {
	return a.response, llm.Usage{}, nil
}

func scriptedClient(response string) *llm.Client {
	router := llm.NewModelRouter(llm.RouterConfig{
		EconomyModel:     llm.DefaultEconomyModel,
		PremiumModel:     llm.DefaultPremiumModel,
		EconomyProvider:  "scripted",
		PremiumProvider:  "scripted",
		FallbackProvider: llm.LocalProviderName,
		Adapters: map[string]llm.Adapter{
			"scripted":            &scriptedAdapter{response: response},
			llm.LocalProviderName: llm.NewLocalAdapter(),
		},
	})
	return llm.NewClient(router, logging.NewLogger())
}

type fixture struct {
	router *gin.Engine
	store  store.Store
	state  *director.SchedulerState
	bot    persona.Persona
	human  store.Author
}

func newFixture(t *testing.T, client *llm.Client) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	bot := persona.New("weatherguy", "Weather Bot", "cheerful", []string{"weather"}, time.Minute)
	if err := st.AddAuthor(ctx, store.Author{
		ID: bot.ID(), Handle: bot.Handle(), DisplayName: bot.DisplayName(), Type: store.AuthorBot,
	}); err != nil {
		t.Fatalf("add bot: %v", err)
	}
	human := store.Author{ID: uuid.New(), Handle: "you", DisplayName: "You", Type: store.AuthorHuman}
	if err := st.AddAuthor(ctx, human); err != nil {
		t.Fatalf("add human: %v", err)
	}

	d := director.New(director.Config{Personas: []persona.Persona{bot}, Seed: 3})
	state := director.NewSchedulerState()

	engine := gin.New()
	New(st, d, state, client, nil, logging.NewLogger()).RegisterRoutes(engine)
	return &fixture{router: engine, store: st, state: state, bot: bot, human: human}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestCreatePostAndTimeline(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/posts", store.PostCreate{AuthorID: f.human.ID, Content: "hello world"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: status %d body %s", rec.Code, rec.Body.String())
	}
	post := decode[store.Post](t, rec)
	if post.Content != "hello world" {
		t.Fatalf("unexpected post %+v", post)
	}

	rec = f.do(t, http.MethodGet, "/timeline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("timeline: status %d", rec.Code)
	}
	entries := decode[[]store.TimelineEntry](t, rec)
	if len(entries) != 1 || entries[0].Author.Handle != "you" {
		t.Fatalf("unexpected timeline %+v", entries)
	}
}

func TestCreatePostUnknownAuthor(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/posts", store.PostCreate{AuthorID: uuid.New(), Content: "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown author, got %d", rec.Code)
	}
}

func TestCreatePostMentionTriggersReply(t *testing.T) {
	f := newFixture(t, scriptedClient(`{"should_reply": true, "reasoning": "mentioned"}`))

	rec := f.do(t, http.MethodPost, "/posts", store.PostCreate{AuthorID: f.human.ID, Content: "hey @weatherguy how is it out there?"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: status %d", rec.Code)
	}
	post := decode[store.Post](t, rec)

	posts, err := f.store.ListPosts(context.Background(), 10, nil)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	var replies int
	for _, p := range posts {
		if p.AuthorID == f.bot.ID() && p.ReplyTo != nil && *p.ReplyTo == post.ID {
			replies++
		}
	}
	if replies != 1 {
		t.Fatalf("expected exactly one mention reply, got %d", replies)
	}

	rec = f.do(t, http.MethodGet, "/audit", nil)
	entries := decode[[]store.AuditEntry](t, rec)
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry for the reply, got %d", len(entries))
	}
}

func TestReplyToBotAsksPersona(t *testing.T) {
	f := newFixture(t, scriptedClient(`{"should_reply": true, "reasoning": "thread continues"}`))

	botPost, err := f.store.CreatePost(context.Background(), store.PostCreate{AuthorID: f.bot.ID(), Content: "sunny all week"})
	if err != nil {
		t.Fatalf("seed bot post: %v", err)
	}

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/posts/%s/reply", botPost.ID), store.PostCreate{AuthorID: f.human.ID, Content: "really? even saturday?"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply: status %d body %s", rec.Code, rec.Body.String())
	}
	humanReply := decode[store.Post](t, rec)

	posts, _ := f.store.ListPosts(context.Background(), 10, nil)
	var followUps int
	for _, p := range posts {
		if p.AuthorID == f.bot.ID() && p.ReplyTo != nil && *p.ReplyTo == humanReply.ID {
			followUps++
		}
	}
	if followUps != 1 {
		t.Fatalf("expected the persona to continue the thread once, got %d follow-ups", followUps)
	}
}

func TestQuotePost(t *testing.T) {
	f := newFixture(t, nil)
	original, err := f.store.CreatePost(context.Background(), store.PostCreate{AuthorID: f.bot.ID(), Content: "cold front incoming"})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/posts/%s/quote", original.ID), store.PostCreate{AuthorID: f.human.ID, Content: "brace yourselves"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("quote: status %d body %s", rec.Code, rec.Body.String())
	}
	quote := decode[store.Post](t, rec)
	if quote.QuoteOf == nil || *quote.QuoteOf != original.ID {
		t.Fatalf("quote not bound to original: %+v", quote)
	}
}

func TestReplyToMissingPost(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, fmt.Sprintf("/posts/%s/reply", uuid.New()), store.PostCreate{AuthorID: f.human.ID, Content: "?"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing parent, got %d", rec.Code)
	}
}

func TestLikeToggle(t *testing.T) {
	f := newFixture(t, nil)
	post, err := f.store.CreatePost(context.Background(), store.PostCreate{AuthorID: f.bot.ID(), Content: "forecast"})
	if err != nil {
		t.Fatalf("seed post: %v", err)
	}

	path := fmt.Sprintf("/posts/%s/like?author_id=%s", post.ID, f.human.ID)
	rec := f.do(t, http.MethodPost, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("like: status %d body %s", rec.Code, rec.Body.String())
	}
	first := decode[map[string]any](t, rec)
	if first["likes"].(float64) != 1 {
		t.Fatalf("expected one like, got %v", first["likes"])
	}

	rec = f.do(t, http.MethodPost, path, nil)
	second := decode[map[string]any](t, rec)
	if second["likes"].(float64) != 0 {
		t.Fatalf("expected the like to toggle off, got %v", second["likes"])
	}
}

func TestDMRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/dms", store.DMCreate{SenderID: f.human.ID, RecipientID: f.bot.ID(), Content: "hi there"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("send dm: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/dms/%s/%s", f.human.ID, f.bot.ID()), nil)
	thread := decode[[]store.DM](t, rec)
	if len(thread) != 1 || thread[0].Content != "hi there" {
		t.Fatalf("unexpected thread %+v", thread)
	}
}

func TestDMUnknownRecipient(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/dms", store.DMCreate{SenderID: f.human.ID, RecipientID: uuid.New(), Content: "void"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown recipient, got %d", rec.Code)
	}
}

func TestInjectEventAndTick(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/director/events", map[string]any{"topic": "storm warning for halifax", "kind": "weather"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("inject event: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/director/events", map[string]any{"kind": "weather"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing topic, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/director/tick", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tick: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decode[map[string]any](t, rec)
	if body["paused"].(bool) {
		t.Fatal("tick reported paused while running")
	}
}

func TestPauseBlocksTick(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/director/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: status %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/director/tick", nil)
	body := decode[map[string]any](t, rec)
	if !body["paused"].(bool) {
		t.Fatal("tick ran while paused")
	}
	created := body["created"].([]any)
	if len(created) != 0 {
		t.Fatalf("paused tick created %d posts", len(created))
	}

	rec = f.do(t, http.MethodPost, "/director/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume: status %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/director/tick", nil)
	body = decode[map[string]any](t, rec)
	if body["paused"].(bool) {
		t.Fatal("tick still paused after resume")
	}
}

func TestListToolsEmptyWithoutRouter(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodGet, "/tools", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tools: status %d", rec.Code)
	}
	schemas := decode[[]tooling.Schema](t, rec)
	if len(schemas) != 0 {
		t.Fatalf("expected empty catalog, got %d entries", len(schemas))
	}
}

func TestListToolsCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	registry := tooling.NewDefaultRegistry(tooling.DefaultRegistryConfig{})
	tools := tooling.NewRouter(registry, logging.NewLogger())

	engine := gin.New()
	New(st, director.New(director.Config{}), director.NewSchedulerState(), nil, tools, logging.NewLogger()).RegisterRoutes(engine)

	req := httptest.NewRequest(http.MethodGet, "/tools", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	schemas := decode[[]tooling.Schema](t, rec)
	names := make(map[string]bool, len(schemas))
	for _, schema := range schemas {
		names[schema.Name] = true
	}
	if !names["current_time"] || !names["http_get_json"] {
		t.Fatalf("expected the always-on tools in the catalog, got %+v", names)
	}
	if names["get_weather"] || names["news_search"] {
		t.Fatalf("unconfigured integrations should not be listed: %+v", names)
	}
}
