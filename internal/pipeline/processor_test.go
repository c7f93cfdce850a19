package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdesk/internal/models"
	"newsdesk/internal/prompts"
	"newsdesk/internal/providers"
	"newsdesk/internal/search"
	"newsdesk/internal/storage"
)

type sentRequest struct {
	modelID     int64
	messages    []providers.Message
	useFallback bool
}

type fakeRouter struct {
	replies map[int64]*providers.Result
	panics  map[int64]bool
	calls   []sentRequest
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{replies: map[int64]*providers.Result{}, panics: map[int64]bool{}}
}

func (f *fakeRouter) SendRequest(ctx context.Context, modelID int64, messages []providers.Message, params providers.Params, useFallback bool) *providers.Result {
	f.calls = append(f.calls, sentRequest{modelID: modelID, messages: messages, useFallback: useFallback})
	if f.panics[modelID] {
		panic("boom")
	}
	if r, ok := f.replies[modelID]; ok {
		out := *r
		return &out
	}
	msg := "no reply"
	return &providers.Result{Error: &msg, ErrorKind: providers.FailureUnknown}
}

func (f *fakeRouter) reply(modelID int64, content, model string) {
	f.replies[modelID] = &providers.Result{Success: true, Content: &content, Model: model}
}

func (f *fakeRouter) fail(modelID int64, msg string) {
	f.replies[modelID] = &providers.Result{Error: &msg, ErrorKind: providers.FailureHTTP}
}

type fakeSearcher struct {
	response *search.Response
	queries  []string
	options  []search.Options
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts search.Options) *search.Response {
	f.queries = append(f.queries, query)
	f.options = append(f.options, opts)
	out := *f.response
	out.Query = query
	return &out
}

type testEnv struct {
	store  *storage.MemoryStore
	router *fakeRouter
	stages map[string]*models.Stage
}

// newTestEnv creates stages 1..3 (classification, analysis, recommendations)
// in that stored order, each with a system prompt and a model assignment
// whose model ID equals 100+stage ID.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:  storage.NewMemoryStore(),
		router: newFakeRouter(),
		stages: map[string]*models.Stage{},
	}
	for i, name := range []string{models.StageClassification, models.StageAnalysis, models.StageRecommendations} {
		env.addStage(t, int64(i+1), name, i+1, true)
	}
	return env
}

func (e *testEnv) addStage(t *testing.T, id int64, name string, order int, assign bool) *models.Stage {
	t.Helper()

	st := &models.Stage{ID: id, Name: name, DisplayName: "Stage " + name, Order: order, IsActive: true}
	e.store.AddStage(st)
	require.NoError(t, e.store.UpsertSystemPrompt(context.Background(), &models.SystemPrompt{StageID: id, PromptText: "prompt for " + name}))
	if assign {
		_, err := e.store.ActivateAssignment(id, 100+id, nil, 0)
		require.NoError(t, err)
	}
	e.stages[name] = st
	return st
}

func (e *testEnv) processor(opts ...Option) *Processor {
	return NewProcessor(e.store, prompts.NewManager(e.store), e.router, opts...)
}

func TestProcessNews_Validation(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		stageIDs []int64
		wantErr  string
	}{
		{"no stages", "some news", nil, ErrNoStagesSelected},
		{"empty stage list", "some news", []int64{}, ErrNoStagesSelected},
		{"empty text", "", []int64{1}, ErrEmptyText},
		{"whitespace text", "  \n\t ", []int64{1}, ErrEmptyText},
		{"unknown stages", "some news", []int64{42, 43}, ErrNoActiveStages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			res := env.processor().ProcessNews(context.Background(), 1, tt.text, tt.stageIDs)

			require.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantErr, *res.Error)
			assert.NotNil(t, res.Results)
			assert.Empty(t, res.Results)
			assert.Empty(t, env.router.calls)
		})
	}
}

func TestProcessNews_InactiveStagesAreIgnored(t *testing.T) {
	env := newTestEnv(t)
	st := &models.Stage{ID: 9, Name: "retired", Order: 0, IsActive: false}
	env.store.AddStage(st)

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{9})

	require.False(t, res.Success)
	assert.Equal(t, ErrNoActiveStages, *res.Error)
	assert.Empty(t, env.router.calls)
}

func TestProcessNews_StoredOrderWins(t *testing.T) {
	env := newTestEnv(t)
	env.router.reply(101, "c1", "m1")
	env.router.reply(102, "c2", "m2")
	env.router.reply(103, "c3", "m3")

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{3, 1, 2})

	require.True(t, res.Success)
	assert.Nil(t, res.Error)
	require.Len(t, res.Results, 3)
	for i, sr := range res.Results {
		assert.Equal(t, int64(i+1), sr.StageID)
	}
	require.Len(t, env.router.calls, 3)
	assert.Equal(t, int64(101), env.router.calls[0].modelID)
	assert.Equal(t, int64(102), env.router.calls[1].modelID)
	assert.Equal(t, int64(103), env.router.calls[2].modelID)
	assert.NotEqual(t, uuid.Nil, res.RunID)
}

func TestProcessNews_MessagesAndFallbackFlag(t *testing.T) {
	env := newTestEnv(t)
	env.router.reply(101, "done", "gpt-4o")

	res := env.processor().ProcessNews(context.Background(), 5, "  Breaking news  ", []int64{1})
	require.True(t, res.Success)

	require.Len(t, env.router.calls, 1)
	call := env.router.calls[0]
	assert.True(t, call.useFallback)
	assert.Equal(t, []providers.Message{
		{Role: providers.RoleSystem, Content: "prompt for classification"},
		{Role: providers.RoleUser, Content: "Breaking news"},
	}, call.messages)

	sr := res.Results[0]
	assert.Equal(t, "classification", sr.StageName)
	assert.Equal(t, "Stage classification", sr.StageDisplayName)
	require.NotNil(t, sr.Content)
	assert.Equal(t, "done", *sr.Content)
	require.NotNil(t, sr.ModelUsed)
	assert.Equal(t, "gpt-4o", *sr.ModelUsed)
	assert.Nil(t, sr.Error)
}

func TestProcessNews_TextReachesModelVerbatim(t *testing.T) {
	inputs := []string{
		"if a<b and c>d the check fails.",
		"payloads like <script>alert(1)</script> in comments.",
		"Vote count: <Smith 40%> vs Jones.",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			env := newTestEnv(t)
			env.router.reply(101, "ok", "m1")

			res := env.processor().ProcessNews(context.Background(), 1, input, []int64{1})

			require.True(t, res.Success)
			require.Len(t, env.router.calls, 1)
			assert.Equal(t, input, env.router.calls[0].messages[1].Content)
		})
	}
}

func TestProcessNews_UsesCustomizedUserPrompt(t *testing.T) {
	env := newTestEnv(t)
	env.router.reply(101, "done", "m")
	_, err := prompts.NewManager(env.store).UpdateUserPrompt(context.Background(), 5, 1, "my own prompt")
	require.NoError(t, err)

	res := env.processor().ProcessNews(context.Background(), 5, "news", []int64{1})
	require.True(t, res.Success)
	assert.Equal(t, "my own prompt", env.router.calls[0].messages[0].Content)
}

func TestProcessNews_PartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addStage(t, 4, "unassigned", 2, false)
	env.router.reply(101, "c1", "m1")
	env.router.reply(103, "c3", "m3")

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{1, 4, 3})

	require.False(t, res.Success)
	assert.Nil(t, res.Error)
	require.Len(t, res.Results, 3)

	assert.True(t, res.Results[0].Success)
	assert.Equal(t, int64(4), res.Results[1].StageID)
	assert.False(t, res.Results[1].Success)
	require.NotNil(t, res.Results[1].Error)
	assert.Equal(t, "no model assigned for stage Stage unassigned", *res.Results[1].Error)
	assert.True(t, res.Results[2].Success)
	assert.Equal(t, "c3", *res.Results[2].Content)

	assert.Len(t, env.router.calls, 2)
}

func TestProcessNews_RouterFailureIsStageError(t *testing.T) {
	env := newTestEnv(t)
	env.router.fail(101, "OpenAI API error 500: upstream")
	env.router.reply(102, "c2", "m2")

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{1, 2})

	require.False(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "OpenAI API error 500: upstream", *res.Results[0].Error)
	assert.Nil(t, res.Results[0].Content)
	assert.Nil(t, res.Results[0].ModelUsed)
	assert.True(t, res.Results[1].Success)
}

func TestProcessNews_PropagatesFallback(t *testing.T) {
	env := newTestEnv(t)
	content := "rescued"
	original := "OpenAI: rate limit exceeded (HTTP 429)"
	env.router.replies[101] = &providers.Result{
		Success:       true,
		Content:       &content,
		Model:         "claude-3-5-sonnet",
		FallbackUsed:  true,
		OriginalError: &original,
	}

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{1})

	require.True(t, res.Success)
	sr := res.Results[0]
	assert.True(t, sr.FallbackUsed)
	require.NotNil(t, sr.OriginalError)
	assert.Equal(t, original, *sr.OriginalError)
	assert.Equal(t, "claude-3-5-sonnet", *sr.ModelUsed)
}

func TestProcessNews_PanicIsContained(t *testing.T) {
	env := newTestEnv(t)
	env.router.panics[101] = true
	env.router.reply(102, "c2", "m2")

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{1, 2})

	require.False(t, res.Success)
	require.Len(t, res.Results, 2)
	require.NotNil(t, res.Results[0].Error)
	assert.Equal(t, "Processing error: boom", *res.Results[0].Error)
	assert.True(t, res.Results[1].Success)
}

func TestProcessNews_MissingSystemPrompt(t *testing.T) {
	env := newTestEnv(t)
	bare := &models.Stage{ID: 7, Name: "bare", DisplayName: "Bare", Order: 9, IsActive: true}
	env.store.AddStage(bare)
	_, err := env.store.ActivateAssignment(7, 107, nil, 0)
	require.NoError(t, err)

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{7})

	require.False(t, res.Success)
	require.Len(t, res.Results, 1)
	require.NotNil(t, res.Results[0].Error)
	assert.Contains(t, *res.Results[0].Error, "system prompt not found")
	assert.Empty(t, env.router.calls)
}

func freshnessEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.addStage(t, 10, models.StageFreshnessCheck, 2, true)
	env.addStage(t, 11, models.StageFreshnessAnalysis, 3, true)
	env.router.reply(110, "Central bank raises rates\nreasoning follows", "m")
	env.router.reply(111, "fresh", "m")
	return env
}

func TestProcessNews_FreshnessEnrichment(t *testing.T) {
	env := freshnessEnv(t)
	searcher := &fakeSearcher{response: &search.Response{
		Success: true,
		Results: []search.Result{
			{Title: "Rates go up", URL: "https://news.example.com/a", Description: "The bank moved.", Published: "2 days ago", Source: "news.example.com"},
		},
		Total: 1,
	}}

	res := env.processor(WithSearcher(searcher)).ProcessNews(context.Background(), 1, "The central bank met today.", []int64{10, 11})

	require.True(t, res.Success)
	require.Len(t, res.Results, 2)

	require.Equal(t, []string{"Central bank raises rates"}, searcher.queries)
	assert.Equal(t, search.Options{Count: 10, Freshness: "pw"}, searcher.options[0])

	check := res.Results[0]
	require.Len(t, check.SearchResults, 1)
	assert.Equal(t, "Rates go up", check.SearchResults[0].Title)
	assert.Nil(t, check.SearchError)

	analysisInput := env.router.calls[1].messages[1].Content
	assert.Contains(t, analysisInput, "The central bank met today.")
	assert.Contains(t, analysisInput, "1. Rates go up")
	assert.Contains(t, analysisInput, "URL: https://news.example.com/a")
}

func TestProcessNews_FreshnessSearchFailure(t *testing.T) {
	env := freshnessEnv(t)
	msg := "Brave Search: rate limit exceeded (HTTP 429)"
	searcher := &fakeSearcher{response: &search.Response{Success: false, Results: []search.Result{}, Error: &msg}}

	res := env.processor(WithSearcher(searcher)).ProcessNews(context.Background(), 1, "news", []int64{10, 11})

	require.True(t, res.Success)
	check := res.Results[0]
	assert.True(t, check.Success)
	require.NotNil(t, check.SearchError)
	assert.Equal(t, msg, *check.SearchError)
	assert.Equal(t, "news", env.router.calls[1].messages[1].Content)
}

func TestProcessNews_NoSearcherNoEnrichment(t *testing.T) {
	env := freshnessEnv(t)

	res := env.processor().ProcessNews(context.Background(), 1, "news", []int64{10, 11})

	require.True(t, res.Success)
	assert.Nil(t, res.Results[0].SearchResults)
	assert.Nil(t, res.Results[0].SearchError)
	assert.Equal(t, "news", env.router.calls[1].messages[1].Content)
}

func TestStageResult_JSON(t *testing.T) {
	content := "x"
	model := "m"
	data, err := json.Marshal(StageResult{StageID: 1, StageName: "a", Success: true, Content: &content, ModelUsed: &model})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "x", got["content"])
	assert.Contains(t, got, "error")
	assert.Nil(t, got["error"])
	assert.NotContains(t, got, "fallback_used")
	assert.NotContains(t, got, "searchResults")
}

func TestGetAvailableStages(t *testing.T) {
	env := newTestEnv(t)
	env.addStage(t, 4, "unassigned", 0, false)

	stages, err := env.processor().GetAvailableStages(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, 4)

	assert.Equal(t, "unassigned", stages[0].Name)
	assert.False(t, stages[0].HasModel)
	for _, st := range stages[1:] {
		assert.True(t, st.HasModel, st.Name)
	}
	assert.Equal(t, []int{0, 1, 2, 3}, []int{stages[0].Order, stages[1].Order, stages[2].Order, stages[3].Order})
	assert.Empty(t, env.router.calls)
}
