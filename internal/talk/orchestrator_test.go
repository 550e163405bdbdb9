package talk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cychuang/campusbot/internal/ai"
	"github.com/cychuang/campusbot/internal/chat"
	"github.com/cychuang/campusbot/internal/history"
	"github.com/cychuang/campusbot/internal/knowledge"
	"github.com/cychuang/campusbot/internal/locale"
	"github.com/cychuang/campusbot/internal/prompt"
)

const (
	testBotName = "通通夠"
	testBotTone = "活潑"
)

type fakeGateway struct {
	requests []ai.Request
	result   ai.Result
	err      error
}

func (g *fakeGateway) Complete(_ context.Context, req ai.Request) (ai.Result, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return ai.Result{}, g.err
	}
	return g.result, nil
}

type fakeQuerier struct {
	courses []knowledge.Course
	qas     []knowledge.QA
	err     error

	courseCalls int
	qaCalls     int
}

func (q *fakeQuerier) Courses(_ context.Context, f knowledge.Filter) ([]knowledge.Course, error) {
	q.courseCalls++
	return q.courses, q.err
}

func (q *fakeQuerier) QAs(_ context.Context, f knowledge.Filter) ([]knowledge.QA, error) {
	q.qaCalls++
	return q.qas, q.err
}

type push struct {
	text    string
	actions []chat.Command
}

type fakeReplier struct {
	sent   []string
	pushed []push
	errs   []error
}

func (r *fakeReplier) SendText(text string) error {
	r.sent = append(r.sent, text)
	return nil
}

func (r *fakeReplier) PushText(text string, actions []chat.Command) error {
	r.pushed = append(r.pushed, push{text: text, actions: actions})
	return nil
}

func (r *fakeReplier) PushError(err error) error {
	r.errs = append(r.errs, err)
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	gateway      *fakeGateway
	querier      *fakeQuerier
	prompts      *prompt.MemoryStore
	history      *history.MemoryLog
	replier      *fakeReplier
}

func newFixture(gateway *fakeGateway, querier *fakeQuerier) *fixture {
	prompts := prompt.NewMemoryStore(0)
	historyLog := history.NewMemoryLog()
	return &fixture{
		orchestrator: New(Params{
			Gateway: gateway,
			Querier: querier,
			Prompts: prompts,
			History: historyLog,
			BotName: testBotName,
			BotTone: testBotTone,
		}),
		gateway: gateway,
		querier: querier,
		prompts: prompts,
		history: historyLog,
		replier: &fakeReplier{},
	}
}

func (f *fixture) textMessage(text string) *chat.Context {
	return chat.NewContext(
		chat.TextEvent{Text: text},
		chat.Source{UserID: "user-1", ConversationID: "conv-1", Activated: true},
		testBotName,
		f.replier,
	)
}

func TestOrchestrator_GateBlocksUnactivatedMessages(t *testing.T) {
	f := newFixture(&fakeGateway{}, &fakeQuerier{})
	c := chat.NewContext(
		chat.TextEvent{Text: "今天天氣如何"},
		chat.Source{UserID: "user-1", ConversationID: "conv-1", Activated: false},
		testBotName,
		f.replier,
	)

	require.NoError(t, f.orchestrator.Handle(context.Background(), c))
	require.Empty(t, f.gateway.requests)
	require.Empty(t, f.replier.sent)
	require.Empty(t, f.replier.pushed)
}

func TestOrchestrator_GateOpensOnCommandNameOrFlag(t *testing.T) {
	f := newFixture(&fakeGateway{}, &fakeQuerier{})

	byCommand := chat.NewContext(chat.TextEvent{Text: "聊天 你好"}, chat.Source{}, testBotName, f.replier)
	require.True(t, f.orchestrator.Check(byCommand))

	byName := chat.NewContext(chat.TextEvent{Text: "通通夠 你好"}, chat.Source{}, testBotName, f.replier)
	require.True(t, f.orchestrator.Check(byName))

	byFlag := chat.NewContext(chat.TextEvent{Text: "你好"}, chat.Source{Activated: true}, testBotName, f.replier)
	require.True(t, f.orchestrator.Check(byFlag))

	neither := chat.NewContext(chat.TextEvent{Text: "你好"}, chat.Source{}, testBotName, f.replier)
	require.False(t, f.orchestrator.Check(neither))
}

func TestOrchestrator_NoMatchFallsThroughToConversationOnce(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "你好呀！", FinishReason: ai.FinishStop}}
	f := newFixture(gateway, &fakeQuerier{})

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("今天 天氣 如何")))

	require.Equal(t, 1, f.querier.courseCalls)
	require.Equal(t, 1, f.querier.qaCalls)
	// Exactly one completion, the conversational one (no system instruction)
	require.Len(t, f.gateway.requests, 1)
	require.Empty(t, f.gateway.requests[0].System)
	require.Empty(t, f.replier.sent)
	require.Len(t, f.replier.pushed, 1)
	require.Equal(t, "你好呀！", f.replier.pushed[0].text)
}

func TestOrchestrator_RetrievalShortCircuit(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "英文通識在週三 3-4節上課", FinishReason: ai.FinishStop}}
	querier := &fakeQuerier{courses: []knowledge.Course{{Title: "英文通識", Time: "週三 3-4節"}}}
	f := newFixture(gateway, querier)

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("請問英文通識課程時間")))

	// One grounded completion with the strict instruction and the block
	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	require.Contains(t, req.System, "禁止自由發揮")
	require.Len(t, req.Messages, 2)
	require.Equal(t, "請問英文通識課程時間", req.Messages[0].Content)
	require.Equal(t, "【通識活動】\n活動：英文通識\n時間：週三 3-4節\n\n", req.Messages[1].Content)

	// The reply is exactly the provider's text, and the stateful tier never ran
	require.Equal(t, []string{"英文通識在週三 3-4節上課"}, f.replier.sent)
	require.Empty(t, f.replier.pushed)
	require.Equal(t, 0, f.prompts.Get("user-1").Len())
}

func TestOrchestrator_DegenerateInputSkipsRetrieval(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "嗯？", FinishReason: ai.FinishStop}}
	querier := &fakeQuerier{courses: []knowledge.Course{{Title: "英文通識", Time: "週三"}}}
	f := newFixture(gateway, querier)

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("?")))

	// No usable keywords: the collections must not be queried at all
	require.Equal(t, 0, f.querier.courseCalls)
	require.Equal(t, 0, f.querier.qaCalls)
	require.Len(t, f.replier.pushed, 1)
}

func TestOrchestrator_RetrievalFailureIsContained(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "換個方式聊聊吧", FinishReason: ai.FinishStop}}
	querier := &fakeQuerier{err: errors.New("backend unavailable")}
	f := newFixture(gateway, querier)

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("請問 通識 課程")))

	// The failure never reaches the user; the conversational tier answers
	require.Empty(t, f.replier.errs)
	require.Empty(t, f.replier.sent)
	require.Len(t, f.replier.pushed, 1)
	require.Len(t, f.gateway.requests, 1)
	require.Empty(t, f.gateway.requests[0].System)
}

func TestOrchestrator_FinishReasonDrivesActions(t *testing.T) {
	tests := []struct {
		name   string
		finish ai.FinishReason
		want   []chat.Command
	}{
		{name: "stop offers forget", finish: ai.FinishStop, want: []chat.Command{chat.CommandForget}},
		{name: "length offers continue", finish: ai.FinishLength, want: []chat.Command{chat.CommandContinue}},
		{name: "other offers continue", finish: ai.FinishOther, want: []chat.Command{chat.CommandContinue}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &fakeGateway{result: ai.Result{Text: "回覆", FinishReason: tt.finish}}
			f := newFixture(gateway, &fakeQuerier{})

			require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("今天 天氣")))

			require.Len(t, f.replier.pushed, 1)
			require.Equal(t, tt.want, f.replier.pushed[0].actions)
		})
	}
}

func TestOrchestrator_ConversationAccumulatesTurns(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "好的！", FinishReason: ai.FinishStop}}
	f := newFixture(gateway, &fakeQuerier{})
	ctx := context.Background()

	require.NoError(t, f.orchestrator.Handle(ctx, f.textMessage("第一 個問題")))
	require.NoError(t, f.orchestrator.Handle(ctx, f.textMessage("第二 個問題")))

	buf := f.prompts.Get("user-1")
	require.GreaterOrEqual(t, buf.Len(), 4)
	turns := buf.Turns()
	require.Equal(t, prompt.RoleHuman, turns[0].Role)
	require.Equal(t, prompt.RoleAssistant, turns[1].Role)
	require.Equal(t, "好的！", turns[1].Content)
	require.Equal(t, prompt.StateActive, buf.State())
}

func TestOrchestrator_ToneAndTrimApplyToHumanTurn(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "哈囉！", FinishReason: ai.FinishStop}}
	f := newFixture(gateway, &fakeQuerier{})

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("聊天 早安 你好")))

	turns := f.prompts.Get("user-1").Turns()
	require.Contains(t, turns[0].Content, testBotTone)
	require.Contains(t, turns[0].Content, "早安 你好")
	require.NotContains(t, turns[0].Content, "聊天")
}

func TestOrchestrator_ConversationFailureSurfacesAndRollsBack(t *testing.T) {
	gateway := &fakeGateway{err: errors.New("provider down")}
	f := newFixture(gateway, &fakeQuerier{})
	f.prompts.Get("user-1").Write(prompt.RoleHuman, "先前").Write(prompt.RoleAssistant, "內容")

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("新的 問題")))

	// Error surfaced through the transport's error path
	require.Len(t, f.replier.errs, 1)
	require.Empty(t, f.replier.pushed)

	// No half-written turn survives the failed turn
	buf := f.prompts.Get("user-1")
	require.Equal(t, 2, buf.Len())
	require.Equal(t, prompt.StateActive, buf.State())
	require.Empty(t, f.history.Entries("conv-1"))
}

func TestOrchestrator_HistoryLoggedAfterAssistantTurn(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "記下來了", FinishReason: ai.FinishStop}}
	f := newFixture(gateway, &fakeQuerier{})

	require.NoError(t, f.orchestrator.Handle(context.Background(), f.textMessage("幫我 記住")))

	entries := f.history.Entries("conv-1")
	require.Len(t, entries, 1)
	require.Equal(t, testBotName, entries[0].Speaker)
	require.Equal(t, "記下來了", entries[0].Text)
}

func TestOrchestrator_ForgetResetsBuffer(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "好", FinishReason: ai.FinishStop}}
	f := newFixture(gateway, &fakeQuerier{})
	ctx := context.Background()

	require.NoError(t, f.orchestrator.Handle(ctx, f.textMessage("聊聊 天氣")))
	require.NotZero(t, f.prompts.Get("user-1").Len())

	require.NoError(t, f.orchestrator.Handle(ctx, f.textMessage("忘記")))

	require.Equal(t, 0, f.prompts.Get("user-1").Len())
	require.Equal(t, prompt.StateIdle, f.prompts.Get("user-1").State())
	// Confirmation, not a completion: the gateway saw only the first turn
	require.Len(t, f.gateway.requests, 1)
	require.NotEmpty(t, f.replier.sent)
}

func TestOrchestrator_ContinueResumesTruncatedReply(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "前半段回答", FinishReason: ai.FinishLength}}
	// A real filtering querier holding a QA row whose question contains the
	// continue token itself; the command must never reach the retrieval tier
	// as a search keyword, where it would match this row
	querier := knowledge.NewMemoryQuerier()
	querier.AddQA(knowledge.QA{Question: "要怎麼繼續修課", Answer: "去教務處辦理"})
	prompts := prompt.NewMemoryStore(0)
	historyLog := history.NewMemoryLog()
	replier := &fakeReplier{}
	orchestrator := New(Params{
		Gateway: gateway,
		Querier: querier,
		Prompts: prompts,
		History: historyLog,
		BotName: testBotName,
		BotTone: testBotTone,
	})
	source := chat.Source{UserID: "user-1", ConversationID: "conv-1", Activated: true}
	ctx := context.Background()

	first := chat.NewContext(chat.TextEvent{Text: "說個 長故事"}, source, testBotName, replier)
	require.NoError(t, orchestrator.Handle(ctx, first))
	require.Len(t, replier.pushed, 1)
	require.Equal(t, []chat.Command{chat.CommandContinue}, replier.pushed[0].actions)

	gateway.result = ai.Result{Text: "後半段回答", FinishReason: ai.FinishStop}
	second := chat.NewContext(chat.TextEvent{Text: "繼續"}, source, testBotName, replier)
	require.NoError(t, orchestrator.Handle(ctx, second))

	// No grounded reply; the continue turn never went through retrieval
	require.Empty(t, replier.sent)

	// The second completion carries the whole conversation, no instruction
	require.Len(t, gateway.requests, 2)
	require.Empty(t, gateway.requests[1].System)
	require.GreaterOrEqual(t, len(gateway.requests[1].Messages), 3)

	buf := prompts.Get("user-1")
	require.Equal(t, 4, buf.Len())
	turns := buf.Turns()
	require.Equal(t, prompt.RoleHuman, turns[2].Role)
	require.Contains(t, turns[2].Content, locale.Default().T("continue_nudge"))
	require.Equal(t, "後半段回答", turns[3].Content)
	require.Len(t, replier.pushed, 2)
	require.Equal(t, []chat.Command{chat.CommandForget}, replier.pushed[1].actions)
}

func TestOrchestrator_ImageEventSkipsRetrieval(t *testing.T) {
	gateway := &fakeGateway{result: ai.Result{Text: "好可愛的照片！", FinishReason: ai.FinishStop}}
	querier := &fakeQuerier{courses: []knowledge.Course{{Title: "英文通識", Time: "週三"}}}
	f := newFixture(gateway, querier)

	c := chat.NewContext(
		chat.ImageEvent{Ref: "https://img.example/cat.png", Caption: "我的貓"},
		chat.Source{UserID: "user-1", ConversationID: "conv-1", Activated: true},
		testBotName,
		f.replier,
	)
	require.NoError(t, f.orchestrator.Handle(context.Background(), c))

	require.Equal(t, 0, f.querier.courseCalls)
	turns := f.prompts.Get("user-1").Turns()
	require.True(t, turns[0].IsImage())
	require.Equal(t, "https://img.example/cat.png", turns[0].ImageRef)
	require.Len(t, f.replier.pushed, 1)
}
