// Package talk implements the dialogue orchestrator: the activation gate, the
// retrieval short-circuit tier, and the stateful conversational fallback.
package talk

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cychuang/campusbot/internal/ai"
	"github.com/cychuang/campusbot/internal/chat"
	"github.com/cychuang/campusbot/internal/history"
	"github.com/cychuang/campusbot/internal/knowledge"
	"github.com/cychuang/campusbot/internal/locale"
	"github.com/cychuang/campusbot/internal/prompt"
)

// Params collects the orchestrator's collaborators.
type Params struct {
	Gateway ai.Gateway
	Querier knowledge.Querier
	Prompts prompt.Store
	History history.Log
	Strings *locale.Table
	BotName string
	BotTone string
	Tracer  trace.Tracer // Optional; nil disables tracing
}

// Orchestrator routes each inbound message through the two answer tiers.
type Orchestrator struct {
	gateway ai.Gateway
	querier knowledge.Querier
	prompts prompt.Store
	history history.Log
	strings *locale.Table
	botName string
	botTone string
	tracer  trace.Tracer
}

// New creates an orchestrator.
func New(p Params) *Orchestrator {
	if p.Strings == nil {
		p.Strings = locale.Default()
	}
	if p.Tracer == nil {
		p.Tracer = noop.NewTracerProvider().Tracer("talk")
	}
	return &Orchestrator{
		gateway: p.Gateway,
		querier: p.Querier,
		prompts: p.Prompts,
		history: p.History,
		strings: p.Strings,
		botName: p.BotName,
		botTone: p.BotTone,
		tracer:  p.Tracer,
	}
}

// Check is the activation gate: true iff the message carries the talk
// command, mentions the bot's name, or the source is already activated. Pure
// predicate; callers re-evaluate it on every handling attempt.
func (o *Orchestrator) Check(c *chat.Context) bool {
	return c.HasCommand(chat.CommandTalk) || c.MentionsBotName() || c.Source.Activated
}

// Handle processes one inbound message end to end. It returns an error only
// for infrastructure failures the transport itself could not be told about;
// tier failures are contained or surfaced through the context.
func (o *Orchestrator) Handle(ctx context.Context, c *chat.Context) error {
	if !o.Check(c) {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "talk.handle", trace.WithAttributes(
		attribute.String("user.id", c.Source.UserID),
	))
	defer span.End()

	if c.HasCommand(chat.CommandForget) {
		return o.forget(ctx, c)
	}

	// The continue command resumes a truncated reply; routing it through the
	// retrieval tier would treat the token as a search keyword
	if c.IsText() && !c.HasCommand(chat.CommandContinue) {
		outcome := o.attemptRetrieval(ctx, c)
		switch outcome.Status {
		case RetrievalHandled:
			return nil
		case RetrievalFailed:
			// Contained: log and fall through to the conversational tier
			log.Printf("Retrieval tier failed for user %s: %v", c.Source.UserID, outcome.Err)
		case RetrievalNotHandled:
		}
	}

	return o.converse(ctx, c)
}

// attemptRetrieval runs the short-circuit tier: keyword extraction, fuzzy
// queries against both collections, and a grounded completion constrained to
// the matched records. Any internal failure yields RetrievalFailed; the
// caller decides what falling through looks like.
func (o *Orchestrator) attemptRetrieval(ctx context.Context, c *chat.Context) RetrievalOutcome {
	ctx, span := o.tracer.Start(ctx, "talk.retrieval")
	defer span.End()

	userInput := c.Text()
	tokens := knowledge.Tokenize(userInput)
	if len(tokens) == 0 {
		// No usable keywords. Querying anyway would degenerate into an
		// unconstrained match-everything filter.
		return notHandled()
	}

	courses, qas, err := o.queryCollections(ctx, tokens)
	if err != nil {
		return failed(err)
	}
	if len(courses) == 0 && len(qas) == 0 {
		return notHandled()
	}

	block := knowledge.RenderContextBlock(courses, qas)
	result, err := o.gateway.Complete(ctx, ai.Request{
		System: o.strings.RetrievalInstruction(o.botName),
		Messages: []ai.Message{
			{Role: prompt.RoleHuman, Content: userInput},
			{Role: prompt.RoleAssistant, Content: block},
		},
	})
	if err != nil {
		return failed(fmt.Errorf("grounded completion failed: %w", err))
	}

	if err := c.SendText(result.Text); err != nil {
		return failed(fmt.Errorf("failed to send reply: %w", err))
	}
	return handled(result.Text)
}

// queryCollections runs the two independent collection queries concurrently.
func (o *Orchestrator) queryCollections(ctx context.Context, tokens []string) ([]knowledge.Course, []knowledge.QA, error) {
	var (
		courses    []knowledge.Course
		qas        []knowledge.QA
		courseErr  error
		qaErr      error
		qaFinished = make(chan struct{})
	)

	go func() {
		defer close(qaFinished)
		qas, qaErr = o.querier.QAs(ctx, knowledge.NewFilter(knowledge.FieldQuestion, tokens))
	}()
	courses, courseErr = o.querier.Courses(ctx, knowledge.NewFilter(knowledge.FieldTitle, tokens))
	<-qaFinished

	if courseErr != nil {
		return nil, nil, fmt.Errorf("course query failed: %w", courseErr)
	}
	if qaErr != nil {
		return nil, nil, fmt.Errorf("qa query failed: %w", qaErr)
	}
	return courses, qas, nil
}

// converse is the stateful fallback: append the inbound turn and an empty
// assistant slot to the user's buffer, complete over the whole buffer, patch
// and persist, log the transcript, and offer the continuation action matching
// the provider's finish signal. A failed completion leaves the stored buffer
// exactly as it was.
func (o *Orchestrator) converse(ctx context.Context, c *chat.Context) error {
	// An outer dispatcher may race activation state between Handle and here
	if !o.Check(c) {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "talk.converse")
	defer span.End()

	var result ai.Result
	err := o.prompts.Do(c.Source.UserID, func(buf *prompt.Buffer) (*prompt.Buffer, error) {
		// Mutate a clone so a failed turn never leaves a half-written
		// placeholder in the store
		work := buf.Clone()
		switch e := c.Event.(type) {
		case chat.TextEvent:
			text := c.TrimmedText()
			if c.HasCommand(chat.CommandContinue) && text == "" {
				// A bare continue picks up where the truncated reply stopped
				text = o.strings.T("continue_nudge")
			}
			work.Write(prompt.RoleHuman, o.strings.TonePrefix(o.botTone)+text).
				Write(prompt.RoleAssistant, "")
		case chat.ImageEvent:
			work.WriteImage(prompt.RoleHuman, e.Ref, c.TrimmedText()).
				Write(prompt.RoleAssistant, "")
		default:
			return nil, fmt.Errorf("unsupported event type %T", e)
		}

		res, err := o.gateway.Complete(ctx, ai.Request{Messages: ai.FromBuffer(work)})
		if err != nil {
			return nil, err
		}
		work.Patch(res.Text)
		result = res
		return work, nil
	})
	if err != nil {
		log.Printf("Conversation turn failed for user %s: %v", c.Source.UserID, err)
		return c.PushError(err)
	}

	if err := o.history.Append(ctx, c.Source.ConversationID, o.botName, result.Text); err != nil {
		// The transcript is write-only bookkeeping; a failed append must not
		// fail the turn
		log.Printf("Failed to append history for conversation %s: %v", c.Source.ConversationID, err)
	}

	var actions []chat.Command
	switch result.FinishReason {
	case ai.FinishStop:
		actions = []chat.Command{chat.CommandForget}
	default:
		actions = []chat.Command{chat.CommandContinue}
	}
	return c.PushText(result.Text, actions)
}

// forget resets the user's conversation buffer to empty and confirms.
func (o *Orchestrator) forget(ctx context.Context, c *chat.Context) error {
	_, span := o.tracer.Start(ctx, "talk.forget")
	defer span.End()

	err := o.prompts.Do(c.Source.UserID, func(buf *prompt.Buffer) (*prompt.Buffer, error) {
		work := buf.Clone()
		work.Reset()
		return work, nil
	})
	if err != nil {
		return c.PushError(err)
	}
	return c.SendText(o.strings.T("forget_done"))
}
