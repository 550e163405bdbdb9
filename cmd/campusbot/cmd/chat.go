package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cychuang/campusbot/internal/ai"
	"github.com/cychuang/campusbot/internal/chat"
	"github.com/cychuang/campusbot/internal/config"
	"github.com/cychuang/campusbot/internal/history"
	"github.com/cychuang/campusbot/internal/knowledge"
	"github.com/cychuang/campusbot/internal/prompt"
	"github.com/cychuang/campusbot/internal/talk"
	"github.com/cychuang/campusbot/internal/telemetry"
)

var chatTurnTimeout time.Duration

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive console session against the bot",
	Long: `Starts a local console loop that feeds each line you type to the
dialogue orchestrator as an inbound message, standing in for the chat
transport.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().DurationVar(&chatTurnTimeout, "turn-timeout", 60*time.Second, "Timeout for one turn's external calls")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:      cfg.TelemetryEnabled,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shut down telemetry: %v", err)
		}
	}()

	querier, closeQuerier, err := openQuerier(cfg)
	if err != nil {
		return err
	}
	defer closeQuerier()

	historyLog, err := history.OpenSQLite(cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	defer historyLog.Close()

	prompts, err := newPromptStore(cfg)
	if err != nil {
		return err
	}

	gateway, err := newGateway(cfg)
	if err != nil {
		return err
	}

	orchestrator := talk.New(talk.Params{
		Gateway: gateway,
		Querier: querier,
		Prompts: prompts,
		History: historyLog,
		BotName: cfg.BotName,
		BotTone: cfg.BotTone,
		Tracer:  provider.Tracer("talk"),
	})

	log.Printf("Chatting as %s (provider: %s). Ctrl-D to exit.", cfg.BotName, cfg.Provider)

	source := chat.Source{UserID: "console", ConversationID: "console", Activated: true}
	replier := consoleReplier{}
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			turnCtx, cancel := context.WithTimeout(ctx, chatTurnTimeout)
			c := chat.NewContext(chat.TextEvent{Text: line}, source, cfg.BotName, replier)
			if err := orchestrator.Handle(turnCtx, c); err != nil {
				log.Printf("Failed to handle message: %v", err)
			}
			cancel()
		}
		if ctx.Err() != nil {
			break
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

// consoleReplier prints replies to stdout, showing quick-reply actions as
// bracketed hints.
type consoleReplier struct{}

func (consoleReplier) SendText(text string) error {
	fmt.Println(text)
	return nil
}

func (consoleReplier) PushText(text string, actions []chat.Command) error {
	fmt.Println(text)
	for _, a := range actions {
		fmt.Printf("  [%s]\n", a.Label())
	}
	return nil
}

func (consoleReplier) PushError(err error) error {
	fmt.Printf("(error) %v\n", err)
	return nil
}

func openQuerier(cfg config.Config) (knowledge.Querier, func(), error) {
	var (
		base      knowledge.Querier
		closeBase func()
	)
	if cfg.BleveIndexPath != "" {
		idx, err := knowledge.OpenBleve(cfg.BleveIndexPath)
		if err != nil {
			return nil, nil, err
		}
		base = idx
		closeBase = func() { idx.Close() }
	} else {
		store, err := knowledge.OpenSQLite(cfg.KnowledgeDBPath)
		if err != nil {
			return nil, nil, err
		}
		base = store
		closeBase = func() { store.Close() }
	}

	cached, err := knowledge.NewCachedQuerier(base, 0)
	if err != nil {
		closeBase()
		return nil, nil, err
	}
	return cached, closeBase, nil
}

func newPromptStore(cfg config.Config) (prompt.Store, error) {
	if cfg.MaxUsers > 0 {
		return prompt.NewLRUStore(cfg.MaxUsers, cfg.MaxPromptTurns)
	}
	return prompt.NewMemoryStore(cfg.MaxPromptTurns), nil
}

func newGateway(cfg config.Config) (ai.Gateway, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return ai.NewAnthropicGateway(cfg.AnthropicAPIKey, cfg.Model, cfg.MaxOutputTokens), nil
	case config.ProviderOpenAI:
		return ai.NewOpenAIGateway(cfg.OpenAIAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown completion provider: %q", cfg.Provider)
	}
}
