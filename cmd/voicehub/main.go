// voicehub: push-to-talk conversational voice agent.
// Capture → transcription → streaming LLM reply spoken sentence by
// sentence, with provider fallback and specialist-agent routing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openclaw/voicehub/internal/config"
	"github.com/openclaw/voicehub/internal/log"
	"github.com/openclaw/voicehub/internal/metrics"
	"github.com/openclaw/voicehub/pkg/agent"
	"github.com/openclaw/voicehub/pkg/audioio"
	"github.com/openclaw/voicehub/pkg/capture"
	"github.com/openclaw/voicehub/pkg/cmdlog"
	"github.com/openclaw/voicehub/pkg/command"
	"github.com/openclaw/voicehub/pkg/control"
	"github.com/openclaw/voicehub/pkg/hub"
	"github.com/openclaw/voicehub/pkg/inference"
	"github.com/openclaw/voicehub/pkg/memory"
	"github.com/openclaw/voicehub/pkg/router"
	"github.com/openclaw/voicehub/pkg/stt"
	"github.com/openclaw/voicehub/pkg/tts"
	"github.com/openclaw/voicehub/pkg/vad"
	"github.com/openclaw/voicehub/pkg/voice"
)

const envFile = "~/.voicehub/.env"

var (
	configPath   = flag.String("config", "~/.voicehub/config.yaml", "configuration file")
	gateway      = flag.String("gateway", "", "specialist agent gateway URL (overrides config)")
	noTTS        = flag.Bool("no-tts", false, "disable speech output")
	testPipeline = flag.String("test-pipeline", "", "run one pipeline turn with this text and exit")
	logLevel     = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
)

func main() {
	flag.Parse()

	if err := config.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s: %v\n", envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *gateway != "" {
		cfg.Routing.GatewayURL = *gateway
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	log.Init(level, cfg.Logging.Format, cfg.Logging.File)
	logger := log.L()

	if *testPipeline != "" {
		if err := runTestPipeline(cfg, logger, *testPipeline); err != nil {
			logger.Error("test pipeline failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("voicehub exited", "error", err)
		os.Exit(1)
	}
	logger.Info("voicehub shut down")
}

// run wires every component from the config and drives the daemon
// loop until the context is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New(nil)

	chain, err := buildChain(cfg, logger)
	if err != nil {
		return err
	}
	defer chain.Close()
	chain.OnFailover(func(provider string, err error) {
		m.RecordFailover()
	})

	engine, err := buildSynthesis(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	transcriber, err := buildTranscriber(cfg)
	if err != nil {
		return err
	}
	defer transcriber.Close()

	source, err := audioio.NewSource(cfg.Audio.Config, logger)
	if err != nil {
		return fmt.Errorf("audio source: %w", err)
	}
	defer source.Close()

	sink, err := audioio.NewSink(cfg.Audio.Config, logger)
	if err != nil {
		return fmt.Errorf("audio sink: %w", err)
	}
	defer sink.Close()

	detector, err := vad.New(cfg.STT.VAD)
	if err != nil {
		return fmt.Errorf("vad: %w", err)
	}
	recorder := capture.NewRecorder(cfg.STT.Capture, source, detector, logger)

	mem := memory.New(cfg.Conversation.MaxTurns,
		memory.WithFile(cfg.Conversation.HistoryFile),
		memory.WithPreamble(cfg.SystemPrompt()),
		memory.WithLogger(logger),
	)

	pipeline := voice.NewPipeline(chain, engine, sink,
		voice.Config{
			RouteWindow: cfg.Routing.RouteWindow,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
		voice.Hooks{
			OnExhaustion:       m.RecordExhaustion,
			OnSynthesisFailure: m.RecordSynthesisFailure,
			OnInterrupt:        m.RecordInterrupt,
		},
		logger,
	)

	commandLog := cmdlog.New(cfg.Logging.CommandLog)

	var rtr *router.Router
	if cfg.Routing.GatewayURL != "" {
		token := os.Getenv(cfg.Routing.TokenEnv)
		client := router.NewAgentClient(cfg.Routing.GatewayURL, token, 60*time.Second)
		defer client.Close()
		rtr = router.New(router.Config{
			BridgePhrases: cfg.Routing.BridgePhrases,
			DisplayNames:  cfg.Routing.DisplayNames,
			MaxWords:      cfg.Routing.MaxWords,
			OnOutcome:     m.RecordRouted,
		}, client, engine, sink, mem, commandLog, logger)
	}

	events := hub.New("events", logger)
	go events.Run()
	defer events.Close()

	remote := agent.NewChanTrigger()
	trigger := agent.NewMultiTrigger(remote, agent.NewLineTrigger(os.Stdin))
	defer trigger.Close()

	var speech tts.Engine
	if !*noTTS {
		speech = engine
	}

	a, err := agent.New(agent.Config{
		SampleRate:            cfg.Audio.SampleRate,
		BeepFrequency:         cfg.Audio.BeepFrequency,
		BeepDuration:          cfg.Audio.BeepDuration,
		DeactivationFrequency: cfg.Audio.DeactivationFrequency,
		DeactivationDuration:  cfg.Audio.DeactivationDuration,
	}, agent.Deps{
		Recorder:    recorder,
		Transcriber: transcriber,
		Pipeline:    pipeline,
		Router:      rtr,
		Memory:      mem,
		Commands:    command.NewMatcher(cfg.Conversation.VoiceCommands),
		Trigger:     trigger,
		Speech:      speech,
		Sink:        sink,
		CmdLog:      commandLog,
		Hub:         events,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	srv := control.NewServer(cfg.Control, a, remote, events, logger)
	srv.StartAsync()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("voicehub ready",
		"llm", cfg.LLM.Model,
		"tts", engine.Name(),
		"history_turns", mem.Len(),
		"control", cfg.Control.Addr,
	)
	if speech != nil {
		if err := tts.Speak(ctx, speech, sink, "Voice hub online."); err != nil {
			logger.Warn("greeting playback failed", "error", err)
		}
	}

	return a.Run(ctx)
}

// runTestPipeline exercises one streaming turn without a microphone.
func runTestPipeline(cfg *config.Config, logger *slog.Logger, text string) error {
	chain, err := buildChain(cfg, logger)
	if err != nil {
		return err
	}
	defer chain.Close()

	engine, err := buildSynthesis(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	sink, err := audioio.NewSink(cfg.Audio.Config, logger)
	if err != nil {
		return fmt.Errorf("audio sink: %w", err)
	}
	defer sink.Close()

	mem := memory.New(cfg.Conversation.MaxTurns,
		memory.WithPreamble(cfg.SystemPrompt()),
		memory.WithLogger(logger),
	)
	mem.AddUser(text)

	pipeline := voice.NewPipeline(chain, engine, sink,
		voice.Config{
			RouteWindow: cfg.Routing.RouteWindow,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}, voice.Hooks{}, logger)

	turns := mem.Messages()
	messages := make([]inference.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, inference.Message{
			Role:    inference.Role(t.Role),
			Content: t.Content,
		})
	}

	result, err := pipeline.Run(context.Background(), messages)
	if err != nil {
		return err
	}

	fmt.Println(result.Text)
	if result.Route != nil {
		fmt.Printf("route: %s %q\n", result.Route.AgentID, result.Route.Query)
	}
	if result.Errored {
		return errors.New("every provider failed")
	}
	return nil
}

// buildChain assembles the provider fallback chain: the local backend
// first, then the configured cloud fallbacks in order.
func buildChain(cfg *config.Config, logger *slog.Logger) (*inference.Chain, error) {
	descriptors := []inference.Descriptor{{
		ID:         "local",
		Name:       "Local",
		Endpoint:   cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		Compatible: inference.CompatOllama,
	}}

	fallbacks, err := config.LoadProviders(cfg.LLM.ProvidersFile)
	if err != nil {
		return nil, err
	}
	descriptors = append(descriptors, fallbacks...)

	return inference.NewChainFromDescriptors(descriptors, logger,
		inference.WithMaxTokens(cfg.LLM.MaxTokens),
		inference.WithTemperature(cfg.LLM.Temperature),
		inference.WithStreamTimeout(cfg.LLM.StreamTimeout),
		inference.WithLogger(logger),
	)
}

// buildSynthesis builds the synthesis chain: the configured primary
// engine with the OS synthesizer as fallback. --no-tts and engine
// "none" yield a silent engine.
func buildSynthesis(cfg *config.Config, logger *slog.Logger) (tts.Engine, error) {
	if *noTTS || cfg.TTS.Engine == "none" {
		return tts.NewNull(), nil
	}

	var engines []tts.Engine
	switch cfg.TTS.Engine {
	case "piper", "":
		piperOpts := []tts.Option{
			tts.WithVoice(cfg.TTS.Voice),
			tts.WithSampleRate(cfg.TTS.SampleRate),
			tts.WithLogger(logger),
		}
		if cfg.TTS.Binary != "" {
			piperOpts = append(piperOpts, tts.WithBinary(cfg.TTS.Binary))
		}
		p, err := tts.NewPiper(piperOpts...)
		if err != nil {
			logger.Warn("piper unavailable, falling back to the OS synthesizer", "error", err)
		} else {
			engines = append(engines, p)
		}
	case "http":
		httpOpts := []tts.Option{
			tts.WithAPIKey(os.Getenv(cfg.TTS.APIKeyEnv)),
			tts.WithLogger(logger),
		}
		if cfg.TTS.Endpoint != "" {
			httpOpts = append(httpOpts, tts.WithBaseURL(cfg.TTS.Endpoint))
		}
		if cfg.TTS.Voice != "" {
			httpOpts = append(httpOpts, tts.WithVoice(cfg.TTS.Voice))
		}
		h, err := tts.NewHTTPEngine(cfg.TTS.Model, httpOpts...)
		if err != nil {
			logger.Warn("http synthesis unavailable, falling back to the OS synthesizer", "error", err)
		} else {
			engines = append(engines, h)
		}
	case "say":
		// The OS synthesizer is appended below.
	}

	osEngine, err := tts.NewSay(tts.WithLogger(logger))
	if err != nil {
		logger.Warn("no OS synthesizer found", "error", err)
	} else {
		engines = append(engines, osEngine)
	}

	if len(engines) == 0 {
		return nil, errors.New("tts: no synthesis engine available; use --no-tts to run silent")
	}
	chain, err := tts.NewChainWithLogger(logger, engines...)
	if err != nil {
		return nil, err
	}
	return chain, nil
}

func buildTranscriber(cfg *config.Config) (stt.Engine, error) {
	opts := []stt.Option{
		stt.WithModel(cfg.STT.Model),
		stt.WithLanguage(cfg.STT.Language),
		stt.WithLogger(log.L()),
	}
	if cfg.STT.Endpoint != "" {
		opts = append(opts, stt.WithBaseURL(cfg.STT.Endpoint))
	}
	if cfg.STT.APIKeyEnv != "" {
		opts = append(opts, stt.WithAPIKey(os.Getenv(cfg.STT.APIKeyEnv)))
	}
	return stt.NewHTTPEngine(opts...)
}
