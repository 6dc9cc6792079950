package provider

import (
	"fmt"
	"log/slog"
	"net/http"

	"lorisbot/internal/config"
	"lorisbot/internal/domain"
)

// BuildChains constructs the ordered chat providers and the transcription
// fallback chain from config. Providers without a transcription capability
// (ollama) appear only on the chat side.
func BuildChains(cfg *config.Config, logger *slog.Logger) ([]domain.ChatProvider, *TranscribeChain, error) {
	client := SharedHTTPClient(defaultHTTPTimeout)

	var chats []domain.ChatProvider
	var transcribers []domain.Transcriber

	for _, name := range cfg.ProviderOrder() {
		pc, ok := cfg.Providers[name]
		if !ok {
			return nil, nil, fmt.Errorf("unknown provider in chain: %s", name)
		}
		if !pc.Enabled {
			continue
		}

		chat, trans, err := build(name, pc, client, logger)
		if err != nil {
			return nil, nil, err
		}
		chats = append(chats, chat)
		if trans != nil {
			transcribers = append(transcribers, trans)
		}
	}

	if len(chats) == 0 {
		return nil, nil, fmt.Errorf("no enabled providers configured")
	}

	return chats, NewTranscribeChain(transcribers, logger), nil
}

func build(name string, pc config.ProviderConfig, client *http.Client, logger *slog.Logger) (domain.ChatProvider, domain.Transcriber, error) {
	switch name {
	case "openai":
		chat := NewOpenAICompatible(OpenAIConfig{
			Name: name, APIBase: pc.APIBase, APIKey: pc.APIKey, Model: pc.Model,
			Client: client, Logger: logger,
		})
		trans := NewOpenAIWhisper(WhisperConfig{
			APIBase: pc.APIBase, APIKey: pc.APIKey, Model: pc.TranscriptionModel,
			Client: client, Logger: logger,
		})
		return chat, trans, nil
	case "groq":
		chat := NewOpenAICompatible(OpenAIConfig{
			Name: name, APIBase: pc.APIBase, APIKey: pc.APIKey, Model: pc.Model,
			Client: client, Logger: logger,
		})
		trans := NewGroqWhisper(WhisperConfig{
			APIBase: pc.APIBase, APIKey: pc.APIKey, Model: pc.TranscriptionModel,
			Client: client, Logger: logger,
		})
		return chat, trans, nil
	case "ollama":
		chat := NewOllama(OllamaConfig{
			APIBase: pc.APIBase, Model: pc.Model,
			Client: client, Logger: logger,
		})
		return chat, nil, nil
	default:
		if pc.APIBase != "" && pc.APIKey != "" {
			// Treat unknown providers as OpenAI-compatible.
			chat := NewOpenAICompatible(OpenAIConfig{
				Name: name, APIBase: pc.APIBase, APIKey: pc.APIKey, Model: pc.Model,
				Client: client, Logger: logger,
			})
			return chat, nil, nil
		}
		return nil, nil, fmt.Errorf("provider %s: no constructor and no API base/key configured", name)
	}
}
