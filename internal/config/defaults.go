package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:        "info",
			DefaultProvider: "openai",
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   "${WHATSAPP_API_TOKEN}",
			VerifyToken:   "${WHATSAPP_VERIFY_TOKEN}",
			PhoneNumberID: "${WHATSAPP_PHONE_NUMBER_ID}",
			APIVersion:    "v21.0",
			WebhookPath:   "/wpp-webhook",
			Host:          "0.0.0.0",
			Port:          8002,
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				Enabled:            true,
				APIBase:            "https://api.openai.com/v1",
				APIKey:             "${OPENAI_API_KEY}",
				Model:              "gpt-4o-mini",
				TranscriptionModel: "whisper-1",
			},
			"groq": {
				Enabled:            true,
				APIBase:            "https://api.groq.com/openai/v1",
				APIKey:             "${GROQ_API_KEY}",
				Model:              "llama-3.1-8b-instant",
				TranscriptionModel: "whisper-large-v3-turbo",
			},
			"ollama": {
				Enabled: false,
				APIBase: "http://localhost:11434",
				Model:   "llama3.1:8b",
			},
		},
		OCR: OCRConfig{
			Languages: []string{"por", "eng"},
		},
		Storage: StorageConfig{
			DataDir:    "~/.lorisbot/data",
			LedgerPath: "~/.lorisbot/ledger.db",
		},
	}
}
