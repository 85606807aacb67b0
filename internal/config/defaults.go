package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:    "info",
			EventBuffer: 100,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			EventStream: false,
		},
		Twilio: TwilioConfig{
			ValidateOnStart: true,
		},
		Recognition: RecognitionConfig{
			TimeoutSeconds: 15,
			IntentsDir:     "~/.smsbridge/intents",
		},
		Sessions: SessionsConfig{
			DBPath: "~/.smsbridge/sessions.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}
