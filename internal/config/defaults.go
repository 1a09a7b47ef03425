package config

const (
	defaultAssetsDir         = "~/.local/share/lotreel/assets"
	defaultLogDir            = "~/.local/share/lotreel/logs"
	defaultAPIBind           = "127.0.0.1:7511"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "openai/gpt-4o-mini"
	defaultLLMTimeoutSeconds = 60
	defaultVoiceCommand      = "lotreel-tts"
	defaultVoiceName         = "dan"
	defaultVoiceStyle        = "aggressive"
	defaultProcessCommand    = "rembg"
	defaultMaxImages         = 2
	defaultQRCommand         = "qrencode"
	defaultQRSize            = 400
	defaultComposeCommand    = "ffmpeg"
	defaultVideoTemplate     = "dark"
	defaultVideoResolution   = "1920x1080"
	defaultDownloadTimeout   = 60
	defaultProcessTimeout    = 300
	defaultScriptTimeout     = 90
	defaultVoiceoverTimeout  = 180
	defaultQRTimeout         = 30
	defaultComposeTimeout    = 900
	defaultNotifyTimeout     = 10
	defaultMaxConcurrent     = 4
	defaultHeartbeat         = 15
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AssetsDir: defaultAssetsDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Voice: Voice{
			Command: defaultVoiceCommand,
			Name:    defaultVoiceName,
			Style:   defaultVoiceStyle,
		},
		Images: Images{
			ProcessCommand: defaultProcessCommand,
			MaxImages:      defaultMaxImages,
		},
		QR: QR{
			Command: defaultQRCommand,
			Size:    defaultQRSize,
		},
		Video: Video{
			ComposeCommand: defaultComposeCommand,
			Template:       defaultVideoTemplate,
			Resolution:     defaultVideoResolution,
		},
		Stages: Stages{
			DownloadTimeout:  defaultDownloadTimeout,
			ProcessTimeout:   defaultProcessTimeout,
			ScriptTimeout:    defaultScriptTimeout,
			VoiceoverTimeout: defaultVoiceoverTimeout,
			QRTimeout:        defaultQRTimeout,
			ComposeTimeout:   defaultComposeTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Errors:         true,
			Review:         true,
			Publish:        true,
		},
		Workflow: Workflow{
			MaxConcurrentJobs: defaultMaxConcurrent,
			HeartbeatInterval: defaultHeartbeat,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
