package config

import (
	"log"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"checkmate"`

	// Slack 配置
	SlackBotToken string `env:"SLACK_BOT_TOKEN"` // 必填，xoxb- 开头
	SlackAppToken string `env:"SLACK_APP_TOKEN"` // 必填，xapp- 开头，Socket Mode 用

	// 机器人变体：checkin（打卡）或 notes（记事）
	BotVariant string `env:"BOT_VARIANT" envDefault:"checkin"`

	// 记录存储配置
	RecordDir string `env:"RECORD_DIR" envDefault:"checkin_records"`
	Timezone  string `env:"TIMEZONE" envDefault:"Asia/Singapore"` // 记录日所在时区

	// 日报导出配置
	ExportTime     string `env:"EXPORT_TIME" envDefault:"23:59"` // 每日导出时间 HH:MM
	EmailAddress   string `env:"EMAIL_ADDRESS"`                  // 必填，发件人
	EmailPassword  string `env:"EMAIL_PASSWORD"`                 // 必填，发件人应用密码
	RecipientEmail string `env:"RECIPIENT_EMAIL"`                // 必填，收件人
	SMTPServer     string `env:"SMTP_SERVER" envDefault:"smtp.gmail.com"`
	SMTPPort       string `env:"SMTP_PORT" envDefault:"587"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`
}

// Load 在进程启动最早阶段调用；必填项缺失直接终止进程。
func Load() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.SlackBotToken == "" {
		log.Fatal("SLACK_BOT_TOKEN is required")
	}

	if Cfg.SlackAppToken == "" {
		log.Fatal("SLACK_APP_TOKEN is required")
	}

	if Cfg.EmailAddress == "" {
		log.Fatal("EMAIL_ADDRESS is required")
	}

	if Cfg.EmailPassword == "" {
		log.Fatal("EMAIL_PASSWORD is required")
	}

	if Cfg.RecipientEmail == "" {
		log.Fatal("RECIPIENT_EMAIL is required")
	}

	switch strings.ToLower(Cfg.BotVariant) {
	case "checkin", "notes":
	default:
		log.Fatalf("BOT_VARIANT must be 'checkin' or 'notes', got %q", Cfg.BotVariant)
	}
}

func (c *Config) GetSMTPAddr() string {
	return c.SMTPServer + ":" + c.SMTPPort
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
