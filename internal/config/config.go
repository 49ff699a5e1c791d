package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// ReminderConfig controls the reminder schedule. Each interval is the
// delay in hours between a step's anchor event and its due time. A step
// set to zero or a negative value is disabled entirely. Queue names the
// dispatch channel reminder jobs run on.
type ReminderConfig struct {
	FirstHours  float64 `mapstructure:"first_hours"`
	SecondHours float64 `mapstructure:"second_hours"`
	ThirdHours  float64 `mapstructure:"third_hours"`
	Queue       string  `mapstructure:"queue" validate:"required"`
}

// MailConfig contains outbound email settings.
type MailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key" validate:"required"`
	FromAddress    string `mapstructure:"from_address" validate:"required,email"`
	FromName       string `mapstructure:"from_name" validate:"required"`
}

// TaskConfig tunes the background task scheduler.
type TaskConfig struct {
	WorkerCount           int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize             int `mapstructure:"queue_size" validate:"required,gt=0"`
	StuckTaskAgeMinutes   int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
	StuckTaskCheckMinutes int `mapstructure:"stuck_task_check_minutes" validate:"required,gt=0"`
}
