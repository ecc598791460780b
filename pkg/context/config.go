package context

import "github.com/Alcereo/fitlife/pkg/api"

type FilterType string

const (
	LogFilter         FilterType = "LogFilter"
	BearerTokenFilter FilterType = "BearerTokenFilter"
)

type StorageType string

const (
	GoCache StorageType = "GoCache"
	Sqlite  StorageType = "Sqlite"
)

type Storage struct {
	Type                   StorageType
	Path                   string
	ExpirationTimeHours    int `mapstructure:"expiration-time-hours" yaml:"expiration-time-hours"`
	EvictScheduleTimeHours int `mapstructure:"evict-schedule-time-hours" yaml:"evict-schedule-time-hours"`
}

type Filter struct {
	Type     FilterType
	Name     string
	Template string
}

type LogLevel string

const (
	Debug LogLevel = "debug"
	Trace LogLevel = "trace"
	Info  LogLevel = "info"
)

type ClientConfiguration struct {
	ApiBaseUrl            string        `mapstructure:"api-base-url" yaml:"api-base-url"`
	LogLevel              LogLevel      `mapstructure:"log-level" yaml:"log-level"`
	Endpoints             api.Endpoints `yaml:"endpoints"`
	Storage               Storage
	Filters               []Filter
	TokenSecret           string `mapstructure:"token-secret" yaml:"token-secret"`
	FallbackStatuses      []int  `mapstructure:"fallback-statuses" yaml:"fallback-statuses"`
	RequestTimeoutSeconds int    `mapstructure:"request-timeout-seconds" yaml:"request-timeout-seconds"`
	MessagesFile          string `mapstructure:"messages-file" yaml:"messages-file"`
}
