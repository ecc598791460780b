package context

import (
	"fmt"
	"github.com/Alcereo/fitlife/pkg/api"
	"github.com/Alcereo/fitlife/pkg/auth"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/crypt"
	"github.com/Alcereo/fitlife/pkg/filters"
	"github.com/Alcereo/fitlife/pkg/messages"
	"github.com/Alcereo/fitlife/pkg/plans"
	"github.com/Alcereo/fitlife/pkg/reminder"
	"github.com/Alcereo/fitlife/pkg/storage"
	log "github.com/sirupsen/logrus"
	"io"
	"net/http"
	"time"
)

const defaultRequestTimeout = 15 * time.Second

type context struct {
	config   *ClientConfiguration
	catalog  *messages.Catalog
	storage  common.LocalStoragePort
	sessions *auth.SessionRepository
	client   *api.Client
}

func NewContext(config *ClientConfiguration) *context {
	return &context{
		config: config,
	}
}

func (ctx *context) SetupMessages() {
	if ctx.config.MessagesFile == "" {
		ctx.catalog = messages.NewDefaultCatalog()
		return
	}
	log.Debugf("Loading messages. File: %s", ctx.config.MessagesFile)
	catalog, err := messages.LoadCatalog(ctx.config.MessagesFile)
	if err != nil {
		panic(fmt.Errorf("Messages file error: %v.\n", err))
	}
	ctx.catalog = catalog
}

func (ctx *context) SetupStorage(adapter Storage) {
	switch adapter.Type {
	case GoCache:
		log.Debugf("Adding GoCache local storage")
		ctx.storage = storage.NewGoCacheLocalStorage(
			adapter.ExpirationTimeHours,
			adapter.EvictScheduleTimeHours,
		)
	case Sqlite:
		log.Debugf("Adding Sqlite local storage. Path: %s", adapter.Path)
		sqliteStorage, err := storage.NewSqliteLocalStorage(adapter.Path)
		if err != nil {
			panic(err)
		}
		ctx.storage = sqliteStorage
	default:
		panic(fmt.Errorf("Undefined local storage type: %v.\n", adapter.Type))
	}

	var encryptor *crypt.Encryptor
	if ctx.config.TokenSecret != "" {
		encryptor = crypt.NewEncryptor(ctx.config.TokenSecret)
	}
	ctx.sessions = auth.NewSessionRepository(ctx.storage, encryptor)
}

// SetupClient builds the API client over the configured filter chain.
// Without configured filters the chain is a single bearer token filter.
func (ctx *context) SetupClient() {
	configured := ctx.config.Filters
	if len(configured) == 0 {
		configured = []Filter{{Type: BearerTokenFilter, Name: "bearer"}}
	}

	timeout := time.Duration(ctx.config.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	endpoints := ctx.config.Endpoints
	if endpoints == (api.Endpoints{}) {
		endpoints = api.DefaultEndpoints()
	}

	ctx.client = api.NewClient(
		ctx.config.ApiBaseUrl,
		endpoints,
		ctx.BuildFilterChain(configured, http.DefaultTransport),
		timeout,
		ctx.Messages(),
	)
}

func (ctx *context) BuildFilterChain(filters []Filter, transport http.RoundTripper) http.RoundTripper {
	current := transport

	for i := len(filters) - 1; i >= 0; i-- {
		filter := ctx.BuildFilter(filters[i])

		if filter == nil {
			continue
		}

		filter.SetNext(current)
		current = filter
	}

	return current
}

func (ctx *context) BuildFilter(filter Filter) common.ChainedTransport {
	switch filter.Type {
	case LogFilter:
		log.Debugf("Adding Log filter. Name: %s", filter.Name)
		logFilter := filters.CreateLogFilter(filter.Name, filter.Template)
		if logFilter == nil {
			return nil
		}
		return logFilter
	case BearerTokenFilter:
		log.Debugf("Adding bearer token filter. Name: %s", filter.Name)
		if ctx.sessions == nil {
			panic(fmt.Errorf("Bearer token filter '%v' requires local storage.\n", filter.Name))
		}
		return filters.NewBearerTokenFilter(filter.Name, ctx.sessions)
	default:
		panic(fmt.Errorf("Undefined filter type: %v.\n", filter.Type))
	}
}

func (ctx *context) Messages() *messages.Catalog {
	if ctx.catalog == nil {
		ctx.catalog = messages.NewDefaultCatalog()
	}
	return ctx.catalog
}

func (ctx *context) Storage() common.LocalStoragePort {
	return ctx.storage
}

func (ctx *context) Sessions() *auth.SessionRepository {
	return ctx.sessions
}

func (ctx *context) Client() *api.Client {
	return ctx.client
}

func (ctx *context) BuildAuthService() *auth.AuthService {
	return auth.NewAuthService(
		ctx.client,
		ctx.sessions,
		ctx.Messages(),
		log.WithField("component", "auth"),
	)
}

func (ctx *context) BuildPlanSynchronizer() *plans.PlanSynchronizer {
	return plans.NewPlanSynchronizer(
		ctx.client,
		ctx.sessions,
		ctx.storage,
		ctx.Messages(),
		ctx.config.FallbackStatuses,
		log.WithField("component", "plans"),
	)
}

func (ctx *context) BuildReminder(onFire func(reminder.Notification)) *reminder.Scheduler {
	return reminder.NewScheduler(
		ctx.storage,
		ctx.Messages(),
		onFire,
		log.WithField("component", "reminder"),
	)
}

// Close releases the durable storage, if any.
func (ctx *context) Close() error {
	if closer, ok := ctx.storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
