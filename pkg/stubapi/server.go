package stubapi

import (
	"context"
	"encoding/json"
	"github.com/Alcereo/fitlife/pkg/api"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/serializers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Operation string

const (
	Login          Operation = "login"
	VerifyOtp      Operation = "verify-otp"
	Register       Operation = "register"
	Refresh        Operation = "refresh"
	CurrentUser    Operation = "current-user"
	ListPlans      Operation = "list-plans"
	CreatePlan     Operation = "create-plan"
	UpdatePlan     Operation = "update-plan"
	DeletePlan     Operation = "delete-plan"
	ListExercises  Operation = "list-exercises"
	CreateExercise Operation = "create-exercise"
	UpdateExercise Operation = "update-exercise"
	DeleteExercise Operation = "delete-exercise"
)

type TokenSerializer interface {
	Serialize(user *common.UserProfile) (string, time.Time, error)
	Verify(token string) (string, error)
}

type Options struct {
	Secret         string
	TokenTTL       time.Duration
	RequireOTP     bool
	OTPCode        string
	AllowedOrigins []string
	Endpoints      api.Endpoints
}

func DefaultOptions() Options {
	return Options{
		Secret:         "fitlife-stub-secret",
		TokenTTL:       24 * time.Hour,
		OTPCode:        "123456",
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		Endpoints:      api.DefaultEndpoints(),
	}
}

type storedUser struct {
	user     common.ApiUser
	password string
}

// Server is an in-memory FitLife backend for manual runs and tests.
type Server struct {
	mutex      sync.Mutex
	options    Options
	tokens     TokenSerializer
	router     *mux.Router
	log        *log.Entry
	users      map[string]*storedUser
	plans      []*common.ExercisePlan
	faults     map[Operation]int
	override   string
	pendingOtp map[string]bool
}

func NewServer(options Options) *Server {
	if options.Secret == "" {
		options.Secret = DefaultOptions().Secret
	}
	if options.TokenTTL == 0 {
		options.TokenTTL = DefaultOptions().TokenTTL
	}
	if options.Endpoints == (api.Endpoints{}) {
		options.Endpoints = api.DefaultEndpoints()
	}
	server := &Server{
		options:    options,
		tokens:     serializers.NewJwtTokenSerializer(options.Secret, options.TokenTTL),
		log:        log.WithField("component", "stubapi"),
		users:      make(map[string]*storedUser),
		faults:     make(map[Operation]int),
		pendingOtp: make(map[string]bool),
	}
	server.router = server.buildRouter()
	return server
}

func (server *Server) buildRouter() *mux.Router {
	endpoints := server.options.Endpoints
	router := mux.NewRouter()
	router.Use(server.logRequests)

	router.HandleFunc(endpoints.Login, server.operation(Login, false, server.handleLogin)).Methods("POST")
	router.HandleFunc(endpoints.VerifyOtp, server.operation(VerifyOtp, false, server.handleVerifyOtp)).Methods("POST")
	router.HandleFunc(endpoints.Register, server.operation(Register, false, server.handleRegister)).Methods("POST")
	router.HandleFunc(endpoints.Refresh, server.operation(Refresh, true, server.handleRefresh)).Methods("POST")
	router.HandleFunc(endpoints.CurrentUser, server.operation(CurrentUser, true, server.handleCurrentUser)).Methods("GET")

	router.HandleFunc(endpoints.ExercisePlans, server.operation(ListPlans, true, server.handleListPlans)).Methods("GET")
	router.HandleFunc(endpoints.ExercisePlans, server.operation(CreatePlan, true, server.handleCreatePlan)).Methods("POST")
	router.HandleFunc(endpoints.ExercisePlans+"/{id}", server.operation(UpdatePlan, true, server.handleUpdatePlan)).Methods("PUT")
	router.HandleFunc(endpoints.ExercisePlans+"/{id}", server.operation(DeletePlan, true, server.handleDeletePlan)).Methods("DELETE")

	router.HandleFunc(endpoints.Exercises, server.operation(ListExercises, true, server.handleListExercises)).Methods("GET")
	router.HandleFunc(endpoints.Exercises, server.operation(CreateExercise, true, server.handleCreateExercise)).Methods("POST")
	router.HandleFunc(endpoints.Exercises+"/{id}", server.operation(UpdateExercise, true, server.handleUpdateExercise)).Methods("PUT")
	router.HandleFunc(endpoints.Exercises+"/{id}", server.operation(DeleteExercise, true, server.handleDeleteExercise)).Methods("DELETE")
	return router
}

// Handler returns the router wrapped with CORS for the browser dev origins.
func (server *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   server.options.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(server.router)
}

// Fault injection

// SetFault makes operation answer with status until cleared. Status 0 clears it.
func (server *Server) SetFault(operation Operation, status int) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	if status == 0 {
		delete(server.faults, operation)
		return
	}
	server.faults[operation] = status
}

func (server *Server) ClearFaults() {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.faults = make(map[Operation]int)
}

// SetProfileOverride makes the current user endpoint answer with the account
// registered under email. Empty email clears the override.
func (server *Server) SetProfileOverride(email string) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.override = email
}

func (server *Server) SetRequireOTP(required bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.options.RequireOTP = required
}

// Reset drops every user, plan and fault.
func (server *Server) Reset() {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.users = make(map[string]*storedUser)
	server.plans = nil
	server.faults = make(map[Operation]int)
	server.override = ""
	server.pendingOtp = make(map[string]bool)
}

// Middleware

type contextKey string

const userIdContextKey contextKey = "userId"

func (server *Server) operation(operation Operation, protected bool, handler http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		server.mutex.Lock()
		status, faulty := server.faults[operation]
		server.mutex.Unlock()
		if faulty {
			server.log.WithField("operation", operation).Debugf("Injected fault: %v", status)
			writeMessage(writer, status, http.StatusText(status))
			return
		}

		if protected {
			userId, err := server.authenticate(request)
			if err != nil {
				server.log.WithField("operation", operation).Debugf("Unauthorized request: %v", err)
				writeMessage(writer, http.StatusUnauthorized, "Unauthorized")
				return
			}
			request = request.WithContext(context.WithValue(request.Context(), userIdContextKey, userId))
		}
		handler(writer, request)
	}
}

func (server *Server) authenticate(request *http.Request) (string, error) {
	header := request.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errMissingBearer
	}
	userId, err := server.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return "", err
	}
	server.mutex.Lock()
	defer server.mutex.Unlock()
	if _, found := server.users[userId]; !found {
		return "", errUnknownUser
	}
	return userId, nil
}

func (server *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.log.WithFields(log.Fields{
			"method": request.Method,
			"path":   request.URL.Path,
		}).Debug("Stub request")
		next.ServeHTTP(writer, request)
	})
}

func callerId(request *http.Request) string {
	userId, _ := request.Context().Value(userIdContextKey).(string)
	return userId
}

func writeJSON(writer http.ResponseWriter, status int, body interface{}) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(writer).Encode(body); err != nil {
		log.Warnf("Writing stub response error: %v", err)
	}
}

func readJSON(request *http.Request, target interface{}) error {
	defer request.Body.Close()
	return json.NewDecoder(request.Body).Decode(target)
}
