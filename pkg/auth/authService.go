package auth

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/Alcereo/fitlife/pkg/api"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/messages"
	uuid "github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"
	"strings"
	"time"
)

type UserApiPort interface {
	Login(ctx context.Context, request *common.LoginRequest) (*common.LoginResponse, error)
	VerifyOTP(ctx context.Context, request *common.OTPRequest) (*common.LoginResponse, error)
	Register(ctx context.Context, request *common.RegisterRequest) (*common.ApiUser, error)
	CurrentUser(ctx context.Context) (*common.ApiUser, error)
}

type ProfileSource string

const (
	ProfileFromApi   ProfileSource = "api"
	ProfileFromToken ProfileSource = "token"
	ProfileFromCache ProfileSource = "cache"
)

type SessionState struct {
	Authenticated bool
	User          *common.UserProfile
	Source        ProfileSource
}

type LoginResult struct {
	User        *common.UserProfile
	Source      ProfileSource
	RequiresOTP bool
}

type AuthService struct {
	api      UserApiPort
	sessions *SessionRepository
	messages *messages.Catalog
	log      *log.Entry
	validate *validator.Validate
	now      func() time.Time
	newId    func() string
}

func NewAuthService(
	userApi UserApiPort,
	sessions *SessionRepository,
	catalog *messages.Catalog,
	logger *log.Entry,
) *AuthService {
	if logger == nil {
		logger = log.WithField("component", "auth")
	}
	if catalog == nil {
		catalog = messages.NewDefaultCatalog()
	}
	return &AuthService{
		api:      userApi,
		sessions: sessions,
		messages: catalog,
		log:      logger,
		validate: validator.New(),
		now:      time.Now,
		newId: func() string {
			return uuid.NewV4().String()
		},
	}
}

// CheckStatus reconciles the stored token with the profile the API returns
// for it. The API profile wins unless the token names another email.
func (service *AuthService) CheckStatus(ctx context.Context) (*SessionState, error) {
	token, found := service.sessions.Token()
	if !found {
		service.log.Debug("No token stored. User is not authenticated")
		return &SessionState{}, nil
	}

	claims, err := DecodeTokenClaims(token)
	if err != nil {
		service.log.Debugf("Token claims are unavailable: %v", err)
		claims = &TokenClaims{}
	}

	apiUser, err := service.api.CurrentUser(ctx)
	if err == nil {
		if claims.Email != "" && claims.Email != apiUser.Email {
			service.log.WithFields(log.Fields{
				"tokenEmail": claims.Email,
				"apiEmail":   apiUser.Email,
			}).Warn("Token and API profile emails differ. Using token data")
			return service.authenticated(token, service.tokenProfile(claims.Subject, claims.Email), ProfileFromToken)
		}
		return service.authenticated(token, profileFromApiUser(apiUser), ProfileFromApi)
	}

	service.log.WithError(err).Error("Fetching current user error")
	if claims.Email != "" {
		return service.authenticated(token, service.tokenProfile(claims.Subject, claims.Email), ProfileFromToken)
	}
	if cached := service.sessions.CurrentUser(); cached != nil && cached.Email != "" {
		service.log.Debugf("Using cached profile of %v", cached.Email)
		return &SessionState{Authenticated: true, User: cached, Source: ProfileFromCache}, nil
	}

	if _, err := service.sessions.ClearSession(); err != nil {
		return nil, userError(service.messages.Get("session.check_failed"), err)
	}
	return &SessionState{}, nil
}

func (service *AuthService) authenticated(token string, user *common.UserProfile, source ProfileSource) (*SessionState, error) {
	if err := service.sessions.SaveSession(token, user); err != nil {
		return nil, userError(service.messages.Get("session.check_failed"), err)
	}
	return &SessionState{Authenticated: true, User: user, Source: source}, nil
}

func (service *AuthService) Login(ctx context.Context, credentials common.LoginRequest) (*LoginResult, error) {
	logger := service.log.WithField("email", credentials.Email)

	if err := service.validate.Struct(credentials); err != nil {
		return nil, userError(service.messages.Get("login.400"), err)
	}
	if _, err := service.sessions.ClearSession(); err != nil {
		return nil, userError(service.messages.Get("login.default"), err)
	}

	response, err := service.api.Login(ctx, &credentials)
	if err != nil {
		logger.WithError(err).Debug("Login request failed")
		return nil, service.loginError(err)
	}

	if response.Token == "" {
		if response.RequiresOTP {
			logger.Debug("Login requires OTP verification")
			return &LoginResult{RequiresOTP: true}, nil
		}
		message := response.Message
		if message == "" {
			message = service.messages.Get("login.no_token")
		}
		return nil, userError(message, ErrMissingToken)
	}

	if err := service.sessions.SaveSession(response.Token, nil); err != nil {
		return nil, userError(service.messages.Get("login.default"), err)
	}

	claims, err := DecodeTokenClaims(response.Token)
	if err != nil {
		claims = &TokenClaims{}
	}
	if claims.Email != "" && claims.Email != credentials.Email {
		logger.WithField("tokenEmail", claims.Email).Error("Token issued for a different email")
		service.clearQuietly()
		return nil, userError(service.messages.Get("login.token_mismatch"), ErrTokenEmailMismatch)
	}

	apiUser, err := service.api.CurrentUser(ctx)
	if err != nil {
		logger.WithError(err).Warn("Fetching user data after login error. Using token data")
		profile := service.tokenProfile(claims.Subject, credentials.Email)
		if err := service.sessions.SaveSession(response.Token, profile); err != nil {
			return nil, userError(service.messages.Get("login.default"), err)
		}
		service.purgeOtherUsers(profile.Id)
		return &LoginResult{User: profile, Source: ProfileFromToken}, nil
	}

	if apiUser.Email != credentials.Email {
		logger.WithField("apiEmail", apiUser.Email).Error("Server returned data of another user")
		service.clearQuietly()
		message := service.messages.Format("login.account_mismatch", map[string]string{
			"expected": credentials.Email,
			"received": apiUser.Email,
		})
		return nil, userError(message, ErrAccountMismatch)
	}

	profile := profileFromApiUser(apiUser)
	if err := service.sessions.SaveSession(response.Token, profile); err != nil {
		return nil, userError(service.messages.Get("login.default"), err)
	}
	service.purgeOtherUsers(profile.Id)
	logger.WithField("userId", profile.Id).Info("Login successful")
	return &LoginResult{User: profile, Source: ProfileFromApi}, nil
}

func (service *AuthService) loginError(err error) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return userError(service.messages.Get("login.connection"), err)
	}
	switch apiErr.Status {
	case 400, 401, 422, 500:
		return userError(service.messages.ForStatus("login", apiErr.Status), err)
	default:
		if apiErr.Message != "" {
			return userError(apiErr.Message, err)
		}
		return userError(service.messages.Get("login.default"), err)
	}
}

func (service *AuthService) VerifyOTP(ctx context.Context, email string, code string) (*LoginResult, error) {
	request := common.OTPRequest{Email: email, OtpCode: code}
	if err := service.validate.Struct(request); err != nil {
		return nil, userError(service.messages.Get("otp.invalid"), err)
	}

	response, err := service.api.VerifyOTP(ctx, &request)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return nil, userError(apiErr.Message, err)
		}
		return nil, userError(service.messages.Get("otp.default"), err)
	}

	if response.Success && response.Token != "" && response.User != nil {
		if err := service.sessions.SaveSession(response.Token, response.User); err != nil {
			return nil, userError(service.messages.Get("otp.default"), err)
		}
		service.purgeOtherUsers(response.User.Id)
		return &LoginResult{User: response.User, Source: ProfileFromApi}, nil
	}

	message := response.Message
	if message == "" {
		message = service.messages.Get("otp.invalid")
	}
	return nil, userError(message, ErrInvalidOTP)
}

// Register creates the account without signing in.
func (service *AuthService) Register(ctx context.Context, request common.RegisterRequest) (*common.ApiUser, error) {
	if err := service.sessions.RemoveCredentials(); err != nil {
		return nil, userError(service.messages.Get("register.default"), err)
	}
	if err := service.validate.Struct(request); err != nil {
		return nil, userError(service.messages.Get("register.400"), err)
	}

	user, err := service.api.Register(ctx, &request)
	if err != nil {
		service.log.WithError(err).WithField("email", request.Email).Debug("Registration request failed")
		return nil, service.registerError(err)
	}
	if user.Id == "" || user.Email == "" {
		return nil, userError(service.messages.Get("register.invalid_response"), ErrInvalidResponse)
	}
	service.log.WithField("userId", user.Id).Info("Registration successful")
	return user, nil
}

func (service *AuthService) registerError(err error) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		return userError(service.messages.Get("register.connection"), err)
	}
	switch apiErr.Status {
	case 400, 422:
		if apiErr.Message != "" {
			return userError(apiErr.Message, err)
		}
		return userError(service.messages.ForStatus("register", apiErr.Status), err)
	case 409:
		return userError(service.messages.Get("register.409"), err)
	case 500:
		if mentionsEmail(apiErr.Message) || mentionsEmail(apiErr.Data) {
			return userError(service.messages.Get("register.500.email"), err)
		}
		return userError(service.messages.Get("register.500"), err)
	default:
		if apiErr.Message != "" {
			return userError(apiErr.Message, err)
		}
		return userError(service.messages.Get("register.default"), err)
	}
}

func mentionsEmail(value interface{}) bool {
	text, ok := value.(string)
	if !ok {
		bytes, err := json.Marshal(value)
		if err != nil {
			return false
		}
		text = string(bytes)
	}
	return strings.Contains(strings.ToLower(text), "email")
}

// Logout clears the session. Plan caches and the reminder are kept.
func (service *AuthService) Logout() ([]string, error) {
	removed, err := service.sessions.ClearSession()
	if err != nil {
		return removed, userError(service.messages.Get("session.check_failed"), err)
	}
	service.log.Info("Logged out")
	return removed, nil
}

func (service *AuthService) RefreshUserData(ctx context.Context) (*common.UserProfile, error) {
	token, found := service.sessions.Token()
	if !found {
		return nil, userError(service.messages.Get("session.unauthenticated"), ErrNotAuthenticated)
	}
	apiUser, err := service.api.CurrentUser(ctx)
	if err != nil {
		service.log.WithError(err).Error("Refreshing user data error")
		return nil, err
	}
	profile := profileFromApiUser(apiUser)
	if err := service.sessions.SaveSession(token, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// purgeOtherUsers runs after a login. A failure leaves stale caches behind
// and does not fail the login.
func (service *AuthService) purgeOtherUsers(userId string) {
	if _, err := service.sessions.PurgeOtherUsers(userId); err != nil {
		service.log.WithError(err).Warn("Removing plans of other users error")
	}
}

func (service *AuthService) clearQuietly() {
	if _, err := service.sessions.ClearSession(); err != nil {
		service.log.WithError(err).Error("Clearing session error")
	}
}

func (service *AuthService) tokenProfile(subject string, email string) *common.UserProfile {
	id := subject
	if id == "" {
		id = common.TempIdPrefix + service.newId()
	}
	localPart := strings.SplitN(email, "@", 2)[0]
	now := service.now().UTC().Format(time.RFC3339)
	return &common.UserProfile{
		Id:        id,
		Email:     email,
		Name:      localPart,
		FirstName: localPart,
		LastName:  "",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func profileFromApiUser(user *common.ApiUser) *common.UserProfile {
	return &common.UserProfile{
		Id:        user.Id,
		Email:     user.Email,
		Name:      strings.TrimSpace(user.FirstName + " " + user.LastName),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		Weight:    user.Weight,
		Height:    user.Height,
		Age:       user.Age,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
