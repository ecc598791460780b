package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/Alcereo/fitlife/pkg/messages"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

type Endpoints struct {
	Login         string `mapstructure:"login" yaml:"login"`
	VerifyOtp     string `mapstructure:"verify-otp" yaml:"verify-otp"`
	Register      string `mapstructure:"register" yaml:"register"`
	Refresh       string `mapstructure:"refresh" yaml:"refresh"`
	CurrentUser   string `mapstructure:"current-user" yaml:"current-user"`
	ExercisePlans string `mapstructure:"exercise-plans" yaml:"exercise-plans"`
	Exercises     string `mapstructure:"exercises" yaml:"exercises"`
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:         "/api/User/login",
		VerifyOtp:     "/api/User/verify-otp",
		Register:      "/api/User/register",
		Refresh:       "/api/User/refresh",
		CurrentUser:   "/api/User",
		ExercisePlans: "/api/ExercisePlan",
		Exercises:     "/api/Exercise",
	}
}

type Client struct {
	baseUrl    string
	endpoints  Endpoints
	httpClient *http.Client
	messages   *messages.Catalog
}

// NewClient builds a FitLife API client. Authentication is the transport's
// job: pass a filter chain ending in a BearerTokenFilter.
func NewClient(
	baseUrl string,
	endpoints Endpoints,
	transport http.RoundTripper,
	timeout time.Duration,
	catalog *messages.Catalog,
) *Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(err.Error())
	}
	if catalog == nil {
		catalog = messages.NewDefaultCatalog()
	}
	return &Client{
		baseUrl:   strings.TrimRight(baseUrl, "/"),
		endpoints: endpoints,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			Jar:       jar,
		},
		messages: catalog,
	}
}

func (client *Client) BaseUrl() string {
	return client.baseUrl
}

func (client *Client) perform(ctx context.Context, method string, endpoint string, body interface{}, result interface{}) error {
	const stage = "Building request error."

	var payload io.Reader
	if body != nil {
		bytesValue, err := json.Marshal(body)
		if err != nil {
			return newErr(stage, err)
		}
		payload = bytes.NewReader(bytesValue)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseUrl+endpoint, payload)
	if err != nil {
		return newErr(stage, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return &APIError{
			Message: client.messages.Get("connection.error"),
			Status:  0,
			cause:   err,
		}
	}
	defer response.Body.Close()

	return client.handleResponse(response, result)
}

func (client *Client) handleResponse(response *http.Response, result interface{}) error {
	isJSON := strings.Contains(response.Header.Get("Content-Type"), "application/json")

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return client.unreadable(response.StatusCode, err)
	}

	var data interface{}
	if isJSON && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return client.unreadable(response.StatusCode, err)
		}
	} else if !isJSON {
		data = string(raw)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		log.WithFields(log.Fields{
			"status": response.StatusCode,
			"url":    response.Request.URL.String(),
			"isJSON": isJSON,
		}).Debugf("Error response details: %v", data)

		return &APIError{
			Message: client.errorMessage(data),
			Status:  response.StatusCode,
			Data:    data,
		}
	}

	if result != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return client.unreadable(response.StatusCode, err)
		}
	}
	return nil
}

func (client *Client) errorMessage(data interface{}) string {
	switch value := data.(type) {
	case map[string]interface{}:
		for _, field := range []string{"message", "error", "title"} {
			if text, ok := value[field].(string); ok && text != "" {
				return text
			}
		}
	case string:
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return client.messages.Get("request.default")
}

func (client *Client) unreadable(status int, cause error) error {
	return &APIError{
		Message: client.messages.Get("response.unreadable"),
		Status:  status,
		cause:   cause,
	}
}

func newErr(stage string, reason interface{}) error {
	if err, ok := reason.(error); ok {
		return fmt.Errorf("%v Reason: %w", stage, err)
	}
	return fmt.Errorf("%v Reason: %v", stage, reason)
}
