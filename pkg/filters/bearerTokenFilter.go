package filters

import (
	"github.com/Alcereo/fitlife/pkg/common"
	log "github.com/sirupsen/logrus"
	"net/http"
)

// BearerTokenFilter attaches the session token to every outgoing request.
type BearerTokenFilter struct {
	next   http.RoundTripper
	tokens common.TokenSource
	Name   string
}

func NewBearerTokenFilter(name string, tokens common.TokenSource) *BearerTokenFilter {
	return &BearerTokenFilter{
		tokens: tokens,
		Name:   name,
	}
}

func (filter *BearerTokenFilter) SetNext(next http.RoundTripper) {
	filter.next = next
}

func (filter *BearerTokenFilter) RoundTrip(request *http.Request) (*http.Response, error) {
	token, found := filter.tokens.Token()
	if found && token != "" {
		// RoundTrippers must not modify the caller's request
		request = request.Clone(request.Context())
		request.Header.Set("Authorization", "Bearer "+token)
	} else {
		log.WithField("filterName", filter.Name).
			Debugf("No token for request: %v %v", request.Method, request.URL.Path)
	}
	return nextOrDefault(filter.next).RoundTrip(request)
}
