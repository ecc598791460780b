package common

import "net/http"

type LocalStoragePort interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Remove(key string) error
	Keys() ([]string, error)
}

type TokenSource interface {
	Token() (string, bool)
}

type ChainedTransport interface {
	RoundTrip(request *http.Request) (*http.Response, error)
	SetNext(next http.RoundTripper)
}
