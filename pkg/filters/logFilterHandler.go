package filters

import (
	"bytes"
	"github.com/Alcereo/fitlife/pkg/common"
	log "github.com/sirupsen/logrus"
	"net/http"
	templ "text/template"
)

type LogFilter struct {
	next     http.RoundTripper
	template *templ.Template
	Name     string
}

func (filter *LogFilter) SetNext(next http.RoundTripper) {
	filter.next = next
}

func (filter *LogFilter) RoundTrip(request *http.Request) (*http.Response, error) {
	data := struct {
		Request *http.Request
		Filter  *LogFilter
	}{
		request,
		filter,
	}
	var tpl bytes.Buffer
	err := filter.template.Execute(&tpl, data)
	if err != nil {
		log.Warnf("Log filter error: %v. Template error: %v", filter.Name, err)
	}

	log.Info(tpl.String())
	return nextOrDefault(filter.next).RoundTrip(request)
}

// Factory

func CreateLogFilter(name string, template string) *LogFilter {
	parse, err := templ.New(name).Parse(template)
	if err != nil {
		log.Warnf("Log filter templ error: %v. Skip filter", err)
		return nil
	}
	return &LogFilter{
		Name:     name,
		template: parse,
	}
}

func nextOrDefault(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		log.Trace("Next transport is empty. Using default transport")
		return http.DefaultTransport
	}
	return next
}

var _ common.ChainedTransport = (*LogFilter)(nil)
