package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
)

// CreateServiceStub serves canned responses. A request that does not match
// the expected method, headers or body is answered with an explanation and
// a 4xx/5xx status.
func CreateServiceStub(mocks []RequestMock) *httptest.Server {
	mux := http.NewServeMux()

	for _, mReg := range mocks {
		pattern := mReg.Request.Url
		expectedMethod := mReg.Request.Method
		expectedHeaders := mReg.Request.Headers
		expectedBodyChecks := mReg.Request.Body
		responseStatus := mReg.Response.Status
		responseHeaders := mReg.Response.Headers
		responseBody := mReg.Response.Body

		mux.HandleFunc(pattern, func(writer http.ResponseWriter, request *http.Request) {
			if request.Method != expectedMethod {
				writer.WriteHeader(405)
				_, _ = fmt.Fprint(writer, "Request Method '"+expectedMethod+"' expected. Actual: '"+request.Method+"'.")
				return
			}

			for _, check := range expectedHeaders {
				header := request.Header.Get(check.Name)
				matched, err := regexp.MatchString(check.Regexp, header)
				if err != nil {
					writer.WriteHeader(500)
					_, _ = fmt.Fprint(writer, "Parsing header regexp error: "+check.Regexp+". Detail: "+err.Error())
					return
				}
				if !matched {
					writer.WriteHeader(400)
					_, _ = fmt.Fprint(writer, "Header not matched regexp. Header: "+header+". Regexp: "+check.Regexp)
					return
				}
			}

			bytes, err := io.ReadAll(request.Body)
			if err != nil {
				writer.WriteHeader(500)
				_, _ = fmt.Fprint(writer, "Reading body error: "+err.Error())
				return
			}

			for _, check := range expectedBodyChecks {
				err := check.checkBody(bytes, request)
				if err != nil {
					writer.WriteHeader(400)
					_, _ = fmt.Fprint(writer, "Body not match: "+err.Error())
					return
				}
			}

			bodyBytes, err := responseBody.getString()
			if err != nil {
				writer.WriteHeader(500)
				_, _ = fmt.Fprint(writer, "Writing body error: "+err.Error())
				return
			}
			writer.Header().Set("Content-Type", "application/json; charset=utf-8")
			for header, value := range responseHeaders {
				writer.Header().Set(header, value)
			}
			writer.WriteHeader(responseStatus)
			_, _ = writer.Write(bodyBytes)
		})
	}

	return httptest.NewServer(mux)
}

type RequestMock struct {
	Request  Request
	Response Response
}

type Header struct {
	Name   string
	Regexp string
}

// JsonPropsBody checks top level string properties of a JSON body.
type JsonPropsBody struct {
	Props map[string]string
}

func (check JsonPropsBody) checkBody(body []byte, req *http.Request) error {
	values := make(map[string]interface{})
	if err := json.Unmarshal(body, &values); err != nil {
		return fmt.Errorf("parsing json body error. %v", err.Error())
	}

	for key, value := range check.Props {
		if fmt.Sprint(values[key]) != value {
			return fmt.Errorf("property %v=%v not match with expected: %v", key, values[key], value)
		}
	}

	return nil
}

type Request struct {
	Method  string
	Url     string
	Headers []Header
	Body    []BodyCheck
}

type BodyCheck interface {
	checkBody([]byte, *http.Request) error
}

type StringedBody interface {
	getString() ([]byte, error)
}

type Response struct {
	Status  int
	Headers map[string]string
	Body    StringedBody
}

type JsonMap map[string]interface{}

func (s JsonMap) getString() ([]byte, error) {
	return json.Marshal(s)
}

type JsonList []JsonMap

func (s JsonList) getString() ([]byte, error) {
	return json.Marshal(s)
}
