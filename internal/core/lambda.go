package core

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaHandler adapts the router to API Gateway proxy events so that the
// same middleware chain and handlers serve both deployment modes.
func (s *Server) LambdaHandler() func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		req, err := requestFromEvent(ctx, event)
		if err != nil {
			s.Logger.ErrorContext(ctx, "invalid API Gateway event", "error", err)
			return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
		}

		rw := newLambdaResponseWriter()
		s.Handler().ServeHTTP(rw, req)
		return rw.response(), nil
	}
}

func requestFromEvent(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 body: %w", err)
		}
		body = decoded
	}

	u := url.URL{Path: event.Path}
	q := url.Values{}
	for k, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range event.QueryStringParameters {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, event.HTTPMethod, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range event.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get("X-Request-Id") == "" && event.RequestContext.RequestID != "" {
		req.Header.Set("X-Request-Id", event.RequestContext.RequestID)
	}
	req.RemoteAddr = event.RequestContext.Identity.SourceIP
	return req, nil
}

// lambdaResponseWriter buffers a response for conversion to an API Gateway
// proxy response.
type lambdaResponseWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newLambdaResponseWriter() *lambdaResponseWriter {
	return &lambdaResponseWriter{header: make(http.Header)}
}

func (w *lambdaResponseWriter) Header() http.Header { return w.header }

func (w *lambdaResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *lambdaResponseWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *lambdaResponseWriter) response() events.APIGatewayProxyResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}
	headers := make(map[string]string, len(w.header))
	for k, vs := range w.header {
		headers[k] = strings.Join(vs, ",")
	}
	return events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           headers,
		MultiValueHeaders: map[string][]string(w.header),
		Body:              w.body.String(),
	}
}
