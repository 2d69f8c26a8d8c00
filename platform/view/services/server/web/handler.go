/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/hyperledger-labs/finality-orchestrator/pkg/utils/errors"
	"gopkg.in/yaml.v2"
)

const (
	apiVersion = "/v1"

	jsonContentType = "application/json"
	yamlContentType = "application/yaml"
)

// ResponseErr is the body of every non 2xx answer.
type ResponseErr struct {
	Reason string `json:"reason" yaml:"reason"`
}

type HttpHandler struct {
	r      *mux.Router
	Logger logger
}

type logger interface {
	Debugf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type ReqContext struct {
	Req   *http.Request
	Vars  map[string]string
	Query interface{}
}

type RequestHandler interface {
	// HandleRequest dispatches the request in the backend by parsing the given request context
	// and returning a status code and a response back to the client.
	HandleRequest(*ReqContext) (response interface{}, statusCode int)

	// ParsePayload parses the payload to handler specific form or returns an error
	ParsePayload([]byte) (interface{}, error)
}

func NewHttpHandler(l logger) *HttpHandler {
	return &HttpHandler{r: mux.NewRouter(), Logger: l}
}

func (h *HttpHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func (h *HttpHandler) RegisterURI(uri string, method string, rh RequestHandler) {
	f := func(backToClient http.ResponseWriter, req *http.Request) {
		h.handle(backToClient, req, rh)
	}

	h.r.HandleFunc(apiVersion+uri, f).Methods(method)
}

// RegisterStream registers a handler that takes over the connection, such as a web socket.
func (h *HttpHandler) RegisterStream(uri string, handler http.Handler) {
	h.r.Handle(apiVersion+uri, handler).Methods(http.MethodGet)
}

func (h *HttpHandler) handle(w http.ResponseWriter, req *http.Request, rh RequestHandler) {
	contentType, err := negotiateContentType(req)
	if err != nil {
		h.sendErr(w, jsonContentType, http.StatusNotAcceptable, "bad content type", err)
		return
	}

	payload, err := io.ReadAll(req.Body)
	if err != nil {
		h.sendErr(w, contentType, http.StatusBadRequest, "failed reading request", err)
		return
	}
	query, err := rh.ParsePayload(payload)
	if err != nil {
		h.sendErr(w, contentType, http.StatusBadRequest, "failed parsing request", err)
		return
	}

	res, statusCode := rh.HandleRequest(&ReqContext{
		Query: query,
		Req:   req,
		Vars:  mux.Vars(req),
	})
	if statusCode/100 != 2 {
		reason := "request failed"
		if re, ok := res.(*ResponseErr); ok {
			reason = re.Reason
		}
		h.sendErr(w, contentType, statusCode, reason, nil)
		return
	}

	raw, err := encode(contentType, res)
	if err != nil {
		h.sendErr(w, contentType, http.StatusInternalServerError, "failed encoding response", err)
		return
	}
	h.write(w, contentType, statusCode, raw)
}

func (h *HttpHandler) sendErr(w http.ResponseWriter, contentType string, code int, reason string, cause error) {
	if cause != nil {
		h.Logger.Warnf("failed processing request: %s", cause)
	}
	raw, err := encode(contentType, &ResponseErr{Reason: reason})
	if err != nil {
		h.Logger.Warnf("failed encoding error response: %s", err)
		return
	}
	h.write(w, contentType, code, raw)
}

func (h *HttpHandler) write(w http.ResponseWriter, contentType string, code int, raw []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	if _, err := w.Write(raw); err != nil {
		h.Logger.Warnf("failed writing response: %s", err)
	}
}

func encode(contentType string, v interface{}) ([]byte, error) {
	if contentType == yamlContentType {
		return yaml.Marshal(v)
	}
	return json.Marshal(v)
}

// negotiateContentType picks JSON unless the client only accepts YAML.
func negotiateContentType(req *http.Request) (string, error) {
	accept := req.Header.Get("Accept")
	if len(accept) == 0 {
		return jsonContentType, nil
	}
	yamlAccepted := false
	for _, opt := range strings.Split(accept, ",") {
		mediaType := strings.TrimSpace(strings.SplitN(opt, ";", 2)[0])
		switch mediaType {
		case jsonContentType, "application/*", "*/*":
			return jsonContentType, nil
		case yamlContentType, "text/yaml", "application/x-yaml":
			yamlAccepted = true
		}
	}
	if yamlAccepted {
		return yamlContentType, nil
	}
	return "", errors.Errorf("cannot serve [%s], only %s and %s", accept, jsonContentType, yamlContentType)
}
