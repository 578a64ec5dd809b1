package api

import (
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/listenupapp/readup/internal/errors"
)

// EnvelopeVersion is bumped when the envelope shape changes.
const EnvelopeVersion = 1

// Envelope is the JSON shape of every API response. Clients switch on
// Success and read Data or the error fields.
type Envelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in an Envelope. Register it in
// huma.Config.Transformers.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if _, ok := v.(*Envelope); ok {
		return v, nil
	}
	if strings.HasPrefix(status, "2") || strings.HasPrefix(status, "3") {
		return &Envelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}

	env := &Envelope{Version: EnvelopeVersion}
	var (
		apiErr    *APIError
		domainErr *domainerrors.Error
	)
	switch err, _ := v.(error); {
	case errors.As(err, &apiErr):
		env.Error, env.Code, env.Message, env.Details = apiErr.Message, apiErr.Code, apiErr.Message, apiErr.Details
	case errors.As(err, &domainErr):
		api := fromDomain(domainErr)
		env.Error, env.Code, env.Message, env.Details = api.Message, api.Code, api.Message, api.Details
	case err != nil:
		env.Error = err.Error()
	default:
		env.Data = v
	}
	return env, nil
}
