package social

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// ProviderError is a failed call to an identity provider. Status is the
// HTTP status of the provider response, Code and Description are read
// from its error body when there is one.
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
	Raw         map[string]any
}

func (e *ProviderError) Error() string {
	var b strings.Builder

	if e.Provider == "" {
		b.WriteString("provider")
	} else {
		b.WriteString(e.Provider)
	}
	if e.Operation != "" {
		b.WriteString(" " + e.Operation)
	}
	b.WriteString(" failed")

	switch {
	case e.Description != "":
		b.WriteString(": " + e.Description)
	case e.Code != "":
		b.WriteString(": " + e.Code)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}

	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Metadata returns the non empty fields, keyed for logs.
func (e *ProviderError) Metadata() map[string]any {
	meta := map[string]any{}
	set := func(key string, value any, ok bool) {
		if ok {
			meta[key] = value
		}
	}

	set("provider", e.Provider, e.Provider != "")
	set("operation", e.Operation, e.Operation != "")
	set("status", e.Status, e.Status != 0)
	set("code", e.Code, e.Code != "")
	set("description", e.Description, e.Description != "")
	set("raw", e.Raw, len(e.Raw) > 0)

	return meta
}

// providerFailure returns a copy of sentinel carrying err as its source.
func providerFailure(sentinel *goerrors.Error, provider, operation string, err error) error {
	meta := map[string]any{
		"provider":  provider,
		"operation": operation,
	}

	var perr *ProviderError
	switch {
	case errors.As(err, &perr):
		for k, v := range perr.Metadata() {
			meta[k] = v
		}
	case err != nil:
		meta["error"] = err.Error()
	}

	out := sentinel.Clone()
	out.Source = err
	return out.WithMetadata(meta)
}
