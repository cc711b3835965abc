// Package crawler drives the identifier-by-identifier fetch pipeline:
// bind a request from the template, issue it over the shared transport,
// classify the outcome, extract the declared fields.
package crawler

import "strings"

// Placeholder marks where the identifier lands in a template URL.
const Placeholder = "{id}"

// Template binds identifiers to concrete requests. Headers are static and
// shared read-only across every bound request.
type Template struct {
	URL     string
	Headers map[string]string
}

// Request is one concrete, ready-to-issue request.
type Request struct {
	URL     string
	Headers map[string]string
}

// Bind substitutes the identifier into the URL pattern. It is pure and
// never fails; identifier content is not validated.
func (t Template) Bind(identifier string) Request {
	return Request{
		URL:     strings.ReplaceAll(t.URL, Placeholder, identifier),
		Headers: t.Headers,
	}
}
