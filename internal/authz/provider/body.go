package provider

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxBodyBytes is the default cap on a body parsed for context.
const DefaultMaxBodyBytes int64 = 1 << 20

// BodyProvider exposes the fields of a JSON object request body.
type BodyProvider struct {
	base
	maxBytes int64
}

// NewBodyProvider creates a body provider. A non-positive maxBytes means
// DefaultMaxBodyBytes.
func NewBodyProvider(maxBytes int64, opts ...Option) *BodyProvider {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &BodyProvider{
		base:     newBase(TypeBody, opts),
		maxBytes: maxBytes,
	}
}

// Extract parses the request body. The body is always left readable with
// the exact bytes the client sent.
func (p *BodyProvider) Extract(r *http.Request) ContextData {
	data := ContextData{}

	if !carriesBody(r.Method) || r.Body == nil || r.Body == http.NoBody {
		return data
	}
	if !isJSONContent(r.Header.Get("Content-Type")) {
		return data
	}

	orig := r.Body
	buf, err := io.ReadAll(io.LimitReader(orig, p.maxBytes+1))
	if err != nil {
		r.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(buf), orig), closer: orig}
		p.fail(r, "read", err)
		return data
	}

	if int64(len(buf)) > p.maxBytes {
		r.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(buf), orig), closer: orig}
		p.fail(r, "too_large", nil)
		return data
	}

	r.Body = &replayBody{Reader: bytes.NewReader(buf), closer: orig}
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}

	if len(bytes.TrimSpace(buf)) == 0 {
		return data
	}

	doc, err := decodeJSON(buf)
	if err != nil {
		p.fail(r, "malformed", err)
		return data
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		p.fail(r, "not_object", errors.New("body is not a JSON object"))
		return data
	}
	for k, v := range obj {
		data[k] = v
	}
	return data
}

// decodeJSON decodes exactly one JSON value. Numbers stay json.Number so
// integers beyond 2^53 reach the engine unchanged.
func decodeJSON(buf []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return doc, nil
}

// replayBody serves buffered bytes while closing the original body.
type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}

func carriesBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// isJSONContent accepts an absent content type, application/json and any
// +json media type.
func isJSONContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
