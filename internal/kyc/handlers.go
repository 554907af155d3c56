package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
)

// Handler executes one verification flow against the provider.
type Handler interface {
	Execute(ctx context.Context, params Params) (json.RawMessage, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, params Params) (json.RawMessage, error)

func (f HandlerFunc) Execute(ctx context.Context, params Params) (json.RawMessage, error) {
	return f(ctx, params)
}

// upstream bundles the transport with header construction; every handler calls through it.
type upstream struct {
	provider *Provider
	headers  *HeaderBuilder
}

// call issues one provider request. A non-JSON body becomes the synthesized
// invalid-JSON payload for flow instead of an error.
func (u *upstream) call(ctx context.Context, flow, method, path string, query url.Values, headers http.Header) (json.RawMessage, error) {
	raw, err := u.provider.Call(ctx, method, path, query, headers)
	if errors.Is(err, ErrInvalidJSON) {
		return invalidJSONPayload(flow), nil
	}
	return raw, err
}

// queryParam maps an inbound parameter onto the provider's query parameter name.
type queryParam struct {
	from string
	to   string
}

func same(names ...string) []queryParam {
	out := make([]queryParam, 0, len(names))
	for _, n := range names {
		out = append(out, queryParam{from: n, to: n})
	}
	return out
}

func buildQuery(params Params, mapping []queryParam) url.Values {
	q := url.Values{}
	for _, m := range mapping {
		q.Set(m.to, params[m.from])
	}
	return q
}

// simpleGet is a single bearer-authenticated GET.
type simpleGet struct {
	up    *upstream
	flow  string
	path  string
	query []queryParam
}

func (h *simpleGet) Execute(ctx context.Context, params Params) (json.RawMessage, error) {
	headers, err := h.up.headers.Bearer(ctx)
	if err != nil {
		return nil, err
	}
	return h.up.call(ctx, h.flow, http.MethodGet, h.path, buildQuery(params, h.query), headers)
}

// firstObject decodes payload as an object, or as the first element of an array.
func firstObject(payload json.RawMessage) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		return obj
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(payload, &arr); err == nil && len(arr) > 0 {
		if err := json.Unmarshal(arr[0], &obj); err == nil {
			return obj
		}
	}
	return nil
}

// scalarString renders a JSON scalar as text; strings are unquoted.
// null, empty strings and non-scalars yield "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	switch raw[0] {
	case 'n', '{', '[':
		return ""
	}
	return string(raw)
}
