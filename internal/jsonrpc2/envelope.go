// Package jsonrpc2 implements the JSON-RPC 2.0 envelope: parsing single
// and batch requests, and building single and batch responses. It knows
// nothing about A2A methods — method dispatch lives in
// internal/handler — only about request/response shape (spec §4.1, §6).
package jsonrpc2

import (
	"encoding/json"
	"errors"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

// Request is a parsed JSON-RPC 2.0 request envelope.
type Request struct {
	ID     any // string | float64 | nil (absent or null => notification)
	Method string
	Params json.RawMessage
}

// IsNotification reports whether r must never receive a response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response is a JSON-RPC 2.0 response envelope, ready to marshal.
type Response struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      any                `json:"id"`
	Result  any                `json:"result,omitempty"`
	Error   *a2a.JSONRPCError  `json:"error,omitempty"`
}

// rawEnvelope is the shape used to sniff a request before fully decoding
// it, so a malformed element of a batch can still report diagnostics.
type rawEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Parse decodes body into either a single Request or a batch (non-empty
// slice of Requests). It never returns both nil and a nil error.
//
// A malformed envelope (bad JSON, wrong jsonrpc version, missing/non-
// string method, a params value that is neither object nor array) is
// reported as a single *a2a.JSONRPCError with code InvalidRequest (for
// shape problems) or ParseError (for JSON syntax problems); the caller is
// expected to build a response with a null id per spec §4.1.
//
// For a batch body, individual malformed elements do not fail the whole
// parse: ParseBatch below handles that element-wise case instead.
func Parse(body []byte) (*Request, []Request, *a2a.JSONRPCError) {
	trimmed := skipWhitespace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		reqs, err := ParseBatch(body)
		if err != nil {
			return nil, nil, err
		}
		return nil, reqs, nil
	}

	req, err := parseOne(body)
	if err != nil {
		return nil, nil, err
	}
	return req, nil, nil
}

// ParseBatch decodes a JSON array of envelopes. An empty array is
// InvalidRequest. Individual malformed elements do not fail the call:
// each is returned as a sentinel Request in its slot, and ElementError
// recovers its error.
func ParseBatch(body []byte) ([]Request, *a2a.JSONRPCError) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, a2a.NewError(a2a.CodeParseError, err.Error())
	}
	if len(raws) == 0 {
		return nil, a2a.NewError(a2a.CodeInvalidRequest, "batch request cannot be empty")
	}

	reqs := make([]Request, len(raws))
	for i, raw := range raws {
		req, err := parseOne(raw)
		if err != nil {
			// Element-wise failures are surfaced to the caller via a
			// sentinel Request carrying the error in Method="" so the
			// dispatcher can build an InvalidRequest response in the
			// corresponding slot (spec: "elements that fail individually
			// yield InvalidRequest error responses in the corresponding
			// slot").
			reqs[i] = Request{ID: nil, Method: "", Params: errorSentinel(err)}
			continue
		}
		reqs[i] = *req
	}
	return reqs, nil
}

// ElementError extracts the sentinel error stashed by ParseBatch for a
// request whose Method is empty, or nil if req parsed cleanly.
func ElementError(req Request) *a2a.JSONRPCError {
	if req.Method != "" {
		return nil
	}
	var sentinel sentinelPayload
	if err := json.Unmarshal(req.Params, &sentinel); err != nil || !sentinel.IsSentinel {
		return nil
	}
	return &a2a.JSONRPCError{Code: sentinel.Code, Message: sentinel.Message, Data: sentinel.Data}
}

type sentinelPayload struct {
	IsSentinel bool   `json:"__sentinel"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

func errorSentinel(err *a2a.JSONRPCError) json.RawMessage {
	b, _ := json.Marshal(sentinelPayload{IsSentinel: true, Code: err.Code, Message: err.Message, Data: err.Data})
	return b
}

func parseOne(body []byte) (*Request, *a2a.JSONRPCError) {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, a2a.NewError(a2a.CodeParseError, err.Error())
		}
		return nil, a2a.NewError(a2a.CodeInvalidRequest, err.Error())
	}
	if env.JSONRPC != "2.0" {
		return nil, a2a.NewError(a2a.CodeInvalidRequest, "jsonrpc must be \"2.0\"")
	}
	if env.Method == "" {
		return nil, a2a.NewError(a2a.CodeInvalidRequest, "method must be a non-empty string")
	}
	if len(env.Params) > 0 {
		t := skipWhitespace(env.Params)
		if len(t) > 0 && t[0] != '{' && t[0] != '[' {
			return nil, a2a.NewError(a2a.CodeInvalidRequest, "params must be an object or array")
		}
	}

	return &Request{ID: env.ID, Method: env.Method, Params: env.Params}, nil
}

func skipWhitespace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\r', '\n':
			i++
			continue
		}
		break
	}
	return b[i:]
}

// BuildResponse builds a single response envelope. Exactly one of result
// or rpcErr must be non-nil/non-zero.
func BuildResponse(id any, result any, rpcErr *a2a.JSONRPCError) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result, Error: rpcErr}
}

// BuildErrorResponse builds an error response for a request that could
// not be parsed at all, per spec §4.1: id is null.
func BuildErrorResponse(rpcErr *a2a.JSONRPCError) *Response {
	return &Response{JSONRPC: "2.0", ID: nil, Error: rpcErr}
}

// BuildBatch returns the JSON array of responses to write, or nil if
// there are none (spec: "an entirely-notification batch returns no HTTP
// body"). It does not filter its input: callers leave notifications out
// by never appending a Response for them, and every Response passed in,
// including a null-id error for a malformed element, is written.
func BuildBatch(responses []*Response) []byte {
	if len(responses) == 0 {
		return nil
	}
	b, err := json.Marshal(responses)
	if err != nil {
		return nil
	}
	return b
}
