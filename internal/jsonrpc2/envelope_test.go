package jsonrpc2

import (
	"encoding/json"
	"testing"

	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

func TestParseSingleRequest(t *testing.T) {
	body := []byte(`{"jsonrpc":"2.0","method":"tasks/get","params":{"id":"t1"},"id":1}`)
	req, batch, rpcErr := Parse(body)
	if rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if batch != nil {
		t.Fatalf("expected single request, got batch")
	}
	if req.Method != "tasks/get" {
		t.Fatalf("method = %q", req.Method)
	}
	if req.IsNotification() {
		t.Fatalf("expected non-notification")
	}
}

func TestParseNotification(t *testing.T) {
	body := []byte(`{"jsonrpc":"2.0","method":"tasks/get","params":{"id":"t1"}}`)
	req, _, rpcErr := Parse(body)
	if rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if !req.IsNotification() {
		t.Fatalf("expected notification")
	}
}

func TestParseInvalidJSON(t *testing.T) {
	_, _, rpcErr := Parse([]byte(`{invalid`))
	if rpcErr == nil || rpcErr.Code != a2a.CodeParseError {
		t.Fatalf("expected parse error, got %v", rpcErr)
	}
}

func TestParseWrongVersion(t *testing.T) {
	_, _, rpcErr := Parse([]byte(`{"jsonrpc":"1.0","method":"x","id":1}`))
	if rpcErr == nil || rpcErr.Code != a2a.CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %v", rpcErr)
	}
}

func TestParseEmptyBatch(t *testing.T) {
	_, _, rpcErr := Parse([]byte(`[]`))
	if rpcErr == nil || rpcErr.Code != a2a.CodeInvalidRequest {
		t.Fatalf("expected invalid request for empty batch, got %v", rpcErr)
	}
}

func TestParseBatchElementWise(t *testing.T) {
	body := []byte(`[{"jsonrpc":"2.0","method":"tasks/get","params":{"id":"x"},"id":1},{"jsonrpc":"1.0","method":"tasks/get","id":2}]`)
	_, batch, rpcErr := Parse(body)
	if rpcErr != nil {
		t.Fatalf("unexpected top-level error: %v", rpcErr)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(batch))
	}
	if ElementError(batch[0]) != nil {
		t.Fatalf("expected first element to parse cleanly")
	}
	elErr := ElementError(batch[1])
	if elErr == nil || elErr.Code != a2a.CodeInvalidRequest {
		t.Fatalf("expected invalid request for second element, got %v", elErr)
	}
}

func TestBuildBatchEncodesGivenResponses(t *testing.T) {
	responses := []*Response{
		BuildResponse(float64(1), map[string]string{"ok": "yes"}, nil),
	}
	out := BuildBatch(responses)
	var decoded []json.RawMessage
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 response, got %d", len(decoded))
	}
}

func TestBuildBatchEmpty(t *testing.T) {
	if out := BuildBatch(nil); out != nil {
		t.Fatalf("expected nil body for empty batch, got %s", out)
	}
}
