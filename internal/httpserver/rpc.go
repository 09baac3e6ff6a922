package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/agent-protocol/a2a-server/internal/handler"
	"github.com/agent-protocol/a2a-server/internal/jsonrpc2"
	"github.com/agent-protocol/a2a-server/pkg/a2a"
)

func (s *Server) handleRPC(c *gin.Context) {
	if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
		c.JSON(http.StatusOK, jsonrpc2.BuildErrorResponse(a2a.NewError(a2a.CodeInvalidRequest, "Content-Type must be application/json")))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, jsonrpc2.BuildErrorResponse(a2a.NewError(a2a.CodeParseError, err.Error())))
		return
	}

	single, batch, parseErr := jsonrpc2.Parse(body)
	if parseErr != nil {
		c.JSON(http.StatusOK, jsonrpc2.BuildErrorResponse(parseErr))
		return
	}

	meta := extractMeta(c)

	if batch != nil {
		s.handleBatch(c, meta, batch)
		return
	}

	s.handleSingle(c, meta, *single, true)
}

func (s *Server) handleBatch(c *gin.Context, meta handler.RequestMeta, reqs []jsonrpc2.Request) {
	responses := make([]*jsonrpc2.Response, 0, len(reqs))
	for _, req := range reqs {
		if elemErr := jsonrpc2.ElementError(req); elemErr != nil {
			responses = append(responses, jsonrpc2.BuildErrorResponse(elemErr))
			continue
		}

		result, stream, rpcErr := s.handler.Handle(c.Request.Context(), meta, req, false)
		if stream != nil {
			// handler.Handle already rejected streaming methods when
			// allowStream is false; this branch is unreachable in
			// practice but guarded defensively.
			rpcErr = a2a.NewError(a2a.CodeInvalidRequest, "streaming method in batch")
		}
		if req.IsNotification() {
			continue
		}
		if rpcErr != nil {
			responses = append(responses, jsonrpc2.BuildResponse(req.ID, nil, rpcErr))
		} else {
			responses = append(responses, jsonrpc2.BuildResponse(req.ID, result, nil))
		}
	}

	body := jsonrpc2.BuildBatch(responses)
	if body == nil {
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Server) handleSingle(c *gin.Context, meta handler.RequestMeta, req jsonrpc2.Request, allowStream bool) {
	result, stream, rpcErr := s.handler.Handle(c.Request.Context(), meta, req, allowStream)

	if stream != nil {
		s.streamSSE(c, stream)
		return
	}

	if req.IsNotification() {
		c.Status(http.StatusOK)
		return
	}

	if rpcErr != nil {
		c.JSON(http.StatusOK, jsonrpc2.BuildResponse(req.ID, nil, rpcErr))
		return
	}
	c.JSON(http.StatusOK, jsonrpc2.BuildResponse(req.ID, result, nil))
}

// streamSSE switches the response to text/event-stream and forwards
// every event from stream as a bare-object data frame (SPEC_FULL.md §3,
// resolving the Open Question on SSE frame shape), terminating with
// "data: [DONE]\n\n" per spec §4.8.
func (s *Server) streamSSE(c *gin.Context, stream <-chan *a2a.Event) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		event, ok := <-stream
		if !ok {
			sse.Encode(w, sse.Event{Data: "[DONE]"})
			return false
		}
		payload, err := json.Marshal(event)
		if err != nil {
			sse.Encode(w, sse.Event{Data: gin.H{"error": err.Error()}})
			return true
		}
		sse.Encode(w, sse.Event{Data: json.RawMessage(payload)})
		return true
	})
}
