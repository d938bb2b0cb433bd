package runtime

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/quilldsl/quill/internal/bytecode"
	"github.com/quilldsl/quill/internal/value"
)

// HTTPGet issues a GET to url in the background and, on completion,
// stores the body in state.http_response (success) or the failure
// message in state.error (failure), then runs the ".callback" or
// ".error" chunk from callbacks (whichever the outcome calls for) with
// the response bound into that chunk's local scope. Ported from the teacher's doHttpRequestWithTimeout
// (builtins_http.go), adapted from a synchronous Result-returning
// builtin call to a fire-and-forget scheduling model matching this
// language's async command shape.
func (h *Host) HTTPGet(url string, callbacks map[string]*bytecode.Chunk) {
	requestID := uuid.NewString()
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		h.logf("http.get %s started (request %s)", url, requestID)

		resp, err := h.httpClient.Get(url)
		if err != nil {
			h.SetState("error", value.String(err.Error()))
			h.runCallback(callbacks, ".error", map[string]value.Value{
				"error": value.String(err.Error()),
			}, requestID)
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			msg := value.String(fmt.Sprintf("reading response: %v", err))
			h.SetState("error", msg)
			h.runCallback(callbacks, ".error", map[string]value.Value{
				"error": msg,
			}, requestID)
			return
		}

		h.SetState("http_response", value.String(string(body)))
		h.runCallback(callbacks, ".callback", map[string]value.Value{
			"status": value.Number(resp.StatusCode),
			"body":   value.String(string(body)),
		}, requestID)
	}()
}
