package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxLoggedArgLength caps string tool arguments in logs.
const maxLoggedArgLength = 200

// MCPRequestLogger logs JSON-RPC tool calls on the MCP endpoint: the tool
// name, its redacted arguments and whether the response carried an error.
// Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var call rpcCall
			_ = json.Unmarshal(body, &call)

			logger.Debug("MCP request",
				zap.String("method", call.Method),
				zap.String("tool", call.Params.Name),
				zap.Any("arguments", redactArguments(call.Params.Arguments)))

			rec := &bodyRecorder{statusRecorder: newStatusRecorder(w)}
			start := time.Now()
			next.ServeHTTP(rec, r)

			var reply rpcReply
			if err := json.Unmarshal(rec.body.Bytes(), &reply); err != nil {
				// Streamed (SSE) and notification responses are not plain JSON.
				return
			}

			if reply.Error != nil {
				logger.Warn("MCP response error",
					zap.String("tool", call.Params.Name),
					zap.Int("error_code", reply.Error.Code),
					zap.String("error_message", reply.Error.Message),
					zap.Duration("duration", time.Since(start)))
				return
			}
			logger.Debug("MCP response success",
				zap.String("tool", call.Params.Name),
				zap.Bool("tool_error", reply.Result.IsError),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

type rpcCall struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcReply struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// bodyRecorder keeps a copy of the response body.
type bodyRecorder struct {
	*statusRecorder
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.statusRecorder.Write(b)
}

var sensitiveArgKeywords = []string{"password", "secret", "token", "key", "credential"}

// redactArguments hides credential-like arguments and truncates long strings.
func redactArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		redacted := false
		for _, kw := range sensitiveArgKeywords {
			if strings.Contains(lower, kw) {
				redacted = true
				break
			}
		}
		switch {
		case redacted:
			out[k] = "[REDACTED]"
		case isLongString(v):
			out[k] = v.(string)[:maxLoggedArgLength] + "..."
		default:
			out[k] = v
		}
	}
	return out
}

func isLongString(v any) bool {
	s, ok := v.(string)
	return ok && len(s) > maxLoggedArgLength
}
