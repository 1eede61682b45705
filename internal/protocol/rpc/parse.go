package rpc

import (
	"bytes"
	"encoding/json"
	"strconv"

	"fluxpay/internal/domain/types"
)

type responseFrame struct {
	Res   []json.RawMessage `json:"res"`
	Sig   []string          `json:"sig"`
	Error json.RawMessage   `json:"error"`
}

type errorBody struct {
	ID      json.RawMessage `json:"id"`
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

// Parse decodes one inbound frame. It returns nil for anything that is not
// a recognizable response or error.
func Parse(raw []byte) *types.Envelope {
	var f responseFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if len(f.Res) == 0 && len(f.Error) > 0 {
		return parseTopLevelError(f.Error)
	}
	if len(f.Res) < 3 {
		return nil
	}

	id, ok := parseUint(f.Res[0])
	if !ok {
		return nil
	}
	var method string
	if err := json.Unmarshal(f.Res[1], &method); err != nil {
		return nil
	}
	kind := KindOf(method)
	if kind == types.KindUnknown {
		return nil
	}
	env := &types.Envelope{
		RequestID: id,
		Kind:      kind,
		Method:    method,
		Payload:   f.Res[2],
	}
	if len(f.Res) > 3 {
		env.Timestamp, _ = parseUint(f.Res[3])
	}
	if kind == types.KindError {
		env.Error = errorMessage(f.Res[2])
	}
	return env
}

func parseTopLevelError(raw json.RawMessage) *types.Envelope {
	env := &types.Envelope{Kind: types.KindError, Method: MethodError, Payload: raw}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		env.RequestID, _ = parseUint(body.ID)
	}
	env.Error = errorMessage(raw)
	return env
}

// errorMessage extracts a human message from an error payload, which may be
// a bare string, {"error": "..."} or {"message": "..."}.
func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return string(bytes.TrimSpace(raw))
}

// parseUint accepts a JSON number or a decimal string.
func parseUint(raw json.RawMessage) (uint64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		raw = []byte(s)
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
