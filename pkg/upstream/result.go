package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ResultKind tells a successful mutation from a rejected one.
type ResultKind string

const (
	ResultOK  ResultKind = "ok"
	ResultErr ResultKind = "err"
)

// Result is the outcome of a create, update or delete call.
type Result struct {
	Kind    ResultKind `json:"kind"`
	Entity  Record     `json:"entity,omitempty"`
	ID      string     `json:"id,omitempty"`
	Message string     `json:"message,omitempty"`
	Status  int        `json:"status"`
}

// OK reports whether the mutation was accepted.
func (r *Result) OK() bool {
	return r != nil && r.Kind == ResultOK
}

// DecodeResult interprets a mutation response. The academic API signals success
// in several ways: a 2xx status, a success flag, status "success", or an echoed
// record carrying an identifier. Any explicit failure marker wins.
func DecodeResult(status int, body []byte, requestedID string) *Result {
	res := &Result{Status: status, ID: requestedID}

	var obj map[string]interface{}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			obj = nil
		}
	}

	entity := obj
	if data, ok := obj["data"].(map[string]interface{}); ok {
		entity = data
	}
	if id := identifier(entity); id != "" {
		res.ID = id
		res.Entity = entity
	}
	res.Message = message(obj)

	accepted := status >= 200 && status < 300
	if flag, ok := obj["success"].(bool); ok {
		accepted = accepted && flag
	}
	if s, ok := obj["status"].(string); ok {
		switch strings.ToLower(s) {
		case "success", "ok":
		case "error", "fail", "failed":
			accepted = false
		}
	}
	if obj["error"] != nil && obj["success"] != true {
		accepted = false
	}

	if accepted {
		res.Kind = ResultOK
		return res
	}
	res.Kind = ResultErr
	if res.Message == "" {
		res.Message = fmt.Sprintf("academic API rejected the request with status %d", status)
	}
	return res
}

func identifier(rec map[string]interface{}) string {
	for _, key := range []string{"id", "_id"} {
		switch v := rec[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func message(obj map[string]interface{}) string {
	if s, ok := obj["message"].(string); ok && s != "" {
		return s
	}
	switch e := obj["error"].(type) {
	case string:
		return e
	case map[string]interface{}:
		if s, ok := e["message"].(string); ok {
			return s
		}
	}
	return ""
}
