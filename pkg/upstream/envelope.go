package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	appErrors "github.com/noah-isme/academic-dashboard-api/pkg/errors"
)

// Shape names the envelope a collection response arrived in.
type Shape string

const (
	ShapeArray    Shape = "array"
	ShapeEnvelope Shape = "envelope"
	ShapeKeyed    Shape = "keyed"
)

// Payload is a decoded collection response.
type Payload struct {
	Shape   Shape    `json:"shape"`
	Records []Record `json:"records"`
	// Skipped counts array elements that were not JSON objects.
	Skipped int `json:"skipped,omitempty"`
}

// DecodeCollection accepts, in order, a bare array, a {success, data} envelope
// and an object keyed by the collection name.
func DecodeCollection(body []byte, collection string) (*Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, shapeError(errors.New("empty body"))
	}

	switch trimmed[0] {
	case '[':
		var items []interface{}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, shapeError(err)
		}
		return fromItems(ShapeArray, items), nil
	case '{':
		var obj map[string]interface{}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, shapeError(err)
		}
		return fromObject(obj, collection)
	}
	return nil, shapeError(fmt.Errorf("body starts with %q", trimmed[0]))
}

func fromObject(obj map[string]interface{}, collection string) (*Payload, error) {
	if ok, present := obj["success"].(bool); present && !ok {
		msg, _ := obj["message"].(string)
		if msg == "" {
			msg = "academic API reported failure"
		}
		return nil, appErrors.CloneWrap(appErrors.ErrUpstreamUnavailable, errors.New(msg), "")
	}
	if data, ok := obj["data"]; ok {
		if items, ok := data.([]interface{}); ok {
			return fromItems(ShapeEnvelope, items), nil
		}
		if nested, ok := data.(map[string]interface{}); ok {
			if items, ok := nested[collection].([]interface{}); ok {
				return fromItems(ShapeEnvelope, items), nil
			}
		}
	}
	if items, ok := obj[collection].([]interface{}); ok {
		return fromItems(ShapeKeyed, items), nil
	}
	return nil, shapeError(fmt.Errorf("object has no data or %q array", collection))
}

func fromItems(shape Shape, items []interface{}) *Payload {
	p := &Payload{Shape: shape, Records: make([]Record, 0, len(items))}
	for _, item := range items {
		rec, ok := item.(map[string]interface{})
		if !ok {
			p.Skipped++
			continue
		}
		p.Records = append(p.Records, rec)
	}
	return p
}

func shapeError(cause error) error {
	return appErrors.CloneWrap(appErrors.ErrUnexpectedShape, cause, "")
}
