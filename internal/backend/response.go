package backend

import (
	"encoding/json"
	"fmt"
)

// Response is a backend status report.
//
// Malformed is set when the body parsed as JSON but did not have the expected
// shape; it names the violation so callers can log it.
type Response struct {
	Message      string
	ModelOutputs []ModelOutput
	Malformed    string
}

// ModelOutput is a single model result.
type ModelOutput struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Segment is a time-aligned span as reported by the model.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// HasOutput reports whether the response carries at least one model output.
func (r *Response) HasOutput() bool {
	return r != nil && len(r.ModelOutputs) > 0
}

// MarshalJSON renders the response in its wire form.
func (r Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message      string        `json:"message"`
		ModelOutputs []ModelOutput `json:"modelOutputs,omitempty"`
	}{r.Message, r.ModelOutputs})
}

var outputKeys = []string{"modelOutputs", "model_outputs"}

// Decode parses a status body. It returns an error only when body is not a
// JSON object; shape problems are reported through Response.Malformed.
func Decode(body []byte) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode response: body is null")
	}

	resp := &Response{}
	raw, ok := fields["message"]
	if !ok {
		resp.Malformed = "message field missing"
	} else if err := json.Unmarshal(raw, &resp.Message); err != nil {
		resp.Malformed = "message field is not a string"
	}

	for _, key := range outputKeys {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var outputs []ModelOutput
		if err := json.Unmarshal(raw, &outputs); err != nil {
			if resp.Malformed == "" {
				resp.Malformed = fmt.Sprintf("%s is not a list of outputs: %v", key, err)
			}
			break
		}
		resp.ModelOutputs = outputs
		break
	}
	return resp, nil
}
