package external

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DecisionInput is the document sent to the policy engine for one request.
type DecisionInput struct {
	// Identity is the claim map of the caller, empty for anonymous callers.
	Identity map[string]interface{} `json:"identity"`

	// Context is the output of the context data provider.
	Context map[string]interface{} `json:"context"`

	// Resource describes the request being authorized.
	Resource Resource `json:"resource"`

	// PolicyPath is the policy the input is evaluated against. It selects
	// the engine URL and is not part of the document.
	PolicyPath string `json:"-"`
}

// Resource is the request descriptor of a DecisionInput.
type Resource struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Verdict is the decision returned by the policy engine.
type Verdict struct {
	// Allow is the decision.
	Allow bool

	// Reason is the optional explanation from the policy.
	Reason string

	// DecisionID is the engine's decision log id, when enabled.
	DecisionID string

	// Metadata holds any other fields of an object result.
	Metadata map[string]interface{}
}

type dataRequest struct {
	Input *DecisionInput `json:"input"`
}

type dataResponse struct {
	Result     json.RawMessage `json:"result"`
	DecisionID string          `json:"decision_id,omitempty"`
}

// parseVerdict interprets a Data API response body. An undefined result or
// an object without a boolean allow is a protocol error, never a deny.
func parseVerdict(body []byte) (*Verdict, error) {
	var resp dataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrPolicyEngineProtocolError, err)
	}

	raw := strings.TrimSpace(string(resp.Result))
	if raw == "" || raw == "null" {
		return nil, fmt.Errorf("%w: policy result is undefined", ErrPolicyEngineProtocolError)
	}

	var result interface{}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("%w: decode result: %w", ErrPolicyEngineProtocolError, err)
	}

	verdict := &Verdict{DecisionID: resp.DecisionID}

	switch v := result.(type) {
	case bool:
		verdict.Allow = v
	case map[string]interface{}:
		allow, ok := v["allow"].(bool)
		if !ok {
			return nil, fmt.Errorf("%w: result object has no boolean allow", ErrPolicyEngineProtocolError)
		}
		verdict.Allow = allow
		for key, value := range v {
			if key == "allow" {
				continue
			}
			if s, isString := value.(string); key == "reason" && isString {
				verdict.Reason = s
				continue
			}
			if verdict.Metadata == nil {
				verdict.Metadata = make(map[string]interface{})
			}
			verdict.Metadata[key] = value
		}
	default:
		return nil, fmt.Errorf("%w: unexpected result type %T", ErrPolicyEngineProtocolError, result)
	}

	return verdict, nil
}

// ValidatePolicyPath checks that path is a slash-separated policy name with
// non-empty segments and no relative components.
func ValidatePolicyPath(path string) error {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return errors.New("policy path is empty")
	}
	for _, segment := range strings.Split(trimmed, "/") {
		switch segment {
		case "":
			return fmt.Errorf("policy path %q has an empty segment", path)
		case ".", "..":
			return fmt.Errorf("policy path %q has a relative segment", path)
		}
		if strings.ContainsAny(segment, "?# \t\n") {
			return fmt.Errorf("policy path %q has an invalid character", path)
		}
	}
	return nil
}
