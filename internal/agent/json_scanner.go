package agent

import (
	"encoding/json"
	"fmt"
)

// findJSONCandidates scans mixed model output for balanced top-level
// JSON objects. Models wrap their payload in prose and code fences, so
// every balanced candidate is returned in order and callers try each
// until one decodes.
func findJSONCandidates(text string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, text[start:i+1])
					start = -1
				}
			}
		}
	}
	return candidates
}

// parseStepResponse extracts the first decodable step object from raw
// model text.
func parseStepResponse(text string) (stepResponse, error) {
	var lastErr error
	for _, candidate := range findJSONCandidates(text) {
		var resp stepResponse
		if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
			lastErr = err
			continue
		}
		if !resp.Decision.validStep() {
			lastErr = fmt.Errorf("unrecognized decision %q", resp.Decision)
			continue
		}
		return resp, nil
	}
	if lastErr != nil {
		return stepResponse{}, fmt.Errorf("no usable step object in response: %w", lastErr)
	}
	return stepResponse{}, fmt.Errorf("no JSON object in response (%d chars)", len(text))
}

// parseFinalResponse extracts the first decodable finalizer object.
func parseFinalResponse(text string) (finalResponse, error) {
	var lastErr error
	for _, candidate := range findJSONCandidates(text) {
		var resp finalResponse
		if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
			lastErr = err
			continue
		}
		switch resp.Decision {
		case DecisionSuccess, DecisionNotFound:
			return resp, nil
		default:
			lastErr = fmt.Errorf("unrecognized decision %q", resp.Decision)
		}
	}
	if lastErr != nil {
		return finalResponse{}, fmt.Errorf("no usable finalizer object in response: %w", lastErr)
	}
	return finalResponse{}, fmt.Errorf("no JSON object in response (%d chars)", len(text))
}
