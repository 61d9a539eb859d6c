// Package parse turns raw generator output into a validated review response.
package parse

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/metalagman/docqa/internal/model"
)

const (
	startTag = "<json>"
	endTag   = "</json>"
)

//go:embed schema.json
var reviewSchemaJSON string

// ExtractPayload pulls the JSON payload out of raw generator output. When a
// <json>…</json> block is present the enclosed text is returned; with only
// the opening tag (the usual case when generation stops on the closing tag)
// everything after it is returned; otherwise the whole text is the payload.
func ExtractPayload(raw string) string {
	start := strings.Index(raw, startTag)
	end := strings.LastIndex(raw, endTag)
	if start != -1 {
		if end != -1 && end > start {
			return strings.TrimSpace(raw[start+len(startTag) : end])
		}
		return strings.TrimSpace(raw[start+len(startTag):])
	}
	return strings.TrimSpace(raw)
}

// ReviewResponse parses and validates raw generator output. Failures are
// reported as model.MalformedError: KindJSONInvalid when the payload is not
// JSON, KindSchemaInvalid when it does not match the review schema.
func ReviewResponse(raw string) (model.ReviewResponse, error) {
	payload := ExtractPayload(raw)

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return model.ReviewResponse{}, model.Malformed(model.KindJSONInvalid, fmt.Sprintf(
			"Model did not return valid JSON: %v. Model response: %s", err, payload))
	}

	schemaLoader := gojsonschema.NewStringLoader(reviewSchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return model.ReviewResponse{}, model.Malformed(model.KindSchemaInvalid, fmt.Sprintf(
			"JSON does not match schema: %v. Model response: %s", err, payload))
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, schemaErr := range result.Errors() {
			errs = append(errs, schemaErr.String())
		}
		sort.Strings(errs)
		return model.ReviewResponse{}, model.Malformed(model.KindSchemaInvalid, fmt.Sprintf(
			"JSON does not match schema: %s. Model response: %s", strings.Join(errs, "; "), payload))
	}

	var review model.ReviewResponse
	if err := json.Unmarshal([]byte(payload), &review); err != nil {
		return model.ReviewResponse{}, model.Malformed(model.KindSchemaInvalid, fmt.Sprintf(
			"JSON does not match schema: %v. Model response: %s", err, payload))
	}
	return review, nil
}
