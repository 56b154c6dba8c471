package tester

import (
	"encoding/json"
	"fmt"
	"mime"
	"strings"

	"github.com/moamenhredeen/oascov/internal/models"
)

// maxRefHops bounds reference chains followed while resolving a schema
const maxRefHops = 32

// Validator validates response bodies against the expected response schema
type Validator struct {
	definitions map[string]*models.Schema
}

// NewValidator creates a new validator resolving references against definitions
func NewValidator(definitions map[string]*models.Schema) *Validator {
	return &Validator{definitions: definitions}
}

// ValidateBody checks the content type, the top-level type and required properties of a response body
func (v *Validator) ValidateBody(body []byte, contentType string, schema *models.Schema) []models.ValidationError {
	var errors []models.ValidationError

	schema = v.resolve(schema)
	if schema == nil {
		return errors
	}

	if !isJSON(contentType) {
		errors = append(errors, models.ValidationError{
			Field:   "content_type",
			Message: fmt.Sprintf("unexpected content type: %s", contentType),
		})
		return errors
	}

	var bodyData any
	if err := json.Unmarshal(body, &bodyData); err != nil {
		errors = append(errors, models.ValidationError{
			Field:   "body",
			Message: fmt.Sprintf("failed to parse JSON response: %v", err),
		})
		return errors
	}

	// Basic schema validation
	if msg := checkType(schema.Type, bodyData); msg != "" {
		errors = append(errors, models.ValidationError{Field: "body", Message: msg})
		return errors
	}

	// Validate required fields for objects
	if obj, ok := bodyData.(map[string]any); ok {
		for _, requiredField := range schema.Required {
			if _, exists := obj[requiredField]; !exists {
				errors = append(errors, models.ValidationError{
					Field:   fmt.Sprintf("body.%s", requiredField),
					Message: fmt.Sprintf("missing required field: %s", requiredField),
				})
			}
		}
	}

	return errors
}

func checkType(schemaType string, data any) string {
	ok := true
	switch schemaType {
	case "object":
		_, ok = data.(map[string]any)
	case "array":
		_, ok = data.([]any)
	case "string":
		_, ok = data.(string)
	case "integer":
		// Numbers can be float64 in JSON
		var f float64
		f, ok = data.(float64)
		ok = ok && f == float64(int64(f))
	case "number":
		_, ok = data.(float64)
	case "boolean":
		_, ok = data.(bool)
	}
	if !ok {
		return fmt.Sprintf("expected %s type, got different type", schemaType)
	}
	return ""
}

func (v *Validator) resolve(schema *models.Schema) *models.Schema {
	for hops := 0; schema != nil && schema.Ref != ""; hops++ {
		if hops >= maxRefHops {
			return nil
		}
		schema = v.definitions[schema.Ref]
	}
	return schema
}

// isJSON reports whether a Content-Type header denotes a JSON document
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType == "application/json" || mediaType == "text/json" || strings.HasSuffix(mediaType, "+json")
}
