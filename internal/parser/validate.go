package parser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pb33f/libopenapi/datamodel"
)

// validateDocument checks the document against the OpenAPI meta-schema.
// Swagger 2.0 documents are converted to 3.0 first. 3.1+ documents are left to the model builder.
func validateDocument(ctx context.Context, info *datamodel.SpecInfo, data []byte) error {
	switch info.SpecFormat {
	case datamodel.OAS2:
		raw := data
		if info.SpecJSONBytes != nil {
			raw = *info.SpecJSONBytes
		}
		var doc2 openapi2.T
		if err := json.Unmarshal(raw, &doc2); err != nil {
			return fmt.Errorf("failed to decode swagger document: %w", err)
		}
		doc3, err := openapi2conv.ToV3(&doc2)
		if err != nil {
			return fmt.Errorf("failed to convert swagger document: %w", err)
		}
		return doc3.Validate(ctx, openapi3.DisableExamplesValidation())

	case datamodel.OAS3:
		loader := openapi3.NewLoader()
		loader.Context = ctx
		doc, err := loader.LoadFromData(data)
		if err != nil {
			return fmt.Errorf("failed to load document for validation: %w", err)
		}
		return doc.Validate(ctx, openapi3.DisableExamplesValidation())
	}
	return nil
}
