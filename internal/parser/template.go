package parser

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/moamenhredeen/oascov/internal/models"
)

// TemplateBuilder turns endpoint descriptors into test case templates.
// Definitions are consulted when a referenced schema carries the example or default.
type TemplateBuilder struct {
	Definitions map[string]*models.Schema
}

// BuildTemplate builds the template of an endpoint without resolving schema references
func BuildTemplate(ep models.EndpointDescriptor) models.TestCaseTemplate {
	return (&TemplateBuilder{}).Build(ep)
}

// Build selects the success code, parameter examples and preferred request body of an endpoint
func (b *TemplateBuilder) Build(ep models.EndpointDescriptor) models.TestCaseTemplate {
	tmpl := models.TestCaseTemplate{
		Name:               "Test " + ep.OperationID,
		Endpoint:           ep.Path,
		Method:             ep.Method,
		OperationID:        ep.OperationID,
		ExpectedStatusCode: http.StatusOK,
		Params:             models.NewParams(),
		Tags:               append([]string(nil), ep.Tags...),
	}

	for _, r := range ep.Responses {
		if !strings.HasPrefix(r.Code, "2") {
			continue
		}
		// ranges such as 2XX fall back to 200
		if code, err := strconv.Atoi(r.Code); err == nil {
			tmpl.ExpectedStatusCode = code
		}
		tmpl.ExpectedResponse = r.Schema
		break
	}

	for _, p := range ep.Parameters {
		example := p.Example
		if example == nil {
			example = b.schemaExample(p.Schema)
		}
		tmpl.Params[p.In][p.Name] = models.ParamValue{
			Required: p.Required,
			Example:  example,
			Schema:   p.Schema,
		}
	}

	if ep.RequestBody != nil {
		body := &models.BodyTemplate{Required: ep.RequestBody.Required}
		for _, ct := range preferredContentTypes {
			mt, ok := ep.RequestBody.MediaType(ct)
			if !ok {
				continue
			}
			body.ContentType = mt.ContentType
			body.Schema = mt.Schema
			body.Example = mt.Example
			if body.Example == nil {
				body.Example = b.schemaExample(mt.Schema)
			}
			break
		}
		tmpl.RequestBody = body
	}

	return tmpl
}

// schemaExample returns the schema-level example, then the schema default
func (b *TemplateBuilder) schemaExample(s *models.Schema) any {
	s = b.resolve(s)
	if s == nil {
		return nil
	}
	if s.Example != nil {
		return s.Example
	}
	return s.Default
}

func (b *TemplateBuilder) resolve(s *models.Schema) *models.Schema {
	for seen := 0; s != nil && s.Ref != "" && seen < 32; seen++ {
		s = b.Definitions[s.Ref]
	}
	return s
}
