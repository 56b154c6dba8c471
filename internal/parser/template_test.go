package parser

import (
	"testing"

	"github.com/moamenhredeen/oascov/internal/models"
)

func TestBuildTemplate(t *testing.T) {
	set := loadFixture(t, "petstore.yaml")

	tests := []struct {
		method       string
		path         string
		expectedCode int
		hasBody      bool
	}{
		{"GET", "/pets", 200, false},
		{"POST", "/pets", 201, true},
		{"GET", "/pets/{petId}", 200, false},
		{"DELETE", "/pets/{petId}", 204, false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			tmpl := BuildTemplate(findEndpoint(t, set, tt.method, tt.path))

			if tmpl.ExpectedStatusCode != tt.expectedCode {
				t.Errorf("Expected status %d, got %d", tt.expectedCode, tmpl.ExpectedStatusCode)
			}
			if (tmpl.RequestBody != nil) != tt.hasBody {
				t.Errorf("Expected body presence %v, got %+v", tt.hasBody, tmpl.RequestBody)
			}
			if tmpl.Name != "Test "+tmpl.OperationID {
				t.Errorf("Unexpected template name %s", tmpl.Name)
			}
			for _, loc := range models.ParameterLocations {
				if tmpl.Params[loc] == nil {
					t.Errorf("Expected %s location to be present", loc)
				}
			}
		})
	}
}

func TestBuildTemplateExamples(t *testing.T) {
	set := loadFixture(t, "petstore.yaml")
	tmpl := BuildTemplate(findEndpoint(t, set, "GET", "/pets"))

	// falls back to the schema default
	if got := tmpl.Params[models.LocationQuery]["limit"].Example; got != int64(20) {
		t.Errorf("Expected limit example 20 from schema default, got %v", got)
	}
	if got := tmpl.Params[models.LocationQuery]["status"].Example; got != "available" {
		t.Errorf("Expected explicit status example, got %v", got)
	}
	if tmpl.ExpectedResponse == nil || tmpl.ExpectedResponse.Ref != "#/components/schemas/Pets" {
		t.Errorf("Expected success response schema, got %+v", tmpl.ExpectedResponse)
	}
}

func TestBuildTemplateRequestBody(t *testing.T) {
	set := loadFixture(t, "petstore.yaml")
	tmpl := BuildTemplate(findEndpoint(t, set, "POST", "/pets"))

	if tmpl.RequestBody.ContentType != "application/json" {
		t.Errorf("Expected application/json, got %s", tmpl.RequestBody.ContentType)
	}
	if !tmpl.RequestBody.Required {
		t.Error("Expected required body")
	}
	if tmpl.RequestBody.Example != nil {
		t.Errorf("Expected no body example, got %v", tmpl.RequestBody.Example)
	}

	items := tmpl.RequiredItems()
	if len(items) != 1 || items[0].Name != models.BodyParameterName || items[0].In != models.LocationBody {
		t.Errorf("Expected the body as the only required item, got %+v", items)
	}
}

func TestBuildTemplateContentTypePreference(t *testing.T) {
	ep := models.EndpointDescriptor{
		Path:        "/upload",
		Method:      "POST",
		OperationID: "upload",
		RequestBody: &models.RequestBody{
			Required: true,
			Content: []models.MediaType{
				{ContentType: "application/xml", Schema: &models.Schema{Type: "string"}},
				{ContentType: "*/*", Schema: &models.Schema{Type: "object"}},
				{ContentType: "text/json", Schema: &models.Schema{Type: "array"}, Example: []any{1}},
			},
		},
	}

	tmpl := BuildTemplate(ep)
	if tmpl.RequestBody.ContentType != "text/json" {
		t.Errorf("Expected text/json to win over */*, got %s", tmpl.RequestBody.ContentType)
	}
	if tmpl.ExpectedStatusCode != 200 {
		t.Errorf("Expected default status 200, got %d", tmpl.ExpectedStatusCode)
	}

	ep.RequestBody.Content = ep.RequestBody.Content[:1]
	tmpl = BuildTemplate(ep)
	if tmpl.RequestBody == nil || !tmpl.RequestBody.Required {
		t.Fatalf("Expected body to be recorded without a preferred content type, got %+v", tmpl.RequestBody)
	}
	if tmpl.RequestBody.Schema != nil {
		t.Errorf("Expected no schema, got %+v", tmpl.RequestBody.Schema)
	}
}

func TestBuildTemplateSuccessCode(t *testing.T) {
	tests := []struct {
		name      string
		responses []models.Response
		expected  int
	}{
		{"none declared", nil, 200},
		{"first 2xx wins", []models.Response{{Code: "400"}, {Code: "202"}, {Code: "200"}}, 202},
		{"range", []models.Response{{Code: "2XX"}}, 200},
		{"default only", []models.Response{{Code: "default"}}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := BuildTemplate(models.EndpointDescriptor{Method: "GET", Path: "/", OperationID: "root", Responses: tt.responses})
			if tmpl.ExpectedStatusCode != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, tmpl.ExpectedStatusCode)
			}
		})
	}
}

func TestTemplateBuilderResolvesDefinitions(t *testing.T) {
	defs := map[string]*models.Schema{
		"#/components/schemas/Id": {Type: "string", Example: "abc"},
	}
	ep := models.EndpointDescriptor{
		Method:      "GET",
		Path:        "/items/{id}",
		OperationID: "getItem",
		Parameters: []models.Parameter{
			{Name: "id", In: models.LocationPath, Required: true, Schema: &models.Schema{Ref: "#/components/schemas/Id"}},
		},
	}

	if got := BuildTemplate(ep).Params[models.LocationPath]["id"].Example; got != nil {
		t.Errorf("Expected no example without definitions, got %v", got)
	}
	tmpl := (&TemplateBuilder{Definitions: defs}).Build(ep)
	if got := tmpl.Params[models.LocationPath]["id"].Example; got != "abc" {
		t.Errorf("Expected example from referenced schema, got %v", got)
	}
}
