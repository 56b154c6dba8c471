package parser

import (
	"fmt"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v2 "github.com/pb33f/libopenapi/datamodel/high/v2"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/pb33f/libopenapi/orderedmap"
)

// preferredContentTypes is the order in which JSON-ish media types are picked
var preferredContentTypes = []string{"application/json", "text/json", "*/*"}

type v3Method struct {
	method string
	op     *v3.Operation
}

// v3Methods lists the operations of a path item in a fixed order.
// The path-level parameters block is not an operation and is handled separately.
func v3Methods(item *v3.PathItem) []v3Method {
	return []v3Method{
		{"GET", item.Get},
		{"POST", item.Post},
		{"PUT", item.Put},
		{"DELETE", item.Delete},
		{"PATCH", item.Patch},
		{"HEAD", item.Head},
		{"OPTIONS", item.Options},
	}
}

type v2Method struct {
	method string
	op     *v2.Operation
}

func v2Methods(item *v2.PathItem) []v2Method {
	return []v2Method{
		{"GET", item.Get},
		{"POST", item.Post},
		{"PUT", item.Put},
		{"DELETE", item.Delete},
		{"PATCH", item.Patch},
		{"HEAD", item.Head},
		{"OPTIONS", item.Options},
	}
}

// extractV3 builds the endpoint set of an OpenAPI 3.x document
func extractV3(document libopenapi.Document, log logger.ILogger) (*models.EndpointSet, error) {
	model, err := document.BuildV3Model()
	if model == nil {
		return nil, fmt.Errorf("failed to build v3 model: %w", err)
	}
	if err != nil {
		// circular references still produce a usable model
		log.Warningf("v3 model built with errors: %v", err)
	}
	doc := model.Model

	set := &models.EndpointSet{Definitions: map[string]*models.Schema{}}
	setInfo(set, doc.Info)
	for _, server := range doc.Servers {
		if server != nil && server.URL != "" {
			set.Servers = append(set.Servers, server.URL)
		}
	}

	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return set, nil
	}

	conv := newSchemaConverter(set.Definitions, log)
	for pair := doc.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path, item := pair.Key(), pair.Value()
		if item == nil {
			continue
		}
		shared := conv.v3Parameters(item.Parameters)

		for _, m := range v3Methods(item) {
			if m.op == nil {
				continue
			}
			ep := models.EndpointDescriptor{
				Path:        path,
				Method:      m.method,
				OperationID: operationID(m.op.OperationId, m.method, path),
				Summary:     m.op.Summary,
				Description: m.op.Description,
				Parameters:  mergeParameters(shared, conv.v3Parameters(m.op.Parameters)),
				RequestBody: conv.v3RequestBody(m.op.RequestBody),
				Responses:   conv.v3Responses(m.op.Responses),
				Tags:        append([]string(nil), m.op.Tags...),
				Security:    securityRequirements(m.op.Security, doc.Security),
			}
			set.Endpoints = append(set.Endpoints, ep)
		}
	}

	return set, nil
}

// extractV2 builds the endpoint set of a Swagger 2.0 document.
// Paths are prefixed with the document basePath.
func extractV2(document libopenapi.Document, log logger.ILogger) (*models.EndpointSet, error) {
	model, err := document.BuildV2Model()
	if model == nil {
		return nil, fmt.Errorf("failed to build v2 model: %w", err)
	}
	if err != nil {
		log.Warningf("v2 model built with errors: %v", err)
	}
	doc := model.Model

	set := &models.EndpointSet{
		Definitions: map[string]*models.Schema{},
		BasePath:    doc.BasePath,
	}
	setInfo(set, doc.Info)
	if doc.Host != "" {
		set.Servers = append(set.Servers, v2Scheme(doc.Schemes)+"://"+doc.Host)
	}

	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return set, nil
	}

	prefix := strings.TrimRight(doc.BasePath, "/")
	conv := newSchemaConverter(set.Definitions, log)
	for pair := doc.Paths.PathItems.First(); pair != nil; pair = pair.Next() {
		path, item := pair.Key(), pair.Value()
		if item == nil {
			continue
		}

		for _, m := range v2Methods(item) {
			if m.op == nil {
				continue
			}
			consumes := m.op.Consumes
			if len(consumes) == 0 {
				consumes = doc.Consumes
			}
			shared, sharedBody := conv.v2Parameters(item.Parameters, consumes)
			params, body := conv.v2Parameters(m.op.Parameters, consumes)
			if body == nil {
				body = sharedBody
			}

			ep := models.EndpointDescriptor{
				Path:        prefix + path,
				Method:      m.method,
				OperationID: operationID(m.op.OperationId, m.method, path),
				Summary:     m.op.Summary,
				Description: m.op.Description,
				Parameters:  mergeParameters(shared, params),
				RequestBody: body,
				Responses:   conv.v2Responses(m.op.Responses),
				Tags:        append([]string(nil), m.op.Tags...),
				Security:    securityRequirements(m.op.Security, doc.Security),
			}
			set.Endpoints = append(set.Endpoints, ep)
		}
	}

	return set, nil
}

func setInfo(set *models.EndpointSet, info *base.Info) {
	if info == nil {
		return
	}
	set.Title = info.Title
	set.Description = info.Description
	set.Version = info.Version
}

func operationID(declared, method, path string) string {
	if declared != "" {
		return declared
	}
	return strings.ToLower(method) + "_" + path
}

func v2Scheme(schemes []string) string {
	for _, s := range schemes {
		if s == "https" {
			return s
		}
	}
	if len(schemes) > 0 {
		return schemes[0]
	}
	return "http"
}

// mergeParameters overlays operation parameters on path-level ones, matching by (name, in)
func mergeParameters(shared, own []models.Parameter) []models.Parameter {
	merged := append([]models.Parameter(nil), shared...)
	for _, p := range own {
		replaced := false
		for i := range merged {
			if merged[i].Name == p.Name && merged[i].In == p.In {
				merged[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, p)
		}
	}
	return merged
}

func (c *schemaConverter) v3Parameters(params []*v3.Parameter) []models.Parameter {
	var out []models.Parameter
	for _, p := range params {
		if p == nil {
			continue
		}
		loc, ok := models.ParseLocation(p.In)
		if !ok || loc == models.LocationBody {
			c.log.Debugf("skipping parameter %s in unsupported location %q", p.Name, p.In)
			continue
		}

		param := models.Parameter{
			Name:     p.Name,
			In:       loc,
			Required: p.Required != nil && *p.Required,
			Example:  decodeNode(p.Example),
			Schema:   c.convert(p.Schema),
		}
		if param.Example == nil {
			param.Example = firstExample(p.Examples)
		}
		if param.Schema == nil && p.Content != nil {
			if first := p.Content.First(); first != nil && first.Value() != nil {
				param.Schema = c.convert(first.Value().Schema)
			}
		}
		out = append(out, param)
	}
	return out
}

func (c *schemaConverter) v3RequestBody(rb *v3.RequestBody) *models.RequestBody {
	if rb == nil {
		return nil
	}
	body := &models.RequestBody{Required: rb.Required != nil && *rb.Required}
	if rb.Content == nil {
		return body
	}
	for pair := rb.Content.First(); pair != nil; pair = pair.Next() {
		mt := pair.Value()
		if mt == nil {
			continue
		}
		example := decodeNode(mt.Example)
		if example == nil {
			example = firstExample(mt.Examples)
		}
		body.Content = append(body.Content, models.MediaType{
			ContentType: pair.Key(),
			Schema:      c.convert(mt.Schema),
			Example:     example,
		})
	}
	return body
}

func (c *schemaConverter) v3Responses(responses *v3.Responses) []models.Response {
	if responses == nil {
		return nil
	}
	var out []models.Response
	if responses.Codes != nil {
		for pair := responses.Codes.First(); pair != nil; pair = pair.Next() {
			out = append(out, c.v3Response(pair.Key(), pair.Value()))
		}
	}
	if responses.Default != nil {
		out = append(out, c.v3Response("default", responses.Default))
	}
	return out
}

func (c *schemaConverter) v3Response(code string, r *v3.Response) models.Response {
	resp := models.Response{Code: code}
	if r == nil {
		return resp
	}
	resp.Description = r.Description
	if mt := preferredMediaType(r.Content); mt != nil {
		resp.Schema = c.convert(mt.Schema)
	}
	return resp
}

// preferredMediaType picks a JSON-ish media type, falling back to the first one declaring a schema
func preferredMediaType(content *orderedmap.Map[string, *v3.MediaType]) *v3.MediaType {
	if content == nil {
		return nil
	}
	for _, ct := range preferredContentTypes {
		if mt, ok := content.Get(ct); ok && mt != nil {
			return mt
		}
	}
	for pair := content.First(); pair != nil; pair = pair.Next() {
		if pair.Value() != nil && pair.Value().Schema != nil {
			return pair.Value()
		}
	}
	return nil
}

// v2Parameters splits swagger parameters into regular ones and the body parameter
func (c *schemaConverter) v2Parameters(params []*v2.Parameter, consumes []string) ([]models.Parameter, *models.RequestBody) {
	var out []models.Parameter
	var body *models.RequestBody
	for _, p := range params {
		if p == nil {
			continue
		}
		required := p.Required != nil && *p.Required

		switch strings.ToLower(p.In) {
		case "body":
			schema := c.convert(p.Schema)
			body = &models.RequestBody{Required: required}
			types := consumes
			if len(types) == 0 {
				types = []string{"application/json"}
			}
			for _, ct := range types {
				body.Content = append(body.Content, models.MediaType{ContentType: ct, Schema: schema})
			}
			continue
		case "formdata":
			c.log.Debugf("skipping formData parameter %s", p.Name)
			continue
		}

		loc, ok := models.ParseLocation(p.In)
		if !ok {
			c.log.Debugf("skipping parameter %s in unsupported location %q", p.Name, p.In)
			continue
		}
		out = append(out, models.Parameter{
			Name:     p.Name,
			In:       loc,
			Required: required,
			Schema:   schemaFromV2Parameter(p),
		})
	}
	return out, body
}

func (c *schemaConverter) v2Responses(responses *v2.Responses) []models.Response {
	if responses == nil {
		return nil
	}
	var out []models.Response
	if responses.Codes != nil {
		for pair := responses.Codes.First(); pair != nil; pair = pair.Next() {
			resp := models.Response{Code: pair.Key()}
			if r := pair.Value(); r != nil {
				resp.Description = r.Description
				resp.Schema = c.convert(r.Schema)
			}
			out = append(out, resp)
		}
	}
	if r := responses.Default; r != nil {
		out = append(out, models.Response{Code: "default", Description: r.Description, Schema: c.convert(r.Schema)})
	}
	return out
}

// securityRequirements returns the operation requirements, or the document ones when the operation declares none
func securityRequirements(own, global []*base.SecurityRequirement) []models.SecurityRequirement {
	reqs := own
	if reqs == nil {
		reqs = global
	}
	var out []models.SecurityRequirement
	for _, r := range reqs {
		if r == nil || r.Requirements == nil {
			continue
		}
		req := models.SecurityRequirement{}
		for pair := r.Requirements.First(); pair != nil; pair = pair.Next() {
			req[pair.Key()] = append([]string{}, pair.Value()...)
		}
		out = append(out, req)
	}
	return out
}

func firstExample(examples *orderedmap.Map[string, *base.Example]) any {
	if examples == nil {
		return nil
	}
	for pair := examples.First(); pair != nil; pair = pair.Next() {
		if ex := pair.Value(); ex != nil && ex.Value != nil {
			return decodeNode(ex.Value)
		}
	}
	return nil
}
