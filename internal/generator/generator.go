package generator

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/moamenhredeen/oascov/internal/parser"
)

// Variant is an independent transform of an endpoint template into one test case.
// Build returns nil when the variant does not apply to the endpoint.
type Variant struct {
	Kind  string
	Build func(g *Generator, ep models.EndpointDescriptor, tmpl models.TestCaseTemplate) (*models.TestCase, error)
}

var (
	// HappyPath populates every declared parameter and the body and expects the success code
	HappyPath = Variant{Kind: models.VariantHappyPath, Build: buildHappyPath}
	// MissingParams omits one required parameter, or the required body, and expects 400
	MissingParams = Variant{Kind: models.VariantMissingParams, Build: buildMissingParams}
	// InvalidBody sends an empty object as the body and expects 400
	InvalidBody = Variant{Kind: models.VariantInvalidBody, Build: buildInvalidBody}
)

// DefaultVariants returns the variants generated for every endpoint
func DefaultVariants() []Variant {
	return []Variant{HappyPath, MissingParams, InvalidBody}
}

// Generator builds test cases from endpoint descriptors
type Generator struct {
	rng       *rand.Rand
	opts      Options
	defs      map[string]*models.Schema
	variants  []Variant
	templates *parser.TemplateBuilder
	synth     *Synthesizer
	log       logger.ILogger
}

// Option configures a Generator
type Option func(*Generator)

// WithRand sets the random source used for every synthesized value and variant choice
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		if rng != nil {
			g.rng = rng
		}
	}
}

// WithSeed makes generation reproducible. A zero seed keeps the time-based source.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		if seed != 0 {
			g.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// WithOptions sets the synthesis options
func WithOptions(opts Options) Option {
	return func(g *Generator) {
		g.opts = opts
	}
}

// WithDefinitions sets the named schemas that references resolve against
func WithDefinitions(defs map[string]*models.Schema) Option {
	return func(g *Generator) {
		g.defs = defs
	}
}

// WithVariants replaces the default variant list
func WithVariants(variants ...Variant) Option {
	return func(g *Generator) {
		g.variants = variants
	}
}

// WithLogger sets the logger
func WithLogger(l logger.ILogger) Option {
	return func(g *Generator) {
		g.log = l
	}
}

// NewGenerator creates a new generator instance
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		opts:     DefaultOptions(),
		variants: DefaultVariants(),
		log:      logger.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.templates = &parser.TemplateBuilder{Definitions: g.defs}
	g.synth = NewSynthesizer(g.rng, g.defs, g.opts)
	return g
}

// Synthesizer returns the synthesizer sharing the generator's random source
func (g *Generator) Synthesizer() *Synthesizer {
	return g.synth
}

// Generate builds every applicable variant for every endpoint.
// Any GenerationError aborts generation and no partial list is returned.
func (g *Generator) Generate(endpoints []models.EndpointDescriptor) ([]models.TestCase, error) {
	var cases []models.TestCase
	names := make(map[string]int)

	for _, ep := range endpoints {
		tmpl := g.templates.Build(ep)
		for _, v := range g.variants {
			tc, err := v.Build(g, ep, tmpl)
			if err != nil {
				return nil, fmt.Errorf("failed to generate %s test for %s: %w", v.Kind, ep.Key(), err)
			}
			if tc == nil {
				continue
			}

			// duplicate operation ids still yield distinct names
			names[tc.Name]++
			if n := names[tc.Name]; n > 1 {
				tc.Name = fmt.Sprintf("%s_%d", tc.Name, n)
			}
			cases = append(cases, *tc)
		}
	}

	g.log.Debugf("generated %d test cases for %d endpoints", len(cases), len(endpoints))
	return cases, nil
}

// GenerateSet generates test cases for every endpoint of a parsed document
func GenerateSet(set *models.EndpointSet, opts ...Option) ([]models.TestCase, error) {
	opts = append([]Option{WithDefinitions(set.Definitions)}, opts...)
	return NewGenerator(opts...).Generate(set.Endpoints)
}

// newCase copies the template into a test case of the given variant
func (g *Generator) newCase(ep models.EndpointDescriptor, tmpl models.TestCaseTemplate, kind, description string, tags []string) *models.TestCase {
	tc := &models.TestCase{
		Name:               tmpl.OperationID + "_" + kind,
		Variant:            kind,
		Description:        fmt.Sprintf("Test %s %s %s", ep.Method, ep.Path, description),
		OperationID:        tmpl.OperationID,
		Endpoint:           tmpl.Endpoint,
		Method:             tmpl.Method,
		ExpectedStatusCode: tmpl.ExpectedStatusCode,
		Tags:               append(tags, tmpl.Tags...),
		ExpectedResponse:   tmpl.ExpectedResponse,
	}
	if tmpl.RequestBody != nil {
		body := *tmpl.RequestBody
		tc.RequestBody = &body
	}
	return tc
}

// populateParams copies the template parameters, synthesizing a fresh value for every one without an example
func (g *Generator) populateParams(params models.Params) (models.Params, error) {
	out := params.Clone()
	// fixed order keeps seeded runs reproducible
	for _, loc := range models.ParameterLocations {
		for _, name := range out.Names(loc) {
			v := out[loc][name]
			if v.Example != nil {
				continue
			}
			value, err := g.synth.Synthesize(paramSchema(v.Schema))
			if err != nil {
				return nil, err
			}
			v.Example = value
			out[loc][name] = v
		}
	}
	return out, nil
}

// paramSchema treats a parameter without a schema as a string
func paramSchema(s *models.Schema) *models.Schema {
	if s == nil {
		return &models.Schema{Type: "string"}
	}
	return s
}

// populateBody returns the body example or a freshly synthesized body
func (g *Generator) populateBody(body *models.BodyTemplate) (any, error) {
	if body == nil {
		return nil, nil
	}
	if body.Example != nil {
		return body.Example, nil
	}
	return g.synth.Synthesize(body.Schema)
}

func buildHappyPath(g *Generator, ep models.EndpointDescriptor, tmpl models.TestCaseTemplate) (*models.TestCase, error) {
	tc := g.newCase(ep, tmpl, models.VariantHappyPath, "with valid inputs", []string{"happy_path"})

	params, err := g.populateParams(tmpl.Params)
	if err != nil {
		return nil, err
	}
	tc.Params = params

	if tc.Body, err = g.populateBody(tmpl.RequestBody); err != nil {
		return nil, err
	}
	return tc, nil
}

func buildMissingParams(g *Generator, ep models.EndpointDescriptor, tmpl models.TestCaseTemplate) (*models.TestCase, error) {
	required := tmpl.RequiredItems()
	if len(required) == 0 {
		return nil, nil
	}
	omitted := required[g.rng.Intn(len(required))]

	tc := g.newCase(ep, tmpl, models.VariantMissingParams, "with missing required parameters", []string{"negative", "validation"})
	tc.ExpectedStatusCode = http.StatusBadRequest
	tc.OmittedParameter = &omitted

	params, err := g.populateParams(tmpl.Params)
	if err != nil {
		return nil, err
	}
	if omitted.In != models.LocationBody {
		delete(params[omitted.In], omitted.Name)
	}
	tc.Params = params

	if omitted.In != models.LocationBody {
		if tc.Body, err = g.populateBody(tmpl.RequestBody); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

func buildInvalidBody(g *Generator, ep models.EndpointDescriptor, tmpl models.TestCaseTemplate) (*models.TestCase, error) {
	if tmpl.RequestBody == nil {
		return nil, nil
	}

	tc := g.newCase(ep, tmpl, models.VariantInvalidBody, "with invalid request body", []string{"negative", "validation"})
	tc.ExpectedStatusCode = http.StatusBadRequest

	params, err := g.populateParams(tmpl.Params)
	if err != nil {
		return nil, err
	}
	tc.Params = params
	tc.Body = map[string]any{}
	return tc, nil
}
