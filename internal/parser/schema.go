package parser

import (
	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v2 "github.com/pb33f/libopenapi/datamodel/high/v2"
	"go.yaml.in/yaml/v4"
)

// schemaConverter turns libopenapi schemas into models.Schema.
// Referenced schemas are converted once into defs and returned as Ref-only schemas,
// which keeps recursive documents finite.
type schemaConverter struct {
	defs map[string]*models.Schema
	log  logger.ILogger
}

func newSchemaConverter(defs map[string]*models.Schema, log logger.ILogger) *schemaConverter {
	return &schemaConverter{defs: defs, log: log}
}

func (c *schemaConverter) convert(proxy *base.SchemaProxy) *models.Schema {
	if proxy == nil {
		return nil
	}

	if proxy.IsReference() {
		ref := proxy.GetReference()
		if _, seen := c.defs[ref]; !seen {
			// register before descending so self references terminate
			def := &models.Schema{}
			c.defs[ref] = def
			if s := proxy.Schema(); s != nil {
				*def = *c.convertSchema(s)
			} else if err := proxy.GetBuildError(); err != nil {
				c.log.Warningf("failed to build schema %s: %v", ref, err)
			}
		}
		return &models.Schema{Ref: ref}
	}

	s := proxy.Schema()
	if s == nil {
		if err := proxy.GetBuildError(); err != nil {
			c.log.Warningf("failed to build inline schema: %v", err)
		}
		return &models.Schema{}
	}
	return c.convertSchema(s)
}

func (c *schemaConverter) convertSchema(s *base.Schema) *models.Schema {
	out := &models.Schema{
		Type:      primaryType(s.Type),
		Format:    s.Format,
		Example:   decodeNode(s.Example),
		Default:   decodeNode(s.Default),
		Minimum:   s.Minimum,
		Maximum:   s.Maximum,
		MinLength: s.MinLength,
		MaxLength: s.MaxLength,
		MinItems:  s.MinItems,
		MaxItems:  s.MaxItems,
	}
	if out.Example == nil && len(s.Examples) > 0 {
		out.Example = decodeNode(s.Examples[0])
	}
	out.Enum = decodeNodes(s.Enum)
	if len(s.Required) > 0 {
		out.Required = append([]string(nil), s.Required...)
	}

	if s.Items != nil && s.Items.IsA() {
		out.Items = c.convert(s.Items.A)
	}

	if s.Properties != nil && s.Properties.Len() > 0 {
		out.Properties = make(map[string]*models.Schema)
		for pair := s.Properties.First(); pair != nil; pair = pair.Next() {
			out.Properties[pair.Key()] = c.convert(pair.Value())
		}
	}

	return out
}

// schemaFromV2Parameter builds a schema from the inline type fields of a non-body swagger parameter
func schemaFromV2Parameter(p *v2.Parameter) *models.Schema {
	out := &models.Schema{
		Type:    p.Type,
		Format:  p.Format,
		Default: decodeNode(p.Default),
		Enum:    decodeNodes(p.Enum),
	}
	if p.Minimum != nil {
		v := float64(*p.Minimum)
		out.Minimum = &v
	}
	if p.Maximum != nil {
		v := float64(*p.Maximum)
		out.Maximum = &v
	}
	if p.MinLength != nil {
		v := int64(*p.MinLength)
		out.MinLength = &v
	}
	if p.MaxLength != nil {
		v := int64(*p.MaxLength)
		out.MaxLength = &v
	}
	if p.MinItems != nil {
		v := int64(*p.MinItems)
		out.MinItems = &v
	}
	if p.MaxItems != nil {
		v := int64(*p.MaxItems)
		out.MaxItems = &v
	}
	if p.Items != nil {
		out.Items = schemaFromV2Items(p.Items)
	}
	return out
}

func schemaFromV2Items(items *v2.Items) *models.Schema {
	out := &models.Schema{
		Type:    items.Type,
		Format:  items.Format,
		Default: decodeNode(items.Default),
		Enum:    decodeNodes(items.Enum),
	}
	if items.Items != nil {
		out.Items = schemaFromV2Items(items.Items)
	}
	return out
}

// primaryType picks the first non-null entry of a (possibly 3.1 multi-valued) type
func primaryType(types []string) string {
	for _, t := range types {
		if t != "null" {
			return t
		}
	}
	return ""
}

func decodeNodes(nodes []*yaml.Node) []any {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, decodeNode(n))
	}
	return out
}

// decodeNode converts a YAML node into plain JSON-compatible Go values
func decodeNode(n *yaml.Node) any {
	if n == nil {
		return nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return n.Value
	}
	return models.NormalizeValue(v)
}
