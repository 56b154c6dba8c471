package generator

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moamenhredeen/oascov/internal/models"
)

// SchemaKind is the JSON Schema type a value is synthesized for
type SchemaKind int

const (
	KindUnknown SchemaKind = iota
	KindString
	KindInteger
	KindNumber
	KindBoolean
	KindArray
	KindObject
)

// KindOf maps a schema type to its kind. A missing type is a string.
func KindOf(schemaType string) SchemaKind {
	switch schemaType {
	case "", "string":
		return KindString
	case "integer":
		return KindInteger
	case "number":
		return KindNumber
	case "boolean":
		return KindBoolean
	case "array":
		return KindArray
	case "object":
		return KindObject
	default:
		return KindUnknown
	}
}

func (k SchemaKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Options tunes value synthesis
type Options struct {
	// StringCap bounds the length of random strings
	StringCap int
	// ArrayCap bounds the number of array elements
	ArrayCap int
	// OptionalProbability is the chance an optional object property is included
	OptionalProbability float64
	// MaxDepth bounds schema nesting, including reference hops
	MaxDepth int
}

// DefaultOptions returns the default synthesis options
func DefaultOptions() Options {
	return Options{
		StringCap:           10,
		ArrayCap:            5,
		OptionalProbability: 0.5,
		MaxDepth:            32,
	}
}

var (
	ErrMaxDepth      = errors.New("maximum schema depth exceeded")
	ErrUnresolvedRef = errors.New("unresolved schema reference")
	ErrInvalidBounds = errors.New("schema bounds cannot be satisfied")
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultEmail = "test@example.com"
)

// Synthesizer produces schema-conformant values
type Synthesizer struct {
	rng  *rand.Rand
	defs map[string]*models.Schema
	opts Options
	now  func() time.Time
}

// NewSynthesizer creates a synthesizer drawing every random choice from rng
func NewSynthesizer(rng *rand.Rand, defs map[string]*models.Schema, opts Options) *Synthesizer {
	if opts.StringCap <= 0 {
		opts.StringCap = DefaultOptions().StringCap
	}
	if opts.ArrayCap <= 0 {
		opts.ArrayCap = DefaultOptions().ArrayCap
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	return &Synthesizer{
		rng:  rng,
		defs: defs,
		opts: opts,
		now:  time.Now,
	}
}

// Synthesize generates a value for schema. A nil schema yields nil.
func (s *Synthesizer) Synthesize(schema *models.Schema) (any, error) {
	if schema == nil {
		return nil, nil
	}
	v, err := s.generate(schema, 0)
	if err != nil {
		return nil, err
	}
	return models.NormalizeValue(v), nil
}

func (s *Synthesizer) generate(schema *models.Schema, depth int) (any, error) {
	if depth > s.opts.MaxDepth {
		return nil, &GenerationError{Schema: describe(schema), Err: ErrMaxDepth}
	}

	if schema.Ref != "" {
		def, ok := s.defs[schema.Ref]
		if !ok || def == nil {
			return nil, &GenerationError{Schema: schema.Ref, Err: ErrUnresolvedRef}
		}
		return s.generate(def, depth+1)
	}

	switch KindOf(schema.Type) {
	case KindString:
		return s.generateString(schema)
	case KindInteger:
		return s.generateInteger(schema)
	case KindNumber:
		return s.generateNumber(schema)
	case KindBoolean:
		if len(schema.Enum) > 0 {
			return s.pick(schema.Enum), nil
		}
		return s.rng.Intn(2) == 1, nil
	case KindArray:
		return s.generateArray(schema, depth)
	case KindObject:
		return s.generateObject(schema, depth)
	default:
		return nil, nil
	}
}

// generateString honors format first, then enum, then length bounds
func (s *Synthesizer) generateString(schema *models.Schema) (any, error) {
	if v, ok := s.generateFromFormat(schema.Format); ok {
		return v, nil
	}

	if len(schema.Enum) > 0 {
		return s.pick(schema.Enum), nil
	}

	length := s.opts.StringCap
	if schema.MaxLength != nil && int(*schema.MaxLength) < length {
		length = int(*schema.MaxLength)
	}
	if schema.MinLength != nil && int(*schema.MinLength) > length {
		if schema.MaxLength != nil && *schema.MinLength > *schema.MaxLength {
			return nil, &GenerationError{Schema: describe(schema), Err: ErrInvalidBounds}
		}
		length = int(*schema.MinLength)
	}
	if length < 0 {
		length = 0
	}

	b := make([]byte, length)
	for i := range b {
		b[i] = alphanumeric[s.rng.Intn(len(alphanumeric))]
	}
	return string(b), nil
}

// generateFromFormat generates a value based on format
func (s *Synthesizer) generateFromFormat(format string) (string, bool) {
	switch format {
	case "date-time":
		return s.now().UTC().Format(time.RFC3339), true
	case "date":
		return s.now().UTC().Format("2006-01-02"), true
	case "email":
		return defaultEmail, true
	case "uuid":
		id, err := uuid.NewRandomFromReader(s.rng)
		if err != nil {
			return uuid.NewString(), true
		}
		return id.String(), true
	default:
		return "", false
	}
}

// numericBounds applies the [0, 100] defaults, widening them when only one side is declared
func numericBounds(schema *models.Schema) (float64, float64) {
	lo, hi := 0.0, 100.0
	switch {
	case schema.Minimum != nil && schema.Maximum != nil:
		lo, hi = *schema.Minimum, *schema.Maximum
	case schema.Minimum != nil:
		lo = *schema.Minimum
		if lo > hi {
			hi = lo + 100
		}
	case schema.Maximum != nil:
		hi = *schema.Maximum
		if hi < lo {
			lo = hi - 100
		}
	}
	return lo, hi
}

func (s *Synthesizer) generateInteger(schema *models.Schema) (any, error) {
	if len(schema.Enum) > 0 {
		return s.pick(schema.Enum), nil
	}

	lo, hi := numericBounds(schema)
	lo, hi = math.Ceil(lo), math.Floor(hi)
	if lo < math.MinInt64 || hi > math.MaxInt64 {
		return nil, &GenerationError{Schema: describe(schema), Err: ErrInvalidBounds}
	}
	// a declared maximum of math.MaxInt64 arrives as 2^63, one past the int64 range
	if hi == math.MaxInt64 {
		hi = math.Nextafter(hi, 0)
	}
	if lo > hi {
		return nil, &GenerationError{Schema: describe(schema), Err: ErrInvalidBounds}
	}

	span := hi - lo
	if span >= math.MaxInt64 {
		return int64(math.Min(lo+math.Floor(s.rng.Float64()*span), hi)), nil
	}
	return int64(lo) + s.rng.Int63n(int64(span)+1), nil
}

func (s *Synthesizer) generateNumber(schema *models.Schema) (any, error) {
	if len(schema.Enum) > 0 {
		return s.pick(schema.Enum), nil
	}

	lo, hi := numericBounds(schema)
	if lo > hi {
		return nil, &GenerationError{Schema: describe(schema), Err: ErrInvalidBounds}
	}
	return lo + s.rng.Float64()*(hi-lo), nil
}

// generateArray picks a count in [minItems or 1, min(cap, maxItems)] and fills each element independently
func (s *Synthesizer) generateArray(schema *models.Schema, depth int) (any, error) {
	lo := 1
	if schema.MinItems != nil {
		lo = int(*schema.MinItems)
	}
	hi := s.opts.ArrayCap
	if schema.MaxItems != nil && int(*schema.MaxItems) < hi {
		hi = int(*schema.MaxItems)
	}
	if lo > hi {
		if schema.MaxItems != nil && lo > int(*schema.MaxItems) {
			lo = hi
		} else {
			hi = lo
		}
	}
	if hi < 0 {
		return nil, &GenerationError{Schema: describe(schema), Err: ErrInvalidBounds}
	}
	if lo < 0 {
		lo = 0
	}

	items := schema.Items
	if items == nil {
		items = &models.Schema{}
	}

	count := lo + s.rng.Intn(hi-lo+1)
	result := make([]any, 0, count)
	for i := 0; i < count; i++ {
		v, err := s.generate(items, depth+1)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// generateObject includes required properties and each optional one with OptionalProbability
func (s *Synthesizer) generateObject(schema *models.Schema, depth int) (any, error) {
	result := make(map[string]any)

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !schema.IsRequired(name) && s.rng.Float64() >= s.opts.OptionalProbability {
			continue
		}
		prop := schema.Properties[name]
		if prop == nil {
			prop = &models.Schema{}
		}
		v, err := s.generate(prop, depth+1)
		if err != nil {
			return nil, err
		}
		result[name] = v
	}
	return result, nil
}

func (s *Synthesizer) pick(values []any) any {
	return values[s.rng.Intn(len(values))]
}

func describe(schema *models.Schema) string {
	if schema.Ref != "" {
		return schema.Ref
	}
	if schema.Type == "" {
		return "string schema"
	}
	return schema.Type + " schema"
}
