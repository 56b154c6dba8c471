package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/moamenhredeen/oascov/internal/models"
	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/utils"
)

// maxDocumentSize bounds how much of a remote document is read
const maxDocumentSize = 32 << 20

// Parser loads OpenAPI documents and extracts endpoint descriptors
type Parser struct {
	client         *http.Client
	skipValidation bool
	log            logger.ILogger
}

// Option configures a Parser
type Option func(*Parser)

// WithHTTPClient sets the client used to fetch documents from URLs
func WithHTTPClient(client *http.Client) Option {
	return func(p *Parser) {
		if client != nil {
			p.client = client
		}
	}
}

// WithoutValidation disables OpenAPI meta-schema validation
func WithoutValidation() Option {
	return func(p *Parser) {
		p.skipValidation = true
	}
}

// WithLogger sets the logger, otherwise the one carried by the context is used
func WithLogger(l logger.ILogger) Option {
	return func(p *Parser) {
		p.log = l
	}
}

// New creates a new parser instance
func New(opts ...Option) *Parser {
	p := &Parser{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load reads, validates and extracts a document with the default parser
func Load(ctx context.Context, source string) (*models.EndpointSet, error) {
	return New().Load(ctx, source)
}

// ParseFile parses an OpenAPI specification file with the default parser
func ParseFile(filePath string) (*models.EndpointSet, error) {
	return New().Load(context.Background(), filePath)
}

// Load reads the document at source, a filesystem path or an http(s) URL, and extracts its endpoints.
// No partial endpoint set is returned on error.
func (p *Parser) Load(ctx context.Context, source string) (*models.EndpointSet, error) {
	data, err := p.read(ctx, source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return p.Parse(ctx, data, source)
}

// Parse extracts endpoints from raw YAML or JSON document bytes
func (p *Parser) Parse(ctx context.Context, data []byte, source string) (*models.EndpointSet, error) {
	log := p.logger(ctx)

	document, err := libopenapi.NewDocument(data)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	info := document.GetSpecInfo()

	if !p.skipValidation {
		if err := validateDocument(ctx, info, data); err != nil {
			return nil, &ValidationError{Source: source, Err: err}
		}
	}

	var set *models.EndpointSet
	switch info.SpecType {
	case utils.OpenApi3:
		set, err = extractV3(document, log)
	case utils.OpenApi2:
		set, err = extractV2(document, log)
	default:
		err = fmt.Errorf("unsupported specification type %q", info.SpecType)
	}
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	set.Source = source
	set.SpecVersion = info.Version
	log.Debugf("parsed %d endpoints from %s (%s %s)", len(set.Endpoints), source, info.SpecType, info.Version)
	return set, nil
}

func (p *Parser) logger(ctx context.Context) logger.ILogger {
	if p.log != nil {
		return p.log
	}
	return logger.FromCtx(ctx)
}

// read returns the raw document bytes from a file or URL
func (p *Parser) read(ctx context.Context, source string) ([]byte, error) {
	if source == "" {
		return nil, fmt.Errorf("no document source given")
	}
	if !isURL(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read OpenAPI file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml, text/yaml, */*")
	req.Header.Set("User-Agent", "oascov/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenAPI document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d fetching OpenAPI document", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

func isURL(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
