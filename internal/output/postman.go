package output

import (
	"strings"

	"github.com/moamenhredeen/oascov/internal/models"
)

const postmanSchema = "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"

// noTag is the folder of endpoints without tags
const noTag = "No Tag"

// PostmanCollection is a Postman v2.1 collection
type PostmanCollection struct {
	Info     PostmanInfo       `json:"info"`
	Item     []PostmanFolder   `json:"item"`
	Variable []PostmanVariable `json:"variable"`
}

type PostmanInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      string `json:"schema"`
}

type PostmanFolder struct {
	Name string        `json:"name"`
	Item []PostmanItem `json:"item"`
}

type PostmanItem struct {
	Name     string         `json:"name"`
	Request  PostmanRequest `json:"request"`
	Response []any          `json:"response"`
}

type PostmanRequest struct {
	Method      string     `json:"method"`
	Header      []any      `json:"header"`
	URL         PostmanURL `json:"url"`
	Description string     `json:"description"`
}

type PostmanURL struct {
	Raw      string   `json:"raw"`
	Host     []string `json:"host"`
	Path     []string `json:"path"`
	Variable []any    `json:"variable"`
}

type PostmanVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// BuildPostmanCollection groups the endpoints of a set into one folder per first tag
func BuildPostmanCollection(set *models.EndpointSet) PostmanCollection {
	name := set.Title
	if name == "" {
		name = "API Collection"
	}
	collection := PostmanCollection{
		Info: PostmanInfo{
			Name:        name,
			Description: set.Description,
			Schema:      postmanSchema,
		},
		Item:     []PostmanFolder{},
		Variable: []PostmanVariable{},
	}

	folders := map[string]int{}
	for _, ep := range set.Endpoints {
		tag := noTag
		if len(ep.Tags) > 0 && ep.Tags[0] != "" {
			tag = ep.Tags[0]
		}
		idx, ok := folders[tag]
		if !ok {
			idx = len(collection.Item)
			folders[tag] = idx
			collection.Item = append(collection.Item, PostmanFolder{Name: tag, Item: []PostmanItem{}})
		}
		collection.Item[idx].Item = append(collection.Item[idx].Item, postmanItem(ep))
	}

	if len(set.Servers) > 0 {
		collection.Variable = append(collection.Variable, PostmanVariable{Key: "baseUrl", Value: set.Servers[0]})
	}
	return collection
}

func postmanItem(ep models.EndpointDescriptor) PostmanItem {
	name := ep.Summary
	if name == "" {
		name = ep.OperationID
	}

	segments := []string{}
	if trimmed := strings.Trim(ep.Path, "/"); trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}

	return PostmanItem{
		Name: name,
		Request: PostmanRequest{
			Method: ep.Method,
			Header: []any{},
			URL: PostmanURL{
				Raw:      "{{baseUrl}}" + ep.Path,
				Host:     []string{"{{baseUrl}}"},
				Path:     segments,
				Variable: []any{},
			},
			Description: ep.Description,
		},
		Response: []any{},
	}
}

// ExportPostman writes a Postman collection for the set
func ExportPostman(set *models.EndpointSet, filePath string) error {
	w, closer, err := getWriter(filePath)
	if err != nil {
		return err
	}

	if err := writeJSON(w, BuildPostmanCollection(set)); err != nil {
		closeQuietly(closer)
		return &ExportError{Op: "write Postman collection to", Path: filePath, Err: err}
	}
	return closeOutput(closer, filePath)
}
