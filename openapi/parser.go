package openapi

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/spec"
)

// Endpoint represents a documented API endpoint.
type Endpoint struct {
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	BaseURL     string   `json:"baseUrl,omitempty"`
	FullURL     string   `json:"fullUrl,omitempty"`
}

// DiscoveredEndpoints contains all endpoints of a document and its metadata.
type DiscoveredEndpoints struct {
	Endpoints []Endpoint `json:"endpoints"`
	BaseURLs  []string   `json:"baseUrls"`
	Info      struct {
		Title       string `json:"title,omitempty"`
		Version     string `json:"version,omitempty"`
		Description string `json:"description,omitempty"`
	} `json:"info"`
	Source string `json:"source"`
}

// ParseOpenAPISpec loads a Swagger 2.0 file (JSON or YAML, path or URL) and
// lists its endpoints sorted by path and method.
func ParseOpenAPISpec(specPath string) (*DiscoveredEndpoints, error) {
	doc, err := loads.Spec(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec from %s: %w", specPath, err)
	}

	result := &DiscoveredEndpoints{
		Endpoints: []Endpoint{},
		Source:    specPath,
	}
	sw := doc.Spec()
	if sw.Info != nil {
		result.Info.Title = sw.Info.Title
		result.Info.Version = sw.Info.Version
		result.Info.Description = sw.Info.Description
	}
	result.BaseURLs = extractBaseURLs(sw)

	if sw.Paths != nil {
		for path, pathItem := range sw.Paths.Paths {
			result.Endpoints = append(result.Endpoints, extractEndpointsFromPath(path, pathItem, result.BaseURLs)...)
		}
	}

	sort.Slice(result.Endpoints, func(i, j int) bool {
		if result.Endpoints[i].Path == result.Endpoints[j].Path {
			return result.Endpoints[i].Method < result.Endpoints[j].Method
		}
		return result.Endpoints[i].Path < result.Endpoints[j].Path
	})
	return result, nil
}

// extractBaseURLs builds base URLs from host, schemes and basePath. Documents
// without a host get a localhost fallback.
func extractBaseURLs(sw *spec.Swagger) []string {
	basePath := strings.TrimSuffix(sw.BasePath, "/")
	host := sw.Host
	if host == "" {
		host = "localhost"
	}

	schemes := sw.Schemes
	if len(schemes) == 0 {
		schemes = []string{"http"}
	}

	baseURLs := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		baseURLs = append(baseURLs, fmt.Sprintf("%s://%s%s", scheme, host, basePath))
	}
	return baseURLs
}

func extractEndpointsFromPath(path string, pathItem spec.PathItem, baseURLs []string) []Endpoint {
	var endpoints []Endpoint

	operations := map[string]*spec.Operation{
		"GET":     pathItem.Get,
		"POST":    pathItem.Post,
		"PUT":     pathItem.Put,
		"DELETE":  pathItem.Delete,
		"PATCH":   pathItem.Patch,
		"HEAD":    pathItem.Head,
		"OPTIONS": pathItem.Options,
	}

	for method, operation := range operations {
		if operation == nil {
			continue
		}

		endpoint := Endpoint{
			Path:        path,
			Method:      method,
			Summary:     operation.Summary,
			Description: operation.Description,
			Tags:        operation.Tags,
		}
		if len(baseURLs) > 0 {
			endpoint.BaseURL = baseURLs[0]
			endpoint.FullURL = buildFullURL(baseURLs[0], path)
		}
		endpoints = append(endpoints, endpoint)
	}
	return endpoints
}

// buildFullURL appends path to baseURL, keeping the base path.
func buildFullURL(baseURL, path string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + path
	}
	return base.JoinPath(path).String()
}
