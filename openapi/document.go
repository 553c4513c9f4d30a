package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-openapi/spec"

	"practicelab/mockapi"
)

// Info describes the generated document.
type Info struct {
	Title       string
	Version     string
	Description string
}

// DefaultInfo is used by the server and the docs export command.
var DefaultInfo = Info{
	Title:       "Practice API",
	Version:     "1.0.0",
	Description: "Mock endpoints for practicing browser automation against a slow backend.",
}

// Document generates a Swagger 2.0 description of every route in table,
// mounted under basePath.
func Document(table *mockapi.Table, basePath string, info Info) *spec.Swagger {
	doc := &spec.Swagger{
		SwaggerProps: spec.SwaggerProps{
			Swagger:  "2.0",
			BasePath: "/" + strings.Trim(basePath, "/"),
			Consumes: []string{"application/json"},
			Produces: []string{"application/json"},
			Info: &spec.Info{InfoProps: spec.InfoProps{
				Title:       info.Title,
				Version:     info.Version,
				Description: info.Description,
			}},
			Paths: &spec.Paths{Paths: map[string]spec.PathItem{}},
		},
	}

	for _, rt := range table.Routes() {
		path := swaggerPath(rt.Pattern)
		item := doc.Paths.Paths[path]
		op := operation(rt)

		switch rt.Method {
		case http.MethodGet:
			item.Get = op
		case http.MethodPost:
			item.Post = op
		case http.MethodPut:
			item.Put = op
		case http.MethodDelete:
			item.Delete = op
		case http.MethodPatch:
			item.Patch = op
		case http.MethodHead:
			item.Head = op
		case http.MethodOptions:
			item.Options = op
		}
		doc.Paths.Paths[path] = item
	}
	return doc
}

func operation(rt mockapi.Route) *spec.Operation {
	op := spec.NewOperation(rt.Name).WithSummary(rt.Summary)
	if rt.Tag != "" {
		op.WithTags(rt.Tag)
	}

	for _, name := range rt.ParamNames() {
		op.AddParam(spec.PathParam(name).Typed("integer", "int64").WithDescription(fmt.Sprintf("%s of the resource", name)))
	}
	if rt.Example != nil {
		body := spec.BodyParam("body", bodySchema(rt.Example, rt.Required))
		body.Required = len(rt.Required) > 0
		op.AddParam(body)
	}

	codes := make([]int, 0, len(rt.Statuses))
	for code := range rt.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		op.RespondsWith(code, spec.NewResponse().WithDescription(rt.Statuses[code]))
	}
	return op
}

func bodySchema(example map[string]any, required []string) *spec.Schema {
	schema := new(spec.Schema).Typed("object", "")
	schema.Required = required
	schema.Example = example
	for name, v := range example {
		var prop *spec.Schema
		switch v.(type) {
		case int, int64:
			prop = spec.Int64Property()
		case float64:
			prop = spec.Float64Property()
		case bool:
			prop = spec.BoolProperty()
		default:
			prop = spec.StringProperty()
		}
		prop.Example = v
		schema.SetProperty(name, *prop)
	}
	return schema
}

// swaggerPath turns /books/:id into /books/{id}.
func swaggerPath(pattern string) string {
	segments := strings.Split(strings.Trim(pattern, "/"), "/")
	for i, seg := range segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			segments[i] = "{" + name + "}"
		}
	}
	return "/" + strings.Join(segments, "/")
}
