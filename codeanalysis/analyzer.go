// Package codeanalysis finds the HTTP calls a front-end makes and works out
// which of them the mock server would answer.
package codeanalysis

import (
	"bufio"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"practicelab/mockapi"
)

// EndpointUsage is an API call found in source code.
type EndpointUsage struct {
	URL     string `json:"url"`
	Method  string `json:"method"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Context string `json:"context"`
	Type    string `json:"type"` // "fetch", "axios-get", ...
}

// CodeAnalysisResult contains discovered endpoints and metadata.
type CodeAnalysisResult struct {
	Endpoints    []EndpointUsage `json:"endpoints"`
	Files        []string        `json:"files"`
	Skipped      []string        `json:"skipped,omitempty"`
	UniqueURLs   []string        `json:"uniqueUrls"`
	MethodCounts map[string]int  `json:"methodCounts"`
	Source       string          `json:"source"`
}

// Classified is an endpoint usage checked against the route table.
type Classified struct {
	EndpointUsage
	Path        string `json:"path"`
	Intercepted bool   `json:"intercepted"`
	Route       string `json:"route,omitempty"`
}

var extensions = map[string]bool{
	".js":   true,
	".jsx":  true,
	".ts":   true,
	".tsx":  true,
	".vue":  true,
	".html": true,
}

var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".next":        true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	"vendor":       true,
}

const quoted = `['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`

var patterns = []struct {
	name    string
	pattern *regexp.Regexp
	method  string
}{
	{"fetch-method", regexp.MustCompile(`fetch\s*\(\s*` + quoted + `.*method\s*:\s*['"]([A-Za-z]+)['"]`), ""},
	{"fetch", regexp.MustCompile(`fetch\s*\(\s*` + quoted), "GET"},
	{"axios-get", regexp.MustCompile(`axios\.get\s*\(\s*` + quoted), "GET"},
	{"axios-post", regexp.MustCompile(`axios\.post\s*\(\s*` + quoted), "POST"},
	{"axios-put", regexp.MustCompile(`axios\.put\s*\(\s*` + quoted), "PUT"},
	{"axios-delete", regexp.MustCompile(`axios\.delete\s*\(\s*` + quoted), "DELETE"},
}

var templateExpr = regexp.MustCompile(`\$\{[^}]*\}`)

// AnalyzeDirectory scans rootDir for front-end sources and extracts API calls.
// Files that cannot be read are listed in Skipped.
func AnalyzeDirectory(rootDir string) (*CodeAnalysisResult, error) {
	result := &CodeAnalysisResult{
		Endpoints:    []EndpointUsage{},
		Files:        []string{},
		MethodCounts: make(map[string]int),
		Source:       rootDir,
	}

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootDir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		endpoints, err := analyzeFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, path)
			return nil
		}
		if len(endpoints) > 0 {
			result.Files = append(result.Files, path)
			result.Endpoints = append(result.Endpoints, endpoints...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", rootDir, err)
	}

	result.UniqueURLs = extractUniqueURLs(result.Endpoints)
	result.MethodCounts = countMethods(result.Endpoints)

	sort.SliceStable(result.Endpoints, func(i, j int) bool {
		if result.Endpoints[i].URL == result.Endpoints[j].URL {
			return result.Endpoints[i].Method < result.Endpoints[j].Method
		}
		return result.Endpoints[i].URL < result.Endpoints[j].URL
	})
	return result, nil
}

// Classify checks each usage against the route table mounted at basePath.
func Classify(endpoints []EndpointUsage, table *mockapi.Table, basePath string) []Classified {
	base := "/" + strings.Trim(basePath, "/")
	out := make([]Classified, 0, len(endpoints))
	for _, ep := range endpoints {
		c := Classified{EndpointUsage: ep, Path: normalizePath(ep.URL)}
		if rel, ok := relativeTo(c.Path, base); ok {
			if rt, _, ok := table.Match(ep.Method, rel); ok {
				c.Intercepted = true
				c.Route = rt.Name
			}
		}
		out = append(out, c)
	}
	return out
}

func analyzeFile(filePath string) ([]EndpointUsage, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var endpoints []EndpointUsage
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") {
			continue
		}

		// fetch-method is listed first; a line it matches is not re-read as a plain fetch.
		matchedFetch := false
		for _, p := range patterns {
			if p.name == "fetch" && matchedFetch {
				continue
			}
			for _, match := range p.pattern.FindAllStringSubmatch(line, -1) {
				method := p.method
				if p.name == "fetch-method" {
					method = strings.ToUpper(match[2])
					matchedFetch = true
				}
				if !isValidEndpointURL(match[1]) {
					continue
				}
				endpoints = append(endpoints, EndpointUsage{
					URL:     match[1],
					Method:  method,
					File:    filePath,
					Line:    lineNumber,
					Context: trimmed,
					Type:    p.name,
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return deduplicateEndpoints(endpoints), nil
}

// isValidEndpointURL accepts absolute http(s) URLs, rooted paths and template
// literals that start with an expression such as ${API_URL}/books.
func isValidEndpointURL(s string) bool {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		_, err := url.Parse(templateExpr.ReplaceAllString(s, "x"))
		return err == nil
	}
	if strings.HasPrefix(s, "${") {
		return strings.Contains(s, "/") && !strings.Contains(s, " ")
	}
	return strings.HasPrefix(s, "/") && len(s) > 1 && !strings.Contains(s, " ")
}

// normalizePath reduces a call site URL to a request path: scheme, host, query
// and a leading template expression go; inner expressions become one segment.
func normalizePath(raw string) string {
	s := raw
	if loc := templateExpr.FindStringIndex(s); loc != nil && loc[0] == 0 {
		s = s[loc[1]:]
	}
	s = templateExpr.ReplaceAllString(s, "_")
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Path
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}

func relativeTo(path, base string) (string, bool) {
	if base == "/" {
		return path, true
	}
	if path == base {
		return "/", true
	}
	if rest, ok := strings.CutPrefix(path, base+"/"); ok {
		return "/" + rest, true
	}
	return "", false
}

func deduplicateEndpoints(endpoints []EndpointUsage) []EndpointUsage {
	seen := make(map[string]bool)
	var result []EndpointUsage
	for _, ep := range endpoints {
		key := ep.URL + "|" + ep.Method + "|" + ep.File
		if !seen[key] {
			seen[key] = true
			result = append(result, ep)
		}
	}
	return result
}

func extractUniqueURLs(endpoints []EndpointUsage) []string {
	urlSet := make(map[string]bool)
	for _, ep := range endpoints {
		urlSet[ep.URL] = true
	}
	urls := make([]string, 0, len(urlSet))
	for u := range urlSet {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func countMethods(endpoints []EndpointUsage) map[string]int {
	counts := make(map[string]int)
	for _, ep := range endpoints {
		counts[ep.Method]++
	}
	return counts
}
