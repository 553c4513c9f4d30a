package codeanalysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practicelab/mockapi"
	"practicelab/state"
)

const sampleComponent = `import axios from 'axios'

// fetch('/ignored/in/comment')
export async function load(id) {
  const books = await fetch('/api/books')
  const one = await fetch(` + "`${API_URL}/api/books/${id}`" + `)
  await fetch('/api/login', { method: 'post', body })
  await axios.delete(` + "`/api/books/${id}`" + `)
  await axios.get('https://cdn.example.com/config.json')
  return fetch('/api/books')
}
`

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "Books.jsx"), []byte(sampleComponent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "notes.md"), []byte("fetch('/api/books')"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "lib", "index.js"), []byte("fetch('/api/productsList')"), 0o644))
	return dir
}

func TestAnalyzeDirectory(t *testing.T) {
	dir := writeTree(t)

	result, err := AnalyzeDirectory(dir)
	require.NoError(t, err)

	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join(dir, "src", "Books.jsx"), result.Files[0])
	require.Len(t, result.Endpoints, 5)

	byURL := map[string]EndpointUsage{}
	for _, ep := range result.Endpoints {
		byURL[ep.URL] = ep
	}
	assert.Equal(t, "POST", byURL["/api/login"].Method)
	assert.Equal(t, "fetch-method", byURL["/api/login"].Type)
	assert.Equal(t, 5, byURL["/api/books"].Line)
	assert.Equal(t, "DELETE", byURL["/api/books/${id}"].Method)
	assert.Contains(t, byURL, "https://cdn.example.com/config.json")
	assert.NotContains(t, byURL, "/ignored/in/comment")
	assert.NotContains(t, byURL, "/api/productsList")

	assert.Equal(t, 3, result.MethodCounts["GET"])
	assert.Len(t, result.UniqueURLs, 5)
}

func TestAnalyzeDirectory_MissingDir(t *testing.T) {
	_, err := AnalyzeDirectory(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	routes := mockapi.NewHandlers(state.NewStore(state.DefaultSeed())).Routes(mockapi.NoLatencies())

	got := Classify([]EndpointUsage{
		{URL: "/api/books", Method: "GET"},
		{URL: "${API_URL}/api/books/${id}", Method: "GET"},
		{URL: "http://localhost:5173/api/login?next=1", Method: "POST"},
		{URL: "/api/login", Method: "GET"},
		{URL: "/other/books", Method: "GET"},
		{URL: "https://cdn.example.com/config.json", Method: "GET"},
	}, routes, "/api/")

	want := []struct {
		path        string
		intercepted bool
		route       string
	}{
		{"/api/books", true, "getBooks"},
		{"/api/books/_", true, "getBookById"},
		{"/api/login", true, "login"},
		{"/api/login", false, ""},
		{"/other/books", false, ""},
		{"/config.json", false, ""},
	}
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.Equal(t, w.path, got[i].Path, "entry %d", i)
		assert.Equal(t, w.intercepted, got[i].Intercepted, "entry %d", i)
		assert.Equal(t, w.route, got[i].Route, "entry %d", i)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/books":                        "/books",
		"${BASE}/books":                 "/books",
		"http://localhost:8080/x/y?z=1": "/x/y",
		"/books/${book.id}#top":         "/books/_",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
