package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"practicelab/latency"
	"practicelab/logger"
	"practicelab/reqlog"
	"practicelab/state"
)

type testAPI struct {
	store  *state.Store
	log    *reqlog.Log
	server *httptest.Server
}

func setupTestAPI(t *testing.T, lat Latencies, opts Options) *testAPI {
	t.Helper()
	store := state.NewStore(state.DefaultSeed())
	h := NewHandlers(store)
	h.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6e6, time.UTC) }
	h.orderID = func() int { return 4242 }

	if opts.Log == nil {
		opts.Log = reqlog.New(50)
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	srv := httptest.NewServer(NewInterceptor(h.Routes(lat), opts))
	t.Cleanup(srv.Close)
	return &testAPI{store: store, log: opts.Log, server: srv}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.server.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestLogin(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	status, body := api.do(t, http.MethodPost, "/login", map[string]string{"email": "test@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, status)
	ok := decode[loginEnvelope](t, body)
	assert.Equal(t, 200, ok.ResponseCode)
	assert.Equal(t, "User exists!", ok.Message)
	assert.Equal(t, UserView{Name: "Test User", Email: "test@example.com"}, ok.User)
	assert.NotContains(t, string(body), "password123")

	status, body = api.do(t, http.MethodPost, "/login", map[string]string{"email": "test@example.com", "password": "nope"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"responseCode":404,"message":"User not found!"}`, string(body))

	status, _ = api.do(t, http.MethodPost, "/login", map[string]string{"email": "nobody@example.com", "password": "password123"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(t, http.MethodPost, "/login", map[string]string{"email": "test@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 400, decode[coded](t, body).ResponseCode)

	status, _ = api.do(t, http.MethodPost, "/login", "{oops")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListProducts(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	status, body := api.do(t, http.MethodGet, "/productsList", nil)
	require.Equal(t, http.StatusOK, status)
	env := decode[productsEnvelope](t, body)
	assert.Equal(t, 200, env.ResponseCode)
	assert.Equal(t, state.DefaultSeed().Products, env.Products)
}

func TestCreateOrder_TotalPrice(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	for _, p := range state.DefaultSeed().Products {
		for _, qty := range []int{1, 3, 17} {
			status, body := api.do(t, http.MethodPost, "/createOrder", map[string]int{"productId": p.ID, "quantity": qty})
			require.Equal(t, http.StatusCreated, status)
			env := decode[orderEnvelope](t, body)
			assert.Equal(t, 201, env.ResponseCode)
			assert.Equal(t, Order{
				ID:         4242,
				Product:    p.Name,
				Quantity:   qty,
				TotalPrice: p.Price * qty,
				CreatedAt:  "2026-01-02T03:04:05.006Z",
			}, env.Order)
		}
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	for _, qty := range []int{1, 2, 1000, -5} {
		status, body := api.do(t, http.MethodPost, "/createOrder", map[string]int{"productId": 99, "quantity": qty})
		assert.Equal(t, http.StatusNotFound, status, "quantity %d", qty)
		assert.JSONEq(t, `{"responseCode":404,"message":"Product not found"}`, string(body))
	}
}

func TestCreateOrder_BadInput(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	for name, body := range map[string]any{
		"missing quantity":  map[string]int{"productId": 1},
		"missing product":   map[string]int{"quantity": 1},
		"zero quantity":     map[string]int{"productId": 1, "quantity": 0},
		"negative quantity": map[string]int{"productId": 1, "quantity": -2},
		"string id":         `{"productId":"1","quantity":1}`,
		"fractional":        `{"productId":1,"quantity":1.5}`,
		"empty body":        "",
	} {
		status, _ := api.do(t, http.MethodPost, "/createOrder", body)
		assert.Equal(t, http.StatusBadRequest, status, name)
	}

	// Zero counts as missing, so it is rejected before the product lookup.
	status, _ := api.do(t, http.MethodPost, "/createOrder", map[string]int{"productId": 99, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCreateOrder_ConcurrentCallsStayIndependent(t *testing.T) {
	api := setupTestAPI(t, Latencies{Shop: latency.Uniform{Min: time.Millisecond, Max: 30 * time.Millisecond}, Books: latency.None}, Options{})
	products := state.DefaultSeed().Products

	var wg sync.WaitGroup
	for i := range 20 {
		p := products[i%len(products)]
		qty := i + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, body := api.do(t, http.MethodPost, "/createOrder", map[string]int{"productId": p.ID, "quantity": qty})
			if assert.Equal(t, http.StatusCreated, status) {
				order := decode[orderEnvelope](t, body).Order
				assert.Equal(t, p.Name, order.Product)
				assert.Equal(t, p.Price*qty, order.TotalPrice)
			}
		}()
	}
	wg.Wait()
}

func TestBooks_CRUD(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	status, body := api.do(t, http.MethodGet, "/books", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]state.Book](t, body), 4)

	status, body = api.do(t, http.MethodPost, "/books", map[string]string{"title": "Dune", "author": "Frank Herbert"})
	require.Equal(t, http.StatusCreated, status)
	created := decode[state.Book](t, body)
	assert.Equal(t, state.Book{ID: 5, Title: "Dune", Author: "Frank Herbert"}, created)

	status, body = api.do(t, http.MethodGet, "/books/5", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created, decode[state.Book](t, body))

	status, body = api.do(t, http.MethodPut, "/books/5", map[string]string{"title": "Dune Messiah"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, state.Book{ID: 5, Title: "Dune Messiah", Author: "Frank Herbert"}, decode[state.Book](t, body))

	status, body = api.do(t, http.MethodDelete, "/books/5", nil)
	require.Equal(t, http.StatusOK, status)
	del := decode[deleteEnvelope](t, body)
	assert.Equal(t, "Book deleted successfully", del.Message)
	assert.Equal(t, 5, del.Book.ID)

	status, body = api.do(t, http.MethodGet, "/books/5", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"message":"Book not found"}`, string(body))
}

func TestBooks_IDsCoercedNumerically(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	status, body := api.do(t, http.MethodGet, "/books/002", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1984", decode[state.Book](t, body).Title)

	status, _ = api.do(t, http.MethodGet, "/books/abc", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBooks_Failures(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	status, body := api.do(t, http.MethodPost, "/books", map[string]string{"title": "No Author"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"Title and Author are required"}`, string(body))

	status, _ = api.do(t, http.MethodPost, "/books", "not json")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = api.do(t, http.MethodPost, "/books", `{"title":"a","author":"b"}garbage`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"Malformed JSON body"}`, string(body))

	status, _ = api.do(t, http.MethodPost, "/login", `{"email":"test@example.com","password":"password123"}{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodPut, "/books/77", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(t, http.MethodDelete, "/books/77", nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Len(t, api.store.ListBooks(), 4)
}

func TestBooks_UpdateIgnoresID(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	status, body := api.do(t, http.MethodPut, "/books/1", map[string]any{"id": 3, "author": "Fitzgerald"})
	require.Equal(t, http.StatusOK, status)
	b := decode[state.Book](t, body)
	assert.Equal(t, 1, b.ID)
	assert.Equal(t, "The Great Gatsby", b.Title)
	assert.Equal(t, "Fitzgerald", b.Author)
}

func TestBooks_SequentialIDs(t *testing.T) {
	api := setupTestAPI(t, NoLatencies(), Options{})

	for want := 5; want < 10; want++ {
		status, body := api.do(t, http.MethodPost, "/books", map[string]string{"title": fmt.Sprint(want), "author": "a"})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, want, decode[state.Book](t, body).ID)
	}
}
