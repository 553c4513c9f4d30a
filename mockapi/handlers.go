package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	apperrors "practicelab/errors"
	"practicelab/latency"
	"practicelab/state"
	"practicelab/validation"
)

// Order is synthesized per request and never stored.
type Order struct {
	ID         int    `json:"id"`
	Product    string `json:"product"`
	Quantity   int    `json:"quantity"`
	TotalPrice int    `json:"totalPrice"`
	CreatedAt  string `json:"createdAt"`
}

// UserView is the part of a user echoed back by login.
type UserView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type orderRequest struct {
	ProductID int `json:"productId" validate:"required"`
	Quantity  int `json:"quantity" validate:"required"`
}

type coded struct {
	ResponseCode int    `json:"responseCode"`
	Message      string `json:"message"`
}

type productsEnvelope struct {
	ResponseCode int             `json:"responseCode"`
	Products     []state.Product `json:"products"`
}

type loginEnvelope struct {
	ResponseCode int      `json:"responseCode"`
	Message      string   `json:"message"`
	User         UserView `json:"user"`
}

type orderEnvelope struct {
	ResponseCode int    `json:"responseCode"`
	Message      string `json:"message"`
	Order        Order  `json:"order"`
}

type message struct {
	Message string `json:"message"`
}

type deleteEnvelope struct {
	Message string     `json:"message"`
	Book    state.Book `json:"book"`
}

const maxBodyBytes = 1 << 20

// Handlers implements the mock endpoints on top of an injected store.
type Handlers struct {
	store    *state.Store
	validate *validation.Validator
	now      func() time.Time
	orderID  func() int
}

// NewHandlers creates the endpoint handlers for store.
func NewHandlers(store *state.Store) *Handlers {
	return &Handlers{
		store:    store,
		validate: validation.New(),
		now:      time.Now,
		orderID:  func() int { return rand.IntN(100000) },
	}
}

// Latencies picks the artificial delay of each endpoint family.
type Latencies struct {
	Shop  latency.Latency // login, products, orders
	Books latency.Latency
}

// DefaultLatencies is a 500-1000ms band for the shop endpoints and a fixed
// 500ms for books.
func DefaultLatencies() Latencies {
	return Latencies{
		Shop:  latency.Uniform{Min: 500 * time.Millisecond, Max: time.Second},
		Books: latency.Fixed(500 * time.Millisecond),
	}
}

// NoLatencies answers immediately.
func NoLatencies() Latencies {
	return Latencies{Shop: latency.None, Books: latency.None}
}

// Routes builds the route table of the mock API.
func (h *Handlers) Routes(lat Latencies) *Table {
	t := &Table{}
	t.Add(Route{
		Name: "login", Method: http.MethodPost, Pattern: "/login",
		Summary: "User Login", Tag: "Auth", Latency: lat.Shop, Handler: h.Login,
		Example:  map[string]any{"email": "test@example.com", "password": "password123"},
		Required: []string{"email", "password"},
		Statuses: map[int]string{200: "Login successful, returns user data.", 400: "Missing credentials.", 404: "User not found."},
	})
	t.Add(Route{
		Name: "products", Method: http.MethodGet, Pattern: "/productsList",
		Summary: "Get All Products", Tag: "Products", Latency: lat.Shop, Handler: h.ListProducts,
		Statuses: map[int]string{200: "Returns a list of products."},
	})
	t.Add(Route{
		Name: "createOrder", Method: http.MethodPost, Pattern: "/createOrder",
		Summary: "Create Order", Tag: "Order", Latency: lat.Shop, Handler: h.CreateOrder,
		Example:  map[string]any{"productId": 1, "quantity": 2},
		Required: []string{"productId", "quantity"},
		Statuses: map[int]string{201: "Order created successfully.", 400: "Invalid input.", 404: "Product not found."},
	})
	t.Add(Route{
		Name: "getBooks", Method: http.MethodGet, Pattern: "/books",
		Summary: "Get All Books", Tag: "Books", Latency: lat.Books, Handler: h.ListBooks,
		Statuses: map[int]string{200: "List of books"},
	})
	t.Add(Route{
		Name: "getBookById", Method: http.MethodGet, Pattern: "/books/:id",
		Summary: "Get Book by ID", Tag: "Books", Latency: lat.Books, Handler: h.GetBook,
		Statuses: map[int]string{200: "Book details", 404: "Book not found"},
	})
	t.Add(Route{
		Name: "createBook", Method: http.MethodPost, Pattern: "/books",
		Summary: "Create New Book", Tag: "Books", Latency: lat.Books, Handler: h.CreateBook,
		Example:  map[string]any{"title": "New Book Title", "author": "Author Name", "isbn": "9780000000000"},
		Required: []string{"title", "author"},
		Statuses: map[int]string{201: "Book created", 400: "Invalid input"},
	})
	t.Add(Route{
		Name: "updateBook", Method: http.MethodPut, Pattern: "/books/:id",
		Summary: "Update Book", Tag: "Books", Latency: lat.Books, Handler: h.UpdateBook,
		Example: map[string]any{"title": "Updated Title", "author": "Updated Author"},
		Statuses: map[int]string{200: "Book updated", 404: "Book not found"},
	})
	t.Add(Route{
		Name: "deleteBook", Method: http.MethodDelete, Pattern: "/books/:id",
		Summary: "Delete Book", Tag: "Books", Latency: lat.Books, Handler: h.DeleteBook,
		Statuses: map[int]string{200: "Book deleted", 404: "Book not found"},
	})
	return t
}

// Login echoes the seeded user matching both email and password.
func (h *Handlers) Login(r *http.Request, _ Params) Response {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return Response{http.StatusBadRequest, coded{http.StatusBadRequest, "Bad Request: malformed JSON body"}}
	}
	if err := h.validate.Validate(req); err != nil {
		return Response{http.StatusBadRequest, coded{http.StatusBadRequest, "Bad Request: Missing email or password"}}
	}

	// Unknown email and wrong password are deliberately indistinguishable.
	user, ok := h.store.FindUser(req.Email, req.Password)
	if !ok {
		return Response{http.StatusNotFound, coded{http.StatusNotFound, "User not found!"}}
	}
	return Response{http.StatusOK, loginEnvelope{
		ResponseCode: http.StatusOK,
		Message:      "User exists!",
		User:         UserView{Name: user.Name, Email: user.Email},
	}}
}

// ListProducts returns the whole catalog.
func (h *Handlers) ListProducts(_ *http.Request, _ Params) Response {
	return Response{http.StatusOK, productsEnvelope{ResponseCode: http.StatusOK, Products: h.store.ListProducts()}}
}

// CreateOrder prices an order for an existing product.
func (h *Handlers) CreateOrder(r *http.Request, _ Params) Response {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		return Response{http.StatusBadRequest, coded{http.StatusBadRequest, "Bad Request: malformed JSON body"}}
	}
	if err := h.validate.Validate(req); err != nil {
		return Response{http.StatusBadRequest, coded{http.StatusBadRequest, "Bad Request: Missing productId or quantity"}}
	}

	product, ok := h.store.GetProduct(req.ProductID)
	if !ok {
		return Response{http.StatusNotFound, coded{http.StatusNotFound, "Product not found"}}
	}
	if req.Quantity < 0 {
		return Response{http.StatusBadRequest, coded{http.StatusBadRequest, "Bad Request: quantity must be a positive integer"}}
	}

	return Response{http.StatusCreated, orderEnvelope{
		ResponseCode: http.StatusCreated,
		Message:      "Order created successfully!",
		Order: Order{
			ID:         h.orderID(),
			Product:    product.Name,
			Quantity:   req.Quantity,
			TotalPrice: product.Price * req.Quantity,
			CreatedAt:  h.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		},
	}}
}

// ListBooks returns every book in insertion order.
func (h *Handlers) ListBooks(_ *http.Request, _ Params) Response {
	return Response{http.StatusOK, h.store.ListBooks()}
}

// GetBook returns one book.
func (h *Handlers) GetBook(_ *http.Request, params Params) Response {
	id, ok := bookID(params)
	if !ok {
		return bookNotFound()
	}
	book, err := h.store.GetBook(id)
	if err != nil {
		return bookError(err)
	}
	return Response{http.StatusOK, book}
}

// CreateBook stores a new book.
func (h *Handlers) CreateBook(r *http.Request, _ Params) Response {
	var in state.BookInput
	if err := decodeJSON(r, &in); err != nil {
		return bookError(err)
	}
	if err := h.validate.Validate(in); err != nil {
		return bookError(err)
	}
	book, err := h.store.AddBook(in)
	if err != nil {
		return bookError(err)
	}
	return Response{http.StatusCreated, book}
}

// UpdateBook merges the request body over an existing book.
func (h *Handlers) UpdateBook(r *http.Request, params Params) Response {
	var patch state.BookPatch
	if err := decodeJSON(r, &patch); err != nil {
		return bookError(err)
	}
	id, ok := bookID(params)
	if !ok {
		return bookNotFound()
	}
	book, err := h.store.UpdateBook(id, patch)
	if err != nil {
		return bookError(err)
	}
	return Response{http.StatusOK, book}
}

// DeleteBook removes a book and returns it.
func (h *Handlers) DeleteBook(_ *http.Request, params Params) Response {
	id, ok := bookID(params)
	if !ok {
		return bookNotFound()
	}
	book, err := h.store.DeleteBook(id)
	if err != nil {
		return bookError(err)
	}
	return Response{http.StatusOK, deleteEnvelope{Message: "Book deleted successfully", Book: book}}
}

// bookID coerces the :id parameter. Anything non-numeric matches no book.
func bookID(params Params) (int, bool) {
	id, err := strconv.Atoi(params["id"])
	return id, err == nil
}

func bookNotFound() Response {
	return Response{http.StatusNotFound, message{"Book not found"}}
}

func bookError(err error) Response {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return bookNotFound()
	case errors.Is(err, apperrors.ErrValidation):
		return Response{http.StatusBadRequest, message{"Title and Author are required"}}
	case errors.Is(err, apperrors.ErrMalformedRequest):
		return Response{http.StatusBadRequest, message{"Malformed JSON body"}}
	default:
		return Response{apperrors.StatusOf(err), message{err.Error()}}
	}
}

// decodeJSON reads exactly one JSON value from the body. An empty body, invalid
// JSON, trailing data and type mismatches all come back as MALFORMED_REQUEST.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperrors.Malformed(io.EOF)
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return apperrors.Malformed(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperrors.Malformed(errors.New("unexpected data after JSON body"))
	}
	return nil
}
