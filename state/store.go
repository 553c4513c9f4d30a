package state

import (
	"slices"
	"sync"

	apperrors "practicelab/errors"
)

// Product is an immutable catalog entry. Price is in minor currency units.
type Product struct {
	ID       int    `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Price    int    `json:"price" yaml:"price"`
	Category string `json:"category" yaml:"category"`
	Brand    string `json:"brand" yaml:"brand"`
}

// User is a demo account. Passwords are plaintext on purpose.
type User struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"-" yaml:"password"`
	Name     string `json:"name" yaml:"name"`
}

// Book is the one mutable resource.
type Book struct {
	ID     int    `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	ISBN   string `json:"isbn,omitempty" yaml:"isbn"`
}

// BookInput carries the fields of a new book.
type BookInput struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	ISBN   string `json:"isbn,omitempty"`
}

// BookPatch is a partial update; nil fields are left untouched.
type BookPatch struct {
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
	ISBN   *string `json:"isbn,omitempty"`
}

// Store holds the in-memory collections. Every method runs under the lock for
// its whole duration, so each mutation is atomic with respect to other requests.
type Store struct {
	mu       sync.RWMutex
	seed     Seed
	products []Product
	users    []User
	books    []Book
}

// NewStore creates a store populated from seed.
func NewStore(seed Seed) *Store {
	s := &Store{seed: seed}
	s.Reset()
	return s
}

// Reset restores every collection to the seed.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = slices.Clone(s.seed.Products)
	s.users = slices.Clone(s.seed.Users)
	s.books = slices.Clone(s.seed.Books)
}

// ListProducts returns the catalog in seed order.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products)
}

// GetProduct looks a product up by id.
func (s *Store) GetProduct(id int) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// FindUser returns the user whose email and password both match exactly.
func (s *Store) FindUser(email, password string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email && u.Password == password {
			return u, true
		}
	}
	return User{}, false
}

// ListBooks returns the books in insertion order.
func (s *Store) ListBooks() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.books)
}

// GetBook returns the book with the given id.
func (s *Store) GetBook(id int) (Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return Book{}, apperrors.NotFoundf("book %d not found", id)
	}
	return s.books[i], nil
}

// AddBook stores a new book under the next free id.
func (s *Store) AddBook(in BookInput) (Book, error) {
	if in.Title == "" || in.Author == "" {
		return Book{}, apperrors.Validation("title and author are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	book := Book{ID: s.nextID(), Title: in.Title, Author: in.Author, ISBN: in.ISBN}
	s.books = append(s.books, book)
	return book, nil
}

// UpdateBook merges the present fields of patch over the stored book.
func (s *Store) UpdateBook(id int, patch BookPatch) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Book{}, apperrors.NotFoundf("book %d not found", id)
	}

	b := &s.books[i]
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Author != nil {
		b.Author = *patch.Author
	}
	if patch.ISBN != nil {
		b.ISBN = *patch.ISBN
	}
	return *b, nil
}

// DeleteBook removes a book and returns what was removed.
func (s *Store) DeleteBook(id int) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Book{}, apperrors.NotFoundf("book %d not found", id)
	}
	removed := s.books[i]
	s.books = slices.Delete(s.books, i, i+1)
	return removed, nil
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id int) int {
	return slices.IndexFunc(s.books, func(b Book) bool { return b.ID == id })
}

// nextID is max(existing)+1, or 1 for an empty collection.
func (s *Store) nextID() int {
	highest := 0
	for _, b := range s.books {
		highest = max(highest, b.ID)
	}
	return highest + 1
}
