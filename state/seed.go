package state

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Seed is the initial content of every collection.
type Seed struct {
	Products []Product `yaml:"products"`
	Users    []User    `yaml:"users"`
	Books    []Book    `yaml:"books"`
}

// DefaultSeed returns the built-in demo data.
func DefaultSeed() Seed {
	return Seed{
		Products: []Product{
			{ID: 1, Name: "Blue Top", Price: 500, Category: "Tops", Brand: "Polo"},
			{ID: 2, Name: "Men Tshirt", Price: 400, Category: "Tshirts", Brand: "H&M"},
			{ID: 3, Name: "Sleeveless Dress", Price: 1000, Category: "Dress", Brand: "Madame"},
			{ID: 4, Name: "Stylish Dress", Price: 1500, Category: "Dress", Brand: "Madame"},
			{ID: 5, Name: "Winter Coat", Price: 3000, Category: "Coat", Brand: "Zara"},
			{ID: 6, Name: "Jeans", Price: 1200, Category: "Jeans", Brand: "Levis"},
			{ID: 7, Name: "Running Shoes", Price: 2500, Category: "Shoes", Brand: "Nike"},
		},
		Users: []User{
			{Email: "test@example.com", Password: "password123", Name: "Test User"},
		},
		Books: []Book{
			{ID: 1, Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565"},
			{ID: 2, Title: "1984", Author: "George Orwell", ISBN: "9780451524935"},
			{ID: 3, Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084"},
			{ID: 4, Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "9781503290563"},
		},
	}
}

// LoadSeed reads seed data from a YAML file. Collections missing from the
// file keep their built-in defaults.
func LoadSeed(path string) (Seed, error) {
	seed := DefaultSeed()
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}

	var fromFile Seed
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if fromFile.Products != nil {
		seed.Products = fromFile.Products
	}
	if fromFile.Users != nil {
		seed.Users = fromFile.Users
	}
	if fromFile.Books != nil {
		seed.Books = fromFile.Books
	}

	if err := seed.check(); err != nil {
		return Seed{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return seed, nil
}

func (s Seed) check() error {
	productIDs := make(map[int]bool, len(s.Products))
	for _, p := range s.Products {
		if p.ID < 1 || productIDs[p.ID] {
			return fmt.Errorf("product id %d is not a unique positive integer", p.ID)
		}
		productIDs[p.ID] = true
	}
	emails := make(map[string]bool, len(s.Users))
	for _, u := range s.Users {
		if u.Email == "" || emails[u.Email] {
			return fmt.Errorf("user email %q is empty or duplicated", u.Email)
		}
		emails[u.Email] = true
	}
	bookIDs := make(map[int]bool, len(s.Books))
	for _, b := range s.Books {
		if b.ID < 1 || bookIDs[b.ID] {
			return fmt.Errorf("book id %d is not a unique positive integer", b.ID)
		}
		bookIDs[b.ID] = true
	}
	return nil
}
