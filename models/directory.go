package models

import "time"

// Authors, publishers, genres and suppliers are plain reference data. Books
// link to authors and genres through join tables and to one publisher;
// stock imports name the supplier they came from.

type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthorRequest struct {
	Name string `json:"name" binding:"required,max=255"`
	Bio  string `json:"bio" binding:"max=5000"`
}

func (r AuthorRequest) Author() *Author {
	return &Author{Name: r.Name, Bio: r.Bio}
}

type Publisher struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Website   string    `json:"website"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PublisherRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Address string `json:"address" binding:"max=255"`
	Website string `json:"website" binding:"omitempty,url,max=255"`
}

func (r PublisherRequest) Publisher() *Publisher {
	return &Publisher{Name: r.Name, Address: r.Address, Website: r.Website}
}

type Genre struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type GenreRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

func (r GenreRequest) Genre() *Genre {
	return &Genre{Name: r.Name, Description: r.Description}
}

type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SupplierRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Phone   string `json:"phone" binding:"max=20"`
	Email   string `json:"email" binding:"omitempty,email,max=255"`
	Address string `json:"address" binding:"max=255"`
}

func (r SupplierRequest) Supplier() *Supplier {
	return &Supplier{Name: r.Name, Phone: r.Phone, Email: r.Email, Address: r.Address}
}
