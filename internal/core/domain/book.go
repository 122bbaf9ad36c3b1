package domain

import "time"

// Book represents a catalog entry. Books are created by catalog ingestion
// and are read-only from the engine's perspective, except for chunk
// regeneration during embedding.
type Book struct {
	// ID is the unique identifier for the book.
	ID string

	// Title is the book title.
	Title string

	// Description is the catalog description, possibly empty.
	Description string

	// PublishedAt is the publication date.
	PublishedAt time.Time

	// ImageURL references the cover image.
	ImageURL string

	// Authors are the book's authors (many-to-many).
	Authors []Author

	// Categories are the book's categories (many-to-many).
	Categories []Category

	// Publisher is the book's publisher.
	Publisher Publisher
}

// VectorText returns the string the embedding pipeline vectorises for a
// book: title plus description.
func (b Book) VectorText() string {
	if b.Description == "" {
		return b.Title
	}
	return b.Title + " " + b.Description
}

// Author is a book author.
type Author struct {
	ID   string
	Name string
}

// Category is a book category.
type Category struct {
	ID   string
	Name string
}

// Publisher is a book publisher.
type Publisher struct {
	ID   string
	Name string
}

// Chunk is a bounded-length slice of a book's text, embedded independently
// for fine-grained semantic retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// BookID links to the owning Book.
	BookID string

	// Index is the 0-based, contiguous position within the book's text.
	// Chunk order is stable and reflects source-text order.
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation. Nil until computed; content
	// and embedding are always regenerated together.
	Embedding []float32
}
