package model

// Category is a taxonomy entry with its centroid embedding.
type Category struct {
	Slug   string    // stable identifier, derived once at load
	Name   string    // display name
	Group  string    // logic-group label, metadata only
	Vector []float32 // centroid embedding
}
