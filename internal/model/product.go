package model

// Product is a catalog entry. Title is unique per owner.
//
// Photo holds the generated file name inside the photo directory, never a
// path. It is nil when no photo has been uploaded.
type Product struct {
	ID          int64   `json:"id"          db:"id"`
	UserID      int64   `json:"user_id"     db:"user_id"`
	Title       string  `json:"title"       db:"title"`
	Description *string `json:"description" db:"description"`
	Price       float64 `json:"price"       db:"price"`
	Photo       *string `json:"photo"       db:"photo"`
}
