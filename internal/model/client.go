package model

// Client is a contact owned by exactly one user. Orders may point at a client;
// removing the client clears that link instead of removing the orders.
type Client struct {
	ID        int64   `json:"id"         db:"id"`
	UserID    int64   `json:"user_id"    db:"user_id"`
	FirstName string  `json:"first_name" db:"first_name"`
	LastName  *string `json:"last_name"  db:"last_name"`
	Phone     *string `json:"phone"      db:"phone"`
}
