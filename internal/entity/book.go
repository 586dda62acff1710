package entity

// Book is one seeded document. ID is supplied by the seed data and is not
// required to be unique.
type Book struct {
	ID    int    `json:"id" bson:"id"`
	Title string `json:"title" bson:"title"`
}
