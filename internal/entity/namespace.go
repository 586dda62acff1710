package entity

// Namespace addresses one collection inside one application database.
type Namespace struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

func (n Namespace) String() string {
	return n.Database + "." + n.Collection
}
