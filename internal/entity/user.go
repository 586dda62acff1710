package entity

// AdminUser is the administrative principal created before any data is seeded.
// Database is the database the principal is defined in.
type AdminUser struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Database string `json:"database"`
	Roles    []Role `json:"roles"`
}

type Role struct {
	Role string `json:"role" bson:"role"`
	DB   string `json:"db" bson:"db"`
}
