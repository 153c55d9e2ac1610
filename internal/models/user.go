package models

// User is the read-only view of an account needed to address notifications.
type User struct {
	ID    string `gorm:"column:id;primaryKey" json:"id"`
	Name  string `gorm:"column:name" json:"name"`
	Email string `gorm:"column:email" json:"email"`
}

func (User) TableName() string {
	return "users"
}
