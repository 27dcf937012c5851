package models

// User is the minimal account record the store needs in order to provision
// per-owner root folders. Session and profile management live outside the store.
type User struct {
	BaseModel

	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
}
