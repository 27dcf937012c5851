package models

// Pictogram is a stored symbol image. Path mirrors the physical file location
// relative to the mirror root. OwnerUserID NULL marks global content; owned
// content is private unless IsPublic is set.
type Pictogram struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Path        string  `gorm:"uniqueIndex;not null" json:"path"`
	Description string  `json:"description"`
	OwnerUserID *string `gorm:"type:uuid;index" json:"owner_user_id"`
	FolderID    string  `gorm:"type:uuid;index;not null" json:"folder_id"`
	IsPublic    bool    `gorm:"default:false" json:"is_public"`
}
