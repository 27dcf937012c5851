package models

// Folder is a node of the hierarchical pictogram namespace. Exactly one root
// folder exists per distinct owner value, including the global root whose
// OwnerUserID is NULL. A root has a NULL ParentID; every other folder has a
// parent. Path is the POSIX-style location relative to the mirror root and is
// unique across the whole store.
type Folder struct {
	BaseModel

	Name        string  `gorm:"not null" json:"name"`
	Path        string  `gorm:"uniqueIndex;not null" json:"path"`
	OwnerUserID *string `gorm:"type:uuid;index" json:"owner_user_id"`
	ParentID    *string `gorm:"type:uuid;index" json:"parent_id"`

	Children   []Folder    `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	Pictograms []Pictogram `gorm:"foreignKey:FolderID" json:"pictograms,omitempty"`
}

// IsRoot reports whether the folder is an owner root. Roots are provisioned,
// never user-created, and never deletable.
func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}
