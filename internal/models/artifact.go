package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

// Artifact kinds.
const (
	ArtifactKindTree = "tree"
	ArtifactKindList = "list"
)

// Artifact is a named composite document (ordered tree or sequential list)
// referencing pictograms by id. Name is unique per (owner, kind) so saving
// under an existing name overwrites in place. The payload is nested structured
// data; referenced pictogram ids are validated at write time, not by the schema.
type Artifact struct {
	BaseModel

	OwnerUserID string         `gorm:"type:uuid;index:idx_artifact_owner_kind_name,unique;not null" json:"owner_user_id"`
	Kind        string         `gorm:"index:idx_artifact_owner_kind_name,unique;not null" json:"kind"`
	Name        string         `gorm:"index:idx_artifact_owner_kind_name,unique;not null" json:"name"`
	IsPublic    bool           `gorm:"default:false" json:"is_public"`
	Payload     datatypes.JSON `json:"payload"`
}

// ArtifactNode is one element of an artifact payload: either a pictogram
// reference or a group holding ordered children (tree nesting, list steps).
type ArtifactNode struct {
	Type        string         `json:"type"`
	PictogramID string         `json:"pictogram_id,omitempty"`
	Label       string         `json:"label,omitempty"`
	Children    []ArtifactNode `json:"children,omitempty"`
}

// Node types used inside artifact payloads.
const (
	NodeTypePictogram = "pictogram"
	NodeTypeGroup     = "group"
)

// ArtifactPayload is the decoded form of Artifact.Payload.
type ArtifactPayload struct {
	Roots []ArtifactNode `json:"roots"`
}

// DecodePayload parses the stored payload.
func (a *Artifact) DecodePayload() (*ArtifactPayload, error) {
	var payload ArtifactPayload
	if len(a.Payload) == 0 {
		return &payload, nil
	}
	if err := json.Unmarshal(a.Payload, &payload); err != nil {
		return nil, fmt.Errorf("artifact %s: decode payload: %w", a.ID, err)
	}
	return &payload, nil
}

// PictogramIDs walks the payload and returns every referenced pictogram id,
// de-duplicated, in first-visit order.
func (p *ArtifactPayload) PictogramIDs() []string {
	if p == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string

	var walk func(nodes []ArtifactNode)
	walk = func(nodes []ArtifactNode) {
		for _, node := range nodes {
			if node.Type == NodeTypePictogram && node.PictogramID != "" {
				if _, ok := seen[node.PictogramID]; !ok {
					seen[node.PictogramID] = struct{}{}
					ids = append(ids, node.PictogramID)
				}
			}
			if len(node.Children) > 0 {
				walk(node.Children)
			}
		}
	}
	walk(p.Roots)

	return ids
}
