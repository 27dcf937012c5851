package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestFolderIsRoot(t *testing.T) {
	parent := "parent-id"

	root := Folder{Name: "alice", Path: "alice"}
	require.True(t, root.IsRoot())

	child := Folder{Name: "animals", Path: "alice/animals", ParentID: &parent}
	require.False(t, child.IsRoot())
}

func TestArtifactPayloadPictogramIDs(t *testing.T) {
	payload := ArtifactPayload{
		Roots: []ArtifactNode{
			{
				Type:        NodeTypePictogram,
				PictogramID: "p1",
				Children: []ArtifactNode{
					{Type: NodeTypePictogram, PictogramID: "p2"},
				},
			},
			{
				Type:  NodeTypeGroup,
				Label: "morning routine",
				Children: []ArtifactNode{
					{Type: NodeTypePictogram, PictogramID: "p3"},
					{Type: NodeTypePictogram, PictogramID: "p1"}, // duplicate
				},
			},
		},
	}

	require.Equal(t, []string{"p1", "p2", "p3"}, payload.PictogramIDs())
}

func TestArtifactPayloadPictogramIDsEmpty(t *testing.T) {
	var payload ArtifactPayload
	require.Empty(t, payload.PictogramIDs())
}

func TestArtifactDecodePayload(t *testing.T) {
	raw, err := json.Marshal(ArtifactPayload{
		Roots: []ArtifactNode{{Type: NodeTypePictogram, PictogramID: "p9"}},
	})
	require.NoError(t, err)

	artifact := Artifact{Kind: ArtifactKindTree, Name: "routines", Payload: datatypes.JSON(raw)}
	decoded, err := artifact.DecodePayload()
	require.NoError(t, err)
	require.Len(t, decoded.Roots, 1)
	require.Equal(t, "p9", decoded.Roots[0].PictogramID)
}

func TestArtifactDecodePayloadEmpty(t *testing.T) {
	artifact := Artifact{Kind: ArtifactKindList, Name: "empty"}
	decoded, err := artifact.DecodePayload()
	require.NoError(t, err)
	require.Empty(t, decoded.Roots)
}

func TestArtifactDecodePayloadInvalid(t *testing.T) {
	artifact := Artifact{Kind: ArtifactKindList, Name: "broken", Payload: datatypes.JSON(`{`)}
	_, err := artifact.DecodePayload()
	require.Error(t, err)
}
