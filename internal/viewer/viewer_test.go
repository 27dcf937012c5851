package viewer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avellaud/pictobank/internal/database/testutil"
	"github.com/avellaud/pictobank/internal/models"
)

func strPtr(s string) *string { return &s }

func TestTierOf(t *testing.T) {
	require.Equal(t, TierGlobal, TierOf(nil, false))
	require.Equal(t, TierGlobal, TierOf(nil, true))
	require.Equal(t, TierUserPublic, TierOf(strPtr("u1"), true))
	require.Equal(t, TierPrivate, TierOf(strPtr("u1"), false))
}

func TestIsVisibleTo(t *testing.T) {
	owner := strPtr("u1")

	require.True(t, IsVisibleTo(nil, false, Anonymous))
	require.True(t, IsVisibleTo(owner, true, Anonymous))
	require.False(t, IsVisibleTo(owner, false, Anonymous))

	require.True(t, IsVisibleTo(owner, false, Authenticated("u1")))
	require.False(t, IsVisibleTo(owner, false, Authenticated("u2")))
	require.True(t, IsVisibleTo(owner, true, Authenticated("u2")))
}

func TestOwnerMatches(t *testing.T) {
	owner := strPtr("u1")

	require.True(t, OwnerMatches(owner, Authenticated("u1")))
	require.False(t, OwnerMatches(owner, Authenticated("u2")))
	require.False(t, OwnerMatches(owner, Anonymous))
	require.False(t, OwnerMatches(nil, Authenticated("u1")), "global records match no viewer")
}

// Scope and IsVisibleTo must agree on every record, whichever viewer asks.
func TestScopeMatchesIsVisibleTo(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	folder := models.Folder{Name: "f", Path: "f"}
	require.NoError(t, db.Create(&folder).Error)

	records := []models.Pictogram{
		{Name: "global", Path: "f/global", FolderID: folder.ID},
		{Name: "shared", Path: "f/shared", FolderID: folder.ID, OwnerUserID: strPtr("u1"), IsPublic: true},
		{Name: "private", Path: "f/private", FolderID: folder.ID, OwnerUserID: strPtr("u1")},
		{Name: "other", Path: "f/other", FolderID: folder.ID, OwnerUserID: strPtr("u2")},
	}
	for i := range records {
		require.NoError(t, db.Create(&records[i]).Error)
	}

	viewers := []Viewer{Anonymous, Authenticated("u1"), Authenticated("u2"), Authenticated("u3")}
	for _, v := range viewers {
		var visible []models.Pictogram
		require.NoError(t, Scope(db.Model(&models.Pictogram{}), v).Find(&visible).Error)

		got := make(map[string]bool, len(visible))
		for _, p := range visible {
			got[p.Name] = true
		}

		for _, p := range records {
			require.Equal(t, IsVisibleTo(p.OwnerUserID, p.IsPublic, v), got[p.Name],
				"record %s for viewer %+v", p.Name, v)
		}
	}
}
