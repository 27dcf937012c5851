package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avellaud/pictobank/internal/database/testutil"
	"github.com/avellaud/pictobank/internal/models"
	"github.com/avellaud/pictobank/internal/storage"
)

func TestNewRepairerRequiresDeps(t *testing.T) {
	_, err := NewRepairer(nil, nil)
	require.Error(t, err)
}

func TestRunOnceRecreatesMissingDirectories(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	mirror, err := storage.NewFilesystemMirror(t.TempDir())
	require.NoError(t, err)

	owner := "owner-1"
	root := models.Folder{Name: "alice", Path: "alice", OwnerUserID: &owner}
	require.NoError(t, db.Create(&root).Error)

	child := models.Folder{Name: "animals", Path: "alice/animals", OwnerUserID: &owner, ParentID: &root.ID}
	require.NoError(t, db.Create(&child).Error)

	repairer, err := NewRepairer(db, mirror)
	require.NoError(t, err)

	// nothing exists physically yet: global root + both folders get repaired
	repaired, err := repairer.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, repaired)
	require.True(t, mirror.Exists("public"))
	require.True(t, mirror.Exists("alice/animals"))

	// second pass is a no-op
	repaired, err = repairer.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, repaired)
}
