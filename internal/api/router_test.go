package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/avellaud/pictobank/internal/app"
	iauth "github.com/avellaud/pictobank/internal/auth"
	"github.com/avellaud/pictobank/internal/database"
	"github.com/avellaud/pictobank/internal/database/testutil"
	"github.com/avellaud/pictobank/internal/services"
	"github.com/avellaud/pictobank/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	mirror, err := storage.NewFilesystemMirror(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, mirror.EnsureDir(database.GlobalRootPath))

	hierarchy, err := services.NewHierarchyService(db, mirror)
	require.NoError(t, err)
	accounts, err := services.NewAccountService(db, hierarchy)
	require.NoError(t, err)
	artifacts, err := services.NewArtifactService(db)
	require.NoError(t, err)
	jwt, err := iauth.NewJWTService(iauth.Config{Secret: "test-secret", Issuer: "test"})
	require.NoError(t, err)

	return NewRouter(Deps{
		Config:    &app.Config{Monitoring: app.MonitoringConfig{Prometheus: false}},
		DB:        db,
		JWT:       jwt,
		Accounts:  accounts,
		Hierarchy: hierarchy,
		Artifacts: artifacts,
	})
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// File responses are raw bytes, so a failed unmarshal just leaves the
	// envelope empty.
	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func registerAndLogin(t *testing.T, router *gin.Engine, username string) string {
	t.Helper()

	rec, _ := do(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := do(t, router, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": username,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	return login.Token
}

func TestRegisterLoginAndBrowse(t *testing.T) {
	router := newTestServer(t)
	token := registerAndLogin(t, router, "alice")

	rec, env := do(t, router, http.MethodGet, "/api/forest", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var forest []struct {
		Entry struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		} `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &forest))
	require.Len(t, forest, 2)
	require.Equal(t, "public", forest[0].Entry.Path)
	require.Equal(t, "alice", forest[1].Entry.Path)

	// Anonymous browsing sees only the global root.
	rec, env = do(t, router, http.MethodGet, "/api/forest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &forest))
	require.Len(t, forest, 1)
}

func TestFolderAndPictogramLifecycle(t *testing.T) {
	router := newTestServer(t)
	token := registerAndLogin(t, router, "alice")

	_, env := do(t, router, http.MethodGet, "/api/forest", token, nil)
	var forest []struct {
		Entry struct {
			ID   string `json:"id"`
			Path string `json:"path"`
		} `json:"entry"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &forest))
	rootID := forest[1].Entry.ID

	rec, env := do(t, router, http.MethodPost, "/api/folders", token, gin.H{
		"parent_id": rootID,
		"name":      "animals",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var folder struct {
		ID   string `json:"id"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &folder))
	require.Equal(t, "alice/animals", folder.Path)

	rec, env = do(t, router, http.MethodPost, "/api/pictograms", token, gin.H{
		"folder_id": folder.ID,
		"name":      "cat.png",
		"content":   base64.StdEncoding.EncodeToString([]byte("png-bytes")),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var pictogram struct {
		ID   string `json:"id"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pictogram))
	require.Equal(t, "alice/animals/cat.png", pictogram.Path)

	rec, _ = do(t, router, http.MethodGet, "/api/pictograms/file/alice/animals/cat.png", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "png-bytes", rec.Body.String())

	rec, env = do(t, router, http.MethodDelete, "/api/nodes", token, gin.H{
		"id":   folder.ID,
		"kind": "folder",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/api/folders/"+folder.ID+"/children", token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestMutationsRequireAuthentication(t *testing.T) {
	router := newTestServer(t)

	rec, env := do(t, router, http.MethodPost, "/api/folders", "", gin.H{
		"parent_id": "any",
		"name":      "animals",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/artifacts/tree", "", gin.H{
		"name": "morning",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestArtifactRoutes(t *testing.T) {
	router := newTestServer(t)
	token := registerAndLogin(t, router, "alice")

	rec, env := do(t, router, http.MethodPost, "/api/artifacts/tree", token, gin.H{
		"name":      "morning",
		"is_public": false,
		"payload":   gin.H{"roots": []gin.H{{"type": "group", "label": "start"}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var artifact struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &artifact))

	rec, env = do(t, router, http.MethodGet, "/api/artifacts/tree", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing struct {
		Owned []struct {
			Name string `json:"name"`
		} `json:"owned"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listing))
	require.Len(t, listing.Owned, 1)
	require.Equal(t, "morning", listing.Owned[0].Name)

	rec, _ = do(t, router, http.MethodDelete, "/api/artifacts/tree/"+artifact.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/api/artifacts/poster", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(t)

	rec, env := do(t, router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
}
