package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/avellaud/pictobank/internal/models"
	"github.com/avellaud/pictobank/internal/viewer"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
	"github.com/avellaud/pictobank/pkg/logger"
	"github.com/avellaud/pictobank/pkg/metrics"
)

// ArtifactService manages named tree and list documents referencing stored
// pictograms. Saving is an upsert keyed by (owner, kind, name); public
// artifacts are validated so they never reference owned content.
type ArtifactService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewArtifactService constructs the service.
func NewArtifactService(db *gorm.DB) (*ArtifactService, error) {
	if db == nil {
		return nil, errors.New("artifact service: db is required")
	}
	return &ArtifactService{
		db:  db,
		log: logger.WithModule("artifacts"),
	}, nil
}

// ArtifactListing splits results into the viewer's own documents and public
// documents from other owners.
type ArtifactListing struct {
	Owned            []models.Artifact `json:"owned"`
	PublicFromOthers []models.Artifact `json:"public_from_others"`
}

// Upsert saves an artifact under (owner, kind, name), overwriting in place
// when the name already exists so the id stays stable. A public artifact may
// only reference global pictograms; violations reject the whole save without
// persisting anything.
func (s *ArtifactService) Upsert(ctx context.Context, v viewer.Viewer, kind, name string, isPublic bool, payload models.ArtifactPayload) (*models.Artifact, error) {
	ctx = ensureContext(ctx)
	if !v.Authenticated {
		return nil, apperrors.ErrUnauthorized
	}
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	// Artifact names never reach the filesystem, so they stay free text.
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	if isPublic {
		if err := s.checkContainment(ctx, kind, payload); err != nil {
			metrics.ArtifactSaves.WithLabelValues(kind, "rejected").Inc()
			return nil, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewBadRequest("payload is not serializable")
	}

	var artifact models.Artifact
	err = s.db.WithContext(ctx).
		Where("owner_user_id = ? AND kind = ? AND name = ?", v.ID, kind, name).
		First(&artifact).Error

	switch {
	case err == nil:
		artifact.IsPublic = isPublic
		artifact.Payload = datatypes.JSON(raw)
		if err := s.db.WithContext(ctx).Save(&artifact).Error; err != nil {
			metrics.ArtifactSaves.WithLabelValues(kind, "error").Inc()
			return nil, fmt.Errorf("artifact service: update artifact: %w", err)
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		artifact = models.Artifact{
			OwnerUserID: v.ID,
			Kind:        kind,
			Name:        name,
			IsPublic:    isPublic,
			Payload:     datatypes.JSON(raw),
		}
		if err := s.db.WithContext(ctx).Create(&artifact).Error; err != nil {
			metrics.ArtifactSaves.WithLabelValues(kind, "error").Inc()
			if isUniqueConstraintError(err) {
				return nil, apperrors.ErrDuplicateName.WithInternal(err)
			}
			return nil, fmt.Errorf("artifact service: create artifact: %w", err)
		}

	default:
		return nil, fmt.Errorf("artifact service: lookup artifact: %w", err)
	}

	metrics.ArtifactSaves.WithLabelValues(kind, "ok").Inc()
	return &artifact, nil
}

// List returns the viewer's artifacts of a kind plus public ones from other
// owners, both ordered by name. Anonymous viewers get only the public set.
func (s *ArtifactService) List(ctx context.Context, kind string, v viewer.Viewer) (*ArtifactListing, error) {
	ctx = ensureContext(ctx)
	if err := validateKind(kind); err != nil {
		return nil, err
	}

	listing := &ArtifactListing{
		Owned:            []models.Artifact{},
		PublicFromOthers: []models.Artifact{},
	}

	if v.Authenticated {
		if err := s.db.WithContext(ctx).
			Where("kind = ? AND owner_user_id = ?", kind, v.ID).
			Order("name").
			Find(&listing.Owned).Error; err != nil {
			return nil, fmt.Errorf("artifact service: list owned: %w", err)
		}
	}

	public := s.db.WithContext(ctx).Where("kind = ? AND is_public = ?", kind, true)
	if v.Authenticated {
		public = public.Where("owner_user_id <> ?", v.ID)
	}
	if err := public.Order("name").Find(&listing.PublicFromOthers).Error; err != nil {
		return nil, fmt.Errorf("artifact service: list public: %w", err)
	}

	return listing, nil
}

// Get returns an artifact the viewer may see.
func (s *ArtifactService) Get(ctx context.Context, id string, v viewer.Viewer) (*models.Artifact, error) {
	ctx = ensureContext(ctx)

	artifact, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.IsVisibleTo(&artifact.OwnerUserID, artifact.IsPublic, v) {
		return nil, apperrors.ErrForbidden
	}
	return artifact, nil
}

// Delete removes an artifact. Owner only.
func (s *ArtifactService) Delete(ctx context.Context, id string, v viewer.Viewer) error {
	ctx = ensureContext(ctx)
	if !v.Authenticated {
		return apperrors.ErrUnauthorized
	}

	artifact, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if artifact.OwnerUserID != v.ID {
		return apperrors.ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&models.Artifact{}, "id = ?", artifact.ID).Error; err != nil {
		return fmt.Errorf("artifact service: delete artifact: %w", err)
	}
	return nil
}

// checkContainment enforces the public-containment rule: every pictogram
// reachable in the payload must be global (unowned). This is stricter than
// general visibility; user-public content keeps the shared corpus attributable
// and is therefore excluded on purpose.
func (s *ArtifactService) checkContainment(ctx context.Context, kind string, payload models.ArtifactPayload) error {
	if kind == models.ArtifactKindTree && len(payload.Roots) == 0 {
		return apperrors.NewBadRequest("cannot save an empty tree as public")
	}

	ids := payload.PictogramIDs()
	if len(ids) == 0 {
		return nil
	}

	var owned int64
	if err := s.db.WithContext(ctx).Model(&models.Pictogram{}).
		Where("id IN ? AND owner_user_id IS NOT NULL", ids).
		Count(&owned).Error; err != nil {
		return fmt.Errorf("artifact service: containment check: %w", err)
	}
	if owned > 0 {
		return apperrors.ErrContainsPrivate
	}
	return nil
}

func (s *ArtifactService) load(ctx context.Context, id string) (*models.Artifact, error) {
	if id == "" {
		return nil, apperrors.NewBadRequest("artifact id is required")
	}
	var artifact models.Artifact
	if err := s.db.WithContext(ctx).First(&artifact, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("artifact service: load artifact: %w", err)
	}
	return &artifact, nil
}

func validateKind(kind string) error {
	switch kind {
	case models.ArtifactKindTree, models.ArtifactKindList:
		return nil
	default:
		return apperrors.NewBadRequest("kind must be tree or list")
	}
}
