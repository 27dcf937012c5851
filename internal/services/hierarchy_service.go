package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/avellaud/pictobank/internal/models"
	"github.com/avellaud/pictobank/internal/storage"
	"github.com/avellaud/pictobank/internal/viewer"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
	"github.com/avellaud/pictobank/pkg/logger"
	"github.com/avellaud/pictobank/pkg/metrics"
)

// DefaultForbiddenAsset is served by ResolvePath when the viewer may not see
// the requested pictogram.
const DefaultForbiddenAsset = "assets/prohibit.png"

// HierarchyService orchestrates the metadata store and the physical mirror for
// folder and pictogram lifecycle operations. It is the only component that
// writes to both backends and the only place where paths are derived.
//
// Create order is metadata first, mirror second: a row without physical
// backing is repairable, while an untracked physical object is invisible
// garbage. Delete order is the reverse per node: metadata row first, then
// best-effort physical removal, so no row can survive pointing at a file that
// was already deleted.
type HierarchyService struct {
	db             *gorm.DB
	mirror         storage.Mirror
	forbiddenAsset string
	log            *zap.Logger
}

// HierarchyOption customises the HierarchyService.
type HierarchyOption func(*HierarchyService)

// WithForbiddenAsset overrides the sentinel path returned for hidden content.
func WithForbiddenAsset(path string) HierarchyOption {
	return func(s *HierarchyService) {
		if path != "" {
			s.forbiddenAsset = path
		}
	}
}

// NewHierarchyService constructs the service once both backends are supplied.
func NewHierarchyService(db *gorm.DB, mirror storage.Mirror, opts ...HierarchyOption) (*HierarchyService, error) {
	if db == nil {
		return nil, errors.New("hierarchy service: db is required")
	}
	if mirror == nil {
		return nil, errors.New("hierarchy service: mirror is required")
	}

	svc := &HierarchyService{
		db:             db,
		mirror:         mirror,
		forbiddenAsset: DefaultForbiddenAsset,
		log:            logger.WithModule("hierarchy"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ChildEntry is one listing row: a subfolder or a pictogram.
type ChildEntry struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Description string  `json:"description,omitempty"`
	IsPublic    bool    `json:"is_public,omitempty"`
	OwnerUserID *string `json:"owner_user_id"`
	HasContent  bool    `json:"has_content,omitempty"`
}

// TreeNode is one node of a fully materialized subtree.
type TreeNode struct {
	Entry    ChildEntry `json:"entry"`
	Children []TreeNode `json:"children,omitempty"`
}

// Node kinds accepted by DeleteNode and reported in listings.
const (
	KindFolder    = "folder"
	KindPictogram = "pictogram"
)

// ProvisionRoot creates the root folder for a freshly provisioned owner, both
// the metadata row and the physical directory. Idempotent: an existing root
// for the owner is returned as is.
func (s *HierarchyService) ProvisionRoot(ctx context.Context, owner *models.User) (*models.Folder, error) {
	ctx = ensureContext(ctx)
	if owner == nil || owner.ID == "" {
		return nil, apperrors.NewBadRequest("owner is required")
	}

	var existing models.Folder
	err := s.db.WithContext(ctx).
		Where("owner_user_id = ? AND parent_id IS NULL", owner.ID).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("hierarchy service: load root: %w", err)
	}

	name := sanitizeName(owner.Username)
	if name == "" {
		return nil, apperrors.NewBadRequest("owner name is not usable as a folder name")
	}

	root := models.Folder{
		Name:        name,
		Path:        name,
		OwnerUserID: &owner.ID,
	}
	if err := s.db.WithContext(ctx).Create(&root).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateName.WithInternal(err)
		}
		return nil, fmt.Errorf("hierarchy service: create root: %w", err)
	}

	if err := s.mirror.EnsureDir(root.Path); err != nil {
		// The row stays: metadata is the source of truth and the mirror is repairable.
		s.log.Error("root directory not materialized", zap.String("path", root.Path), zap.Error(err))
		return &root, apperrors.ErrPartialFailure.WithInternal(err)
	}

	return &root, nil
}

// GlobalRoot returns the folder holding unowned content.
func (s *HierarchyService) GlobalRoot(ctx context.Context) (*models.Folder, error) {
	ctx = ensureContext(ctx)

	var root models.Folder
	err := s.db.WithContext(ctx).
		Where("owner_user_id IS NULL AND parent_id IS NULL").
		First(&root).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("hierarchy service: load global root: %w", err)
	}
	return &root, nil
}

// CreateFolder adds a folder under a parent the viewer owns.
func (s *HierarchyService) CreateFolder(ctx context.Context, parentID, name string, v viewer.Viewer) (*models.Folder, error) {
	ctx = ensureContext(ctx)
	if !v.Authenticated {
		return nil, apperrors.ErrUnauthorized
	}

	name = sanitizeName(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("folder name is required")
	}

	parent, err := s.loadFolder(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if !viewer.OwnerMatches(parent.OwnerUserID, v) {
		return nil, apperrors.ErrForbidden
	}

	if err := s.checkSiblingName(ctx, parent.ID, name); err != nil {
		return nil, err
	}

	folder := models.Folder{
		Name:        name,
		Path:        childPath(parent.Path, name),
		OwnerUserID: parent.OwnerUserID,
		ParentID:    &parent.ID,
	}
	if err := s.db.WithContext(ctx).Create(&folder).Error; err != nil {
		metrics.NodeOperations.WithLabelValues("create", "error").Inc()
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateName.WithInternal(err)
		}
		return nil, fmt.Errorf("hierarchy service: create folder: %w", err)
	}

	if err := s.mirror.EnsureDir(folder.Path); err != nil {
		metrics.NodeOperations.WithLabelValues("create", "partial").Inc()
		s.log.Error("folder directory not materialized", zap.String("path", folder.Path), zap.Error(err))
		return &folder, apperrors.ErrPartialFailure.WithInternal(err)
	}

	metrics.NodeOperations.WithLabelValues("create", "ok").Inc()
	return &folder, nil
}

// CreatePictogram accepts already-read byte content into a folder the viewer
// owns. The folder's owner propagates to the new pictogram.
func (s *HierarchyService) CreatePictogram(ctx context.Context, folderID, name string, content []byte, v viewer.Viewer) (*models.Pictogram, error) {
	ctx = ensureContext(ctx)
	if !v.Authenticated {
		return nil, apperrors.ErrUnauthorized
	}

	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !viewer.OwnerMatches(folder.OwnerUserID, v) {
		return nil, apperrors.ErrForbidden
	}

	return s.storePictogram(ctx, folder, name, content, false)
}

// Import places content directly into any folder, deriving ownership from the
// folder itself. Privileged internal entry point used by seeding and curation
// tooling for the global corpus; route handlers must use CreatePictogram.
func (s *HierarchyService) Import(ctx context.Context, folderID, name string, content []byte, isPublic bool) (*models.Pictogram, error) {
	ctx = ensureContext(ctx)

	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	return s.storePictogram(ctx, folder, name, content, isPublic)
}

func (s *HierarchyService) storePictogram(ctx context.Context, folder *models.Folder, name string, content []byte, isPublic bool) (*models.Pictogram, error) {
	name = sanitizeName(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("file name is required")
	}
	if len(content) == 0 {
		return nil, apperrors.NewBadRequest("file content is required")
	}

	if err := s.checkSiblingName(ctx, folder.ID, name); err != nil {
		return nil, err
	}

	pictogram := models.Pictogram{
		Name:        name,
		Path:        childPath(folder.Path, name),
		OwnerUserID: folder.OwnerUserID,
		FolderID:    folder.ID,
		IsPublic:    isPublic,
	}
	if err := s.db.WithContext(ctx).Create(&pictogram).Error; err != nil {
		metrics.NodeOperations.WithLabelValues("create", "error").Inc()
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateName.WithInternal(err)
		}
		return nil, fmt.Errorf("hierarchy service: create pictogram: %w", err)
	}

	if err := s.mirror.WriteFile(pictogram.Path, content); err != nil {
		metrics.NodeOperations.WithLabelValues("create", "partial").Inc()
		s.log.Error("pictogram file not materialized", zap.String("path", pictogram.Path), zap.Error(err))
		return &pictogram, apperrors.ErrPartialFailure.WithInternal(err)
	}

	metrics.NodeOperations.WithLabelValues("create", "ok").Inc()
	return &pictogram, nil
}

// UpdatePictogramInput describes mutable pictogram fields; nil means unchanged.
type UpdatePictogramInput struct {
	Description *string
	IsPublic    *bool
}

// UpdatePictogram mutates description and public flag. Owner only.
func (s *HierarchyService) UpdatePictogram(ctx context.Context, id string, input UpdatePictogramInput, v viewer.Viewer) (*models.Pictogram, error) {
	ctx = ensureContext(ctx)
	if !v.Authenticated {
		return nil, apperrors.ErrUnauthorized
	}

	pictogram, err := s.loadPictogram(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.OwnerMatches(pictogram.OwnerUserID, v) {
		return nil, apperrors.ErrForbidden
	}

	updates := map[string]any{}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.IsPublic != nil {
		updates["is_public"] = *input.IsPublic
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(pictogram).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("hierarchy service: update pictogram: %w", err)
		}
		metrics.NodeOperations.WithLabelValues("update", "ok").Inc()
	}

	return pictogram, nil
}

// ListChildren returns a folder's direct children: subfolders before
// pictograms, each group ordered by name. Folder entries carry a has-content
// flag computed from existence counts so the UI can expand lazily.
func (s *HierarchyService) ListChildren(ctx context.Context, folderID string, v viewer.Viewer) ([]ChildEntry, error) {
	ctx = ensureContext(ctx)

	folder, err := s.loadFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if !viewer.IsVisibleTo(folder.OwnerUserID, false, v) {
		return nil, apperrors.ErrForbidden
	}

	var subfolders []models.Folder
	if err := s.db.WithContext(ctx).
		Where("parent_id = ?", folder.ID).
		Order("name").
		Find(&subfolders).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: list subfolders: %w", err)
	}

	var pictograms []models.Pictogram
	query := s.db.WithContext(ctx).Where("folder_id = ?", folder.ID).Order("name")
	if err := viewer.Scope(query, v).Find(&pictograms).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: list pictograms: %w", err)
	}

	occupancy, err := s.folderOccupancy(ctx, subfolders)
	if err != nil {
		return nil, err
	}

	entries := make([]ChildEntry, 0, len(subfolders)+len(pictograms))
	for _, sub := range subfolders {
		entries = append(entries, ChildEntry{
			ID:          sub.ID,
			Kind:        KindFolder,
			Name:        sub.Name,
			Path:        sub.Path,
			OwnerUserID: sub.OwnerUserID,
			HasContent:  occupancy[sub.ID],
		})
	}
	for _, p := range pictograms {
		entries = append(entries, pictogramEntry(p))
	}

	return entries, nil
}

// LoadForest materializes the full subtree of the global root and, for an
// authenticated viewer, their own root. Used for bulk export and the builder.
func (s *HierarchyService) LoadForest(ctx context.Context, v viewer.Viewer) ([]TreeNode, error) {
	ctx = ensureContext(ctx)

	var roots []models.Folder
	query := s.db.WithContext(ctx).Where("parent_id IS NULL")
	if v.Authenticated {
		query = query.Where("owner_user_id IS NULL OR owner_user_id = ?", v.ID)
	} else {
		query = query.Where("owner_user_id IS NULL")
	}
	if err := query.Order("owner_user_id IS NOT NULL, name").Find(&roots).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: load roots: %w", err)
	}

	forest := make([]TreeNode, 0, len(roots))
	for i := range roots {
		node, err := s.materialize(ctx, &roots[i], v)
		if err != nil {
			return nil, err
		}
		forest = append(forest, *node)
	}
	return forest, nil
}

func (s *HierarchyService) materialize(ctx context.Context, folder *models.Folder, v viewer.Viewer) (*TreeNode, error) {
	node := &TreeNode{
		Entry: ChildEntry{
			ID:          folder.ID,
			Kind:        KindFolder,
			Name:        folder.Name,
			Path:        folder.Path,
			OwnerUserID: folder.OwnerUserID,
		},
	}

	var subfolders []models.Folder
	if err := s.db.WithContext(ctx).
		Where("parent_id = ?", folder.ID).
		Order("name").
		Find(&subfolders).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: load subtree: %w", err)
	}
	for i := range subfolders {
		child, err := s.materialize(ctx, &subfolders[i], v)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, *child)
	}

	var pictograms []models.Pictogram
	query := s.db.WithContext(ctx).Where("folder_id = ?", folder.ID).Order("name")
	if err := viewer.Scope(query, v).Find(&pictograms).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: load subtree pictograms: %w", err)
	}
	for _, p := range pictograms {
		node.Children = append(node.Children, TreeNode{Entry: pictogramEntry(p)})
	}

	node.Entry.HasContent = len(node.Children) > 0
	return node, nil
}

// DeleteNode removes a pictogram or a folder subtree the viewer owns. Folder
// deletion is a post-order traversal over repository-loaded child lists; per
// node the metadata row is deleted first and the physical removal is
// best-effort. Root folders are never deletable.
func (s *HierarchyService) DeleteNode(ctx context.Context, id, kind string, v viewer.Viewer) error {
	ctx = ensureContext(ctx)
	if !v.Authenticated {
		return apperrors.ErrUnauthorized
	}

	switch kind {
	case KindFolder:
		folder, err := s.loadFolder(ctx, id)
		if err != nil {
			return err
		}
		if !viewer.OwnerMatches(folder.OwnerUserID, v) {
			return apperrors.ErrForbidden
		}
		if folder.IsRoot() {
			return apperrors.ErrRootImmutable
		}

		var cleanup error
		if err := s.deleteFolderRecursive(ctx, folder, &cleanup); err != nil {
			metrics.NodeOperations.WithLabelValues("delete", "error").Inc()
			return err
		}
		if cleanup != nil {
			// Stray physical objects are inert; log and carry on.
			s.log.Warn("best-effort physical cleanup incomplete",
				zap.String("folder", folder.Path),
				zap.Error(cleanup),
			)
		}
		metrics.NodeOperations.WithLabelValues("delete", "ok").Inc()
		return nil

	case KindPictogram:
		pictogram, err := s.loadPictogram(ctx, id)
		if err != nil {
			return err
		}
		if !viewer.OwnerMatches(pictogram.OwnerUserID, v) {
			return apperrors.ErrForbidden
		}

		if err := s.db.WithContext(ctx).Delete(&models.Pictogram{}, "id = ?", pictogram.ID).Error; err != nil {
			metrics.NodeOperations.WithLabelValues("delete", "error").Inc()
			return fmt.Errorf("hierarchy service: delete pictogram: %w", err)
		}
		if err := s.mirror.RemoveFile(pictogram.Path); err != nil {
			s.log.Warn("pictogram file not removed", zap.String("path", pictogram.Path), zap.Error(err))
		}
		metrics.NodeOperations.WithLabelValues("delete", "ok").Inc()
		return nil

	default:
		return apperrors.NewBadRequest("unknown node kind")
	}
}

// deleteFolderRecursive removes a subtree children-first. Metadata deletions
// are fatal; physical removals accumulate into cleanup.
func (s *HierarchyService) deleteFolderRecursive(ctx context.Context, folder *models.Folder, cleanup *error) error {
	var subfolders []models.Folder
	if err := s.db.WithContext(ctx).Where("parent_id = ?", folder.ID).Find(&subfolders).Error; err != nil {
		return fmt.Errorf("hierarchy service: load subtree for delete: %w", err)
	}
	for i := range subfolders {
		if err := s.deleteFolderRecursive(ctx, &subfolders[i], cleanup); err != nil {
			return err
		}
	}

	var pictograms []models.Pictogram
	if err := s.db.WithContext(ctx).Where("folder_id = ?", folder.ID).Find(&pictograms).Error; err != nil {
		return fmt.Errorf("hierarchy service: load folder content for delete: %w", err)
	}
	for _, p := range pictograms {
		if err := s.db.WithContext(ctx).Delete(&models.Pictogram{}, "id = ?", p.ID).Error; err != nil {
			return fmt.Errorf("hierarchy service: delete pictogram row: %w", err)
		}
		if err := s.mirror.RemoveFile(p.Path); err != nil {
			*cleanup = multierr.Append(*cleanup, err)
		}
	}

	if err := s.mirror.RemoveTree(folder.Path); err != nil {
		*cleanup = multierr.Append(*cleanup, err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.Folder{}, "id = ?", folder.ID).Error; err != nil {
		return fmt.Errorf("hierarchy service: delete folder row: %w", err)
	}
	return nil
}

// ResolvePath returns the absolute physical path for a pictogram the viewer
// may see, or the forbidden-asset sentinel otherwise. Consumed by the static
// file route, which always answers with an image.
func (s *HierarchyService) ResolvePath(ctx context.Context, pictogramID string, v viewer.Viewer) string {
	ctx = ensureContext(ctx)

	pictogram, err := s.loadPictogram(ctx, pictogramID)
	if err != nil {
		return s.forbiddenAsset
	}
	if !viewer.IsVisibleTo(pictogram.OwnerUserID, pictogram.IsPublic, v) {
		return s.forbiddenAsset
	}
	return s.mirror.Absolute(pictogram.Path)
}

// ResolveStorePath is ResolvePath keyed by relative store path, for the
// wildcard file route.
func (s *HierarchyService) ResolveStorePath(ctx context.Context, path string, v viewer.Viewer) string {
	ctx = ensureContext(ctx)

	var pictogram models.Pictogram
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&pictogram).Error
	if err != nil {
		return s.forbiddenAsset
	}
	if !viewer.IsVisibleTo(pictogram.OwnerUserID, pictogram.IsPublic, v) {
		return s.forbiddenAsset
	}
	return s.mirror.Absolute(pictogram.Path)
}

func (s *HierarchyService) loadFolder(ctx context.Context, id string) (*models.Folder, error) {
	if id == "" {
		return nil, apperrors.NewBadRequest("folder id is required")
	}
	var folder models.Folder
	if err := s.db.WithContext(ctx).First(&folder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("hierarchy service: load folder: %w", err)
	}
	return &folder, nil
}

func (s *HierarchyService) loadPictogram(ctx context.Context, id string) (*models.Pictogram, error) {
	if id == "" {
		return nil, apperrors.NewBadRequest("pictogram id is required")
	}
	var pictogram models.Pictogram
	if err := s.db.WithContext(ctx).First(&pictogram, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("hierarchy service: load pictogram: %w", err)
	}
	return &pictogram, nil
}

// checkSiblingName rejects duplicate names among a folder's direct children,
// across both subfolders and pictograms.
func (s *HierarchyService) checkSiblingName(ctx context.Context, parentID, name string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Folder{}).
		Where("parent_id = ? AND name = ?", parentID, name).
		Count(&count).Error; err != nil {
		return fmt.Errorf("hierarchy service: sibling check: %w", err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateName
	}

	if err := s.db.WithContext(ctx).Model(&models.Pictogram{}).
		Where("folder_id = ? AND name = ?", parentID, name).
		Count(&count).Error; err != nil {
		return fmt.Errorf("hierarchy service: sibling check: %w", err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateName
	}
	return nil
}

// folderOccupancy reports, per folder id, whether any child row exists.
// Existence only, no subtree materialization.
func (s *HierarchyService) folderOccupancy(ctx context.Context, folders []models.Folder) (map[string]bool, error) {
	occupancy := make(map[string]bool, len(folders))
	if len(folders) == 0 {
		return occupancy, nil
	}

	ids := make([]string, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}

	type bucket struct {
		ID string
	}
	var rows []bucket

	if err := s.db.WithContext(ctx).Model(&models.Folder{}).
		Select("parent_id AS id").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: folder occupancy: %w", err)
	}
	for _, row := range rows {
		occupancy[row.ID] = true
	}

	rows = rows[:0]
	if err := s.db.WithContext(ctx).Model(&models.Pictogram{}).
		Select("folder_id AS id").
		Where("folder_id IN ?", ids).
		Group("folder_id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("hierarchy service: folder occupancy: %w", err)
	}
	for _, row := range rows {
		occupancy[row.ID] = true
	}

	return occupancy, nil
}

func pictogramEntry(p models.Pictogram) ChildEntry {
	return ChildEntry{
		ID:          p.ID,
		Kind:        KindPictogram,
		Name:        p.Name,
		Path:        p.Path,
		Description: p.Description,
		IsPublic:    p.IsPublic,
		OwnerUserID: p.OwnerUserID,
	}
}
