package store

import (
	"errors"

	"urltracker/internal/model"

	"gorm.io/gorm"
)

// GormRedirectStore implements RedirectStore on a MySQL database via GORM.
type GormRedirectStore struct {
	db *gorm.DB
}

// NewGormRedirectStore creates a RedirectStore backed by db.
func NewGormRedirectStore(db *gorm.DB) *GormRedirectStore {
	return &GormRedirectStore{db: db}
}

func (s *GormRedirectStore) Get(id int) (*model.Redirect, error) {
	var r model.Redirect
	if err := s.db.First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *GormRedirectStore) FindExact(path, culture string, rootNodeID int) ([]model.Redirect, error) {
	q := s.db.Model(&model.Redirect{}).
		Where("source_path = ?", path).
		Where("culture IS NULL OR culture = '' OR culture = ?", culture)
	if rootNodeID != 0 {
		q = q.Where("root_node_id IS NULL OR root_node_id = 0 OR root_node_id = ?", rootNodeID)
	}

	var rules []model.Redirect
	if err := q.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormRedirectStore) FindAllRegex() ([]model.Redirect, error) {
	var rules []model.Redirect
	err := s.db.
		Where("source_regex IS NOT NULL AND source_regex != ''").
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormRedirectStore) FindByTargetNode(nodeID int) ([]model.Redirect, error) {
	var rules []model.Redirect
	if err := s.db.Where("target_node_id = ?", nodeID).Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormRedirectStore) Insert(r *model.Redirect) error {
	return s.db.Create(r).Error
}

func (s *GormRedirectStore) Update(r *model.Redirect) error {
	res := s.db.Model(&model.Redirect{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"culture":                   r.Culture,
		"root_node_id":              r.RootNodeID,
		"source_path":               r.SourcePath,
		"source_regex":              r.SourceRegex,
		"target_node_id":            r.TargetNodeID,
		"target_root_node_id":       r.TargetRootNodeID,
		"target_url":                r.TargetURL,
		"status_code":               r.StatusCode,
		"pass_through_query_string": r.PassThroughQueryString,
		"force_redirect":            r.ForceRedirect,
		"notes":                     r.Notes,
		"reason":                    r.Reason,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *GormRedirectStore) Delete(id int) error {
	res := s.db.Delete(&model.Redirect{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *GormRedirectStore) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&model.Redirect{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GormRedirectStore) Page(skip, take int, search string, order OrderBy, descending bool) ([]model.Redirect, int64, error) {
	q := s.db.Model(&model.Redirect{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("source_path LIKE ? OR source_regex LIKE ? OR target_url LIKE ? OR notes LIKE ?", like, like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if descending {
		dir = "DESC"
	}
	// Redirect listings only order by creation; occurrence orderings belong
	// to the client error store.
	var rules []model.Redirect
	err := q.Order("created_at " + dir).Order("id " + dir).
		Limit(take).Offset(skip).
		Find(&rules).Error
	if err != nil {
		return nil, 0, err
	}
	return rules, total, nil
}
