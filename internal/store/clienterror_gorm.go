package store

import (
	"errors"
	"time"

	"urltracker/internal/model"

	"gorm.io/gorm"
)

// GormClientErrorStore implements ClientErrorStore on a MySQL database via GORM.
type GormClientErrorStore struct {
	db *gorm.DB
}

// NewGormClientErrorStore creates a ClientErrorStore backed by db.
func NewGormClientErrorStore(db *gorm.DB) *GormClientErrorStore {
	return &GormClientErrorStore{db: db}
}

func (s *GormClientErrorStore) FindByPath(path string) (*model.ClientError, error) {
	var ce model.ClientError
	if err := s.db.Where("path = ?", path).First(&ce).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ce, nil
}

func (s *GormClientErrorStore) InsertMiss(ce *model.ClientError) error {
	return s.db.Create(ce).Error
}

func (s *GormClientErrorStore) AppendOccurrence(clientErrorID int, referrer *string, at time.Time) error {
	occ := model.Occurrence{
		ClientErrorID: clientErrorID,
		Referrer:      referrer,
		OccurredAt:    at,
	}
	return s.db.Create(&occ).Error
}

// Page lists non-ignored client errors with their derived aggregates. The
// most common referrer is the mode over non-null referrers, ties broken by
// the most recently seen one.
func (s *GormClientErrorStore) Page(skip, take int, search string, order OrderBy, descending bool) ([]model.ClientErrorAggregate, int64, error) {
	countQ := s.db.Model(&model.ClientError{}).Where("ignored = ?", false)
	if search != "" {
		countQ = countQ.Where("path LIKE ?", "%"+search+"%")
	}
	var total int64
	if err := countQ.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderCol := "ce.created_at"
	switch order {
	case OrderByLastOccurrence:
		orderCol = "most_recent_occurrence"
	case OrderByOccurrences:
		orderCol = "total_occurrences"
	}
	dir := "ASC"
	if descending {
		dir = "DESC"
	}

	query := `
SELECT ce.id, ce.` + "`key`" + `, ce.path, ce.ignored, ce.created_at,
       COALESCE(occ.total, 0) AS total_occurrences,
       occ.most_recent AS most_recent_occurrence,
       mcr.referrer AS most_common_referrer
FROM client_errors ce
LEFT JOIN (
    SELECT client_error_id, COUNT(*) AS total, MAX(occurred_at) AS most_recent
    FROM client_error_occurrences
    GROUP BY client_error_id
) occ ON occ.client_error_id = ce.id
LEFT JOIN (
    SELECT client_error_id, referrer FROM (
        SELECT client_error_id, referrer,
               ROW_NUMBER() OVER (
                   PARTITION BY client_error_id
                   ORDER BY COUNT(*) DESC, MAX(occurred_at) DESC
               ) AS rn
        FROM client_error_occurrences
        WHERE referrer IS NOT NULL
        GROUP BY client_error_id, referrer
    ) ranked WHERE rn = 1
) mcr ON mcr.client_error_id = ce.id
WHERE ce.ignored = 0`

	args := []interface{}{}
	if search != "" {
		query += " AND ce.path LIKE ?"
		args = append(args, "%"+search+"%")
	}
	query += " ORDER BY " + orderCol + " " + dir + ", ce.id ASC LIMIT ? OFFSET ?"
	args = append(args, take, skip)

	var results []model.ClientErrorAggregate
	if err := s.db.Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (s *GormClientErrorStore) Delete(id int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_error_id = ?", id).Delete(&model.Occurrence{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.ClientError{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	})
}

// DeleteByPath removes the active miss record for a path, if any. Called when
// a redirect covering that path is created so the miss does not linger.
func (s *GormClientErrorStore) DeleteByPath(path string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ce model.ClientError
		if err := tx.Where("path = ?", path).First(&ce).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Where("client_error_id = ?", ce.ID).Delete(&model.Occurrence{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.ClientError{}, ce.ID).Error
	})
}

func (s *GormClientErrorStore) SetIgnored(id int, ignored bool) error {
	res := s.db.Model(&model.ClientError{}).Where("id = ?", id).Update("ignored", ignored)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *GormClientErrorStore) ListIgnoreRules() ([]model.IgnoreRule, error) {
	var rules []model.IgnoreRule
	if err := s.db.Order("id ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *GormClientErrorStore) InsertIgnoreRule(r *model.IgnoreRule) error {
	return s.db.Create(r).Error
}

func (s *GormClientErrorStore) DeleteIgnoreRule(id int) error {
	res := s.db.Delete(&model.IgnoreRule{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}
