package store

import (
	"errors"

	"urltracker/internal/model"

	"gorm.io/gorm"
)

// GormContentNodeStore implements ContentNodeStore on a MySQL database via GORM.
type GormContentNodeStore struct {
	db *gorm.DB
}

// NewGormContentNodeStore creates a ContentNodeStore backed by db.
func NewGormContentNodeStore(db *gorm.DB) *GormContentNodeStore {
	return &GormContentNodeStore{db: db}
}

func (s *GormContentNodeStore) UpsertNode(n *model.ContentNode) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.ContentNode
		err := tx.Where("node_id = ? AND culture = ?", n.NodeID, n.Culture).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(n).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Updates(map[string]interface{}{
			"path":         n.Path,
			"root_node_id": n.RootNodeID,
		}).Error
	})
}

func (s *GormContentNodeStore) DeleteNode(nodeID int) error {
	return s.db.Where("node_id = ?", nodeID).Delete(&model.ContentNode{}).Error
}

func (s *GormContentNodeStore) FindNode(nodeID int, culture string) (*model.ContentNode, error) {
	var n model.ContentNode
	if err := s.db.Where("node_id = ? AND culture = ?", nodeID, culture).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *GormContentNodeStore) NodePathExists(path string) (bool, error) {
	var count int64
	if err := s.db.Model(&model.ContentNode{}).Where("path = ?", path).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
