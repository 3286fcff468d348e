package directory

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campus_wayfinder/internal/models"
)

// ServicePatch carries the fields of a partial service update. Setting
// ClearBuilding detaches the service from its site.
type ServicePatch struct {
	Name          *string   `json:"name"`
	Specialties   *[]string `json:"specialties"`
	Floor         *[]string `json:"floor"`
	Suite         *[]string `json:"suite"`
	Phone         *string   `json:"phone"`
	Hours         *string   `json:"hours"`
	BuildingID    *uint     `json:"building_id"`
	ClearBuilding bool      `json:"clear_building"`
}

func (p ServicePatch) apply(s *models.Service) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Specialties != nil {
		s.Specialties = *p.Specialties
	}
	if p.Floor != nil {
		s.Floor = *p.Floor
	}
	if p.Suite != nil {
		s.Suite = *p.Suite
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.Hours != nil {
		s.Hours = *p.Hours
	}
	if p.BuildingID != nil {
		id := *p.BuildingID
		s.BuildingID = &id
	}
	if p.ClearBuilding {
		s.BuildingID = nil
	}
	s.Building = nil
}

// Services lists every service with its building, by name. The slice is
// shared with the cache and must not be modified.
func (d *Directory) Services(ctx context.Context) ([]models.Service, error) {
	return d.services.GetOrLoad(ctx, listKey, func(ctx context.Context) ([]models.Service, error) {
		var services []models.Service
		err := d.db.WithContext(ctx).
			Preload("Building").
			Order("name").
			Find(&services).Error
		if err != nil {
			return nil, fmt.Errorf("list services: %w", err)
		}
		return services, nil
	})
}

func (d *Directory) Service(ctx context.Context, id uint) (models.Service, error) {
	services, err := d.Services(ctx)
	if err != nil {
		return models.Service{}, err
	}
	for _, s := range services {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Service{}, ErrNotFound
}

func (d *Directory) CreateService(ctx context.Context, svc *models.Service) error {
	svc.Building = nil
	if err := svc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkBuilding(tx, svc.BuildingID); err != nil {
			return err
		}
		return tx.Create(svc).Error
	})
	if err != nil {
		return err
	}
	d.registry.Invalidate(ctx, TagServices)
	return nil
}

func (d *Directory) UpdateService(ctx context.Context, id uint, patch ServicePatch) (models.Service, error) {
	var svc models.Service
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&svc, id).Error; err != nil {
			return notFound(err)
		}
		patch.apply(&svc)
		if err := svc.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if err := checkBuilding(tx, svc.BuildingID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(&svc).Error
	})
	if err != nil {
		return models.Service{}, err
	}
	d.registry.Invalidate(ctx, TagServices)
	return svc, nil
}

func (d *Directory) DeleteService(ctx context.Context, id uint) error {
	res := d.db.WithContext(ctx).Delete(&models.Service{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	d.registry.Invalidate(ctx, TagServices)
	return nil
}

func checkBuilding(tx *gorm.DB, id *uint) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Site{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: building %d does not exist", ErrInvalid, *id)
	}
	return nil
}
