package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type userModel struct {
	Email     string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userModel) TableName() string { return "users" }

type teamModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Owner     string `gorm:"not null;index"`
	Capturer  string
	Members   []memberModel `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (teamModel) TableName() string { return "teams" }

type memberModel struct {
	TeamID   string `gorm:"primaryKey"`
	Email    string `gorm:"primaryKey;index"`
	Position int
}

func (memberModel) TableName() string { return "team_members" }

// Gorm is a Store on Postgres.
type Gorm struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*Gorm, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	g := &Gorm{db: db}
	if err := db.AutoMigrate(&userModel{}, &teamModel{}, &memberModel{}); err != nil {
		return nil, multierr.Append(fmt.Errorf("auto-migrate: %w", err), g.Close())
	}
	return g, nil
}

func (g *Gorm) UpsertUser(ctx context.Context, u User) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&userModel{Email: u.Email, Name: u.Name}).Error
}

func (g *Gorm) User(ctx context.Context, email string) (User, error) {
	var m userModel
	if err := g.db.WithContext(ctx).First(&m, "email = ?", email).Error; err != nil {
		return User{}, notFound(err)
	}
	return User{Email: m.Email, Name: m.Name}, nil
}

func (g *Gorm) CreateTeam(ctx context.Context, t Team) error {
	m := toTeamModel(t)
	err := g.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrExists
	}
	return err
}

func (g *Gorm) Team(ctx context.Context, id string) (Team, error) {
	var m teamModel
	err := g.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&m, "id = ?", id).Error
	if err != nil {
		return Team{}, notFound(err)
	}
	return fromTeamModel(m), nil
}

func (g *Gorm) TeamsFor(ctx context.Context, email string) ([]Team, error) {
	var ms []teamModel
	err := g.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("owner = ? OR id IN (?)", email,
			g.db.Model(&memberModel{}).Select("team_id").Where("email = ?", email)).
		Order("name").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	out := make([]Team, 0, len(ms))
	for _, m := range ms {
		out = append(out, fromTeamModel(m))
	}
	return out, nil
}

// SaveTeam rewrites the team row and its member list in one transaction.
func (g *Gorm) SaveTeam(ctx context.Context, t Team) error {
	m := toTeamModel(t)
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&teamModel{}).Where("id = ?", t.ID).
			Updates(map[string]any{"name": m.Name, "owner": m.Owner, "capturer": m.Capturer})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("team_id = ?", t.ID).Delete(&memberModel{}).Error; err != nil {
			return err
		}
		if len(m.Members) == 0 {
			return nil
		}
		return tx.Create(&m.Members).Error
	})
}

func (g *Gorm) DeleteTeam(ctx context.Context, id string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", id).Delete(&memberModel{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&teamModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func toTeamModel(t Team) teamModel {
	m := teamModel{ID: t.ID, Name: t.Name, Owner: t.Owner, Capturer: t.Capturer}
	for i, email := range t.Members {
		m.Members = append(m.Members, memberModel{TeamID: t.ID, Email: email, Position: i})
	}
	return m
}

func fromTeamModel(m teamModel) Team {
	t := Team{ID: m.ID, Name: m.Name, Owner: m.Owner, Capturer: m.Capturer}
	for _, mm := range m.Members {
		t.Members = append(t.Members, mm.Email)
	}
	return t
}
