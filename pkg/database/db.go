package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// User represents the users table
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"unique;not null" json:"username"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
	GroupID      *uint  `gorm:"index" json:"group_id"`
}

// Group represents the groups table
type Group struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"unique;not null" json:"name"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
	Users    []User `gorm:"foreignKey:GroupID" json:"users,omitempty"`
}

// Shift represents the shifts table
type Shift struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `gorm:"not null;index" json:"start_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	Capacity    *int      `json:"capacity"` // null means unlimited
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// OptOut represents the opt_outs table. Exactly one of UserID and
// GroupID is set; presence of a row means "unavailable for this shift".
type OptOut struct {
	ID      uint  `gorm:"primaryKey" json:"id"`
	UserID  *uint `gorm:"uniqueIndex:idx_user_shift;index" json:"user_id"`
	GroupID *uint `gorm:"uniqueIndex:idx_group_shift;index" json:"group_id"`
	ShiftID uint  `gorm:"uniqueIndex:idx_user_shift;uniqueIndex:idx_group_shift;not null" json:"shift_id"`
}

// Assignment represents the assignments table
type Assignment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ShiftID     uint      `gorm:"uniqueIndex:idx_shift_user;not null" json:"shift_id"`
	UserID      uint      `gorm:"uniqueIndex:idx_shift_user;not null" json:"user_id"`
	AssignedVia string    `gorm:"default:individual" json:"assigned_via"`
	GroupName   string    `json:"group_name,omitempty"`
	PlanRunID   string    `gorm:"index" json:"plan_run_id,omitempty"` // empty for manual rows
	AssignedAt  time.Time `gorm:"autoCreateTime" json:"assigned_at"`
}

// AccessToken represents the access_tokens table
type AccessToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Token     string     `gorm:"unique;not null" json:"token"`
	Name      string     `gorm:"not null" json:"name"`
	RateLimit int        `gorm:"default:120" json:"rate_limit"` // requests per minute
	ExpiresAt *time.Time `json:"expires_at"`
	IsActive  bool       `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used"`
}

// APIUsage represents the api_usage table
type APIUsage struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	TokenID          uint   `gorm:"uniqueIndex:idx_token_date;not null" json:"token_id"`
	Date             string `gorm:"uniqueIndex:idx_token_date;not null" json:"date"`
	RequestCount     int    `gorm:"default:0" json:"request_count"`
	PlanRuns         int    `gorm:"default:0" json:"plan_runs"`
	AssignmentsMade  int    `gorm:"default:0" json:"assignments_made"`
}

// MasterUser represents the master_users table (coordinator/admin accounts)
type MasterUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitDB initializes the database connection and migrates the schema
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := os.Getenv("DATABASE_URL")
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := os.Getenv("DATA_PATH")
		if dbPath == "" {
			dbPath = "planner.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	Migrate(db)
	return db
}

// Migrate runs the schema auto-migration for all tables.
func Migrate(db *gorm.DB) {
	db.AutoMigrate(
		&User{}, &Group{}, &Shift{}, &OptOut{}, &Assignment{},
		&AccessToken{}, &APIUsage{}, &MasterUser{},
	)
}
