// Package models defines GORM database models for castarr entities.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ID is a wrapper around uuid.UUID for database storage as primary key.
// Channels are addressed by UUID in lineup redirect items and the API.
type ID uuid.UUID

// NewID generates a new random ID.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID parses a UUID string.
func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid ID: %w", err)
	}
	return ID(id), nil
}

// MustParseID parses a UUID string and panics on error.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the string representation of the ID.
func (u ID) String() string {
	return uuid.UUID(u).String()
}

// IsZero returns true if the ID is zero/empty.
func (u ID) IsZero() bool {
	return uuid.UUID(u) == uuid.Nil
}

// Value implements driver.Valuer for database storage.
func (u ID) Value() (driver.Value, error) {
	if u.IsZero() {
		return nil, nil
	}
	return uuid.UUID(u).String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (u *ID) Scan(value any) error {
	if value == nil {
		*u = ID{}
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			*u = ID{}
			return nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return fmt.Errorf("scanning ID: %w", err)
		}
		*u = ID(id)
	case []byte:
		if len(v) == 0 {
			*u = ID{}
			return nil
		}
		id, err := uuid.Parse(string(v))
		if err != nil {
			return fmt.Errorf("scanning ID: %w", err)
		}
		*u = ID(id)
	default:
		return fmt.Errorf("unsupported type for ID: %T", value)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (u ID) MarshalJSON() ([]byte, error) {
	if u.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*u = ID{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid ID JSON: %s", string(data))
	}
	s := string(data[1 : len(data)-1])
	if s == "" {
		*u = ID{}
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("parsing ID JSON: %w", err)
	}
	*u = ID(id)
	return nil
}

// GormDataType returns the GORM data type for ID.
func (ID) GormDataType() string {
	return "varchar(36)"
}

// BaseModel provides common fields for all models with UUID as primary key.
type BaseModel struct {
	ID        ID             `gorm:"primarykey;type:varchar(36)" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate generates an ID if not already set.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID.IsZero() {
		b.ID = NewID()
	}
	return nil
}

// GetID returns the identifier.
func (b *BaseModel) GetID() ID {
	return b.ID
}
