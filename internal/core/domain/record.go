package domain

import (
	"encoding/json"
	"errors"
	"regexp"
	"time"
)

var (
	ErrInvalidKey    = errors.New("invalid key")
	ErrInvalidName   = errors.New("invalid name")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrConflict      = errors.New("concurrent modification")
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9._:/-]+$`)

// Record is one row of a declared entity: opaque JSON data keyed by tenant,
// entity name and id.
type Record struct {
	TenantID  string          `json:"tenant_id"`
	Entity    string          `json:"entity"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (r Record) Validate() error {
	if err := ValidateKey(r.TenantID); err != nil {
		return err
	}
	if err := ValidateName(r.Entity); err != nil {
		return err
	}
	if err := ValidateKey(r.ID); err != nil {
		return err
	}
	if !json.Valid(r.Data) {
		return errors.New("record data must be valid json")
	}
	return nil
}

func ValidateKey(key string) error {
	if key == "" || !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

func ValidateName(name string) error {
	if name == "" || !keyPattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

type RecordListFilter struct {
	After string
	Limit int
}
