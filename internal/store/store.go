// Package store persists templates, plant configurations and generated
// labels. Each row carries the full JSON document plus the columns needed
// to filter on.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Clock lets tests pin record timestamps.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func encodeDocument(v interface{}) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return datatypes.JSON(b), nil
}

func decodeDocument(doc datatypes.JSON, v interface{}) error {
	if err := json.Unmarshal(doc, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
