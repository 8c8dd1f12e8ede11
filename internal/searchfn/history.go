package searchfn

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const scanBucketName = "scans"

// ScanRecord is one completed scan as persisted in history.
type ScanRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ImagePath  string    `json:"image_path"`
	TotalFound int       `json:"total_found"`
	CreatedAt  time.Time `json:"created_at"`
}

// History defines the interface for scan history persistence.
type History interface {
	// SaveScan stores one completed scan.
	SaveScan(record *ScanRecord) error

	// ListScans returns all records for a user, newest first.
	ListScans(userID string) ([]*ScanRecord, error)

	// Close closes the database connection.
	Close() error
}

// BoltHistory implements the History interface using BoltDB.
type BoltHistory struct {
	db *bbolt.DB
}

// NewBoltHistory opens (or creates) a history database at path.
func NewBoltHistory(path string) (*BoltHistory, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(scanBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltHistory{db: db}, nil
}

// SaveScan stores one completed scan.
func (b *BoltHistory) SaveScan(record *ScanRecord) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling scan record: %w", err)
		}
		// Key on created-at then id so iteration order is chronological.
		key := fmt.Sprintf("%020d-%s", record.CreatedAt.UnixNano(), record.ID)
		return bucket.Put([]byte(key), data)
	})
}

// ListScans returns all records for a user, newest first.
func (b *BoltHistory) ListScans(userID string) ([]*ScanRecord, error) {
	records := make([]*ScanRecord, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(scanBucketName))
		cursor := bucket.Cursor()
		for k, v := cursor.Last(); k != nil; k, v = cursor.Prev() {
			var record ScanRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling scan record: %w", err)
			}
			if record.UserID == userID {
				records = append(records, &record)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database connection.
func (b *BoltHistory) Close() error {
	return b.db.Close()
}
