package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scalegrid/types"
)

// InitDatabase initializes and returns a catalog connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sample_id TEXT NOT NULL UNIQUE,
		session_id TEXT,
		folder_path TEXT,
		created_at TEXT
	);
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		sample_id TEXT NOT NULL,
		databar_label TEXT,
		magnification REAL,
		fov_width REAL,
		fov_height REAL,
		position_x REAL,
		position_y REAL,
		detector TEXT,
		high_voltage_kv REAL,
		working_distance_mm REAL,
		acquired_at TEXT,
		indexed_at TEXT,
		UNIQUE(path, sample_id)
	);
	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		sample_id TEXT NOT NULL,
		file_path TEXT,
		image_count INTEGER,
		created_at TEXT,
		UNIQUE(name, sample_id)
	);
	CREATE INDEX IF NOT EXISTS idx_images_path ON images(path);
	CREATE INDEX IF NOT EXISTS idx_images_sample ON images(sample_id);
	CREATE INDEX IF NOT EXISTS idx_collections_sample ON collections(sample_id);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// OpenDatabase opens an existing catalog connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// RegisterSample records a sample in the catalog, ignoring duplicates
func RegisterSample(db *sql.DB, sampleID, sessionID, folderPath string) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO samples (sample_id, session_id, folder_path, created_at)
		VALUES (?, ?, ?, ?)`,
		sampleID, sessionID, folderPath, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cannot register sample %s: %v", sampleID, err)
	}
	return nil
}

// StoreImageMetadata stores one image's extracted metadata in the catalog
func StoreImageMetadata(db *sql.DB, sampleID string, meta types.ImageMetadata, forceRewrite bool) error {
	now := time.Now().Format(time.RFC3339)

	var stmt *sql.Stmt
	var insertErr error

	if forceRewrite {
		stmt, insertErr = db.Prepare(`
			INSERT OR REPLACE INTO images (
				path, sample_id, databar_label, magnification, fov_width, fov_height,
				position_x, position_y, detector, high_voltage_kv, working_distance_mm,
				acquired_at, indexed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
	} else {
		stmt, insertErr = db.Prepare(`
			INSERT OR IGNORE INTO images (
				path, sample_id, databar_label, magnification, fov_width, fov_height,
				position_x, position_y, detector, high_voltage_kv, working_distance_mm,
				acquired_at, indexed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
	}

	if insertErr != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", meta.Path, insertErr)
	}
	defer stmt.Close()

	_, err := stmt.Exec(
		meta.Path,
		sampleID,
		meta.DatabarLabel,
		meta.Magnification,
		nullableFloat(meta.FieldOfViewWidth),
		nullableFloat(meta.FieldOfViewHeight),
		nullableFloat(meta.SamplePositionX),
		nullableFloat(meta.SamplePositionY),
		meta.Detector,
		meta.HighVoltageKV,
		meta.WorkingDistanceMM,
		meta.AcquiredAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %v", meta.Path, err)
	}

	return nil
}

// RegisterCollection records a saved collection file in the catalog
func RegisterCollection(db *sql.DB, name, sampleID, filePath string, imageCount int) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO collections (name, sample_id, file_path, image_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		name, sampleID, filePath, imageCount, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cannot register collection %s: %v", name, err)
	}
	return nil
}

// CollectionRecord is one catalog row describing a saved collection
type CollectionRecord struct {
	Name       string
	SampleID   string
	FilePath   string
	ImageCount int
	CreatedAt  string
}

// ListCollections returns the catalog's collections for a sample, newest
// first
func ListCollections(db *sql.DB, sampleID string) ([]CollectionRecord, error) {
	rows, err := db.Query(`
		SELECT name, sample_id, file_path, image_count, created_at
		FROM collections WHERE sample_id = ? ORDER BY created_at DESC, name`, sampleID)
	if err != nil {
		return nil, fmt.Errorf("cannot list collections for %s: %v", sampleID, err)
	}
	defer rows.Close()

	var records []CollectionRecord
	for rows.Next() {
		var rec CollectionRecord
		if err := rows.Scan(&rec.Name, &rec.SampleID, &rec.FilePath, &rec.ImageCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("cannot scan collection row: %v", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SampleStats contains statistics about one sample's cataloged data
type SampleStats struct {
	TotalImages     int
	MissingGeometry int
	Collections     int
}

// GetSampleStats retrieves statistics about a sample's indexed images
func GetSampleStats(db *sql.DB, sampleID string) (*SampleStats, error) {
	var stats SampleStats

	err := db.QueryRow("SELECT COUNT(*) FROM images WHERE sample_id = ?", sampleID).
		Scan(&stats.TotalImages)
	if err != nil {
		return nil, fmt.Errorf("failed to get total images: %v", err)
	}

	err = db.QueryRow(`
		SELECT COUNT(*) FROM images WHERE sample_id = ?
		AND (fov_width IS NULL OR fov_height IS NULL OR position_x IS NULL OR position_y IS NULL)`,
		sampleID).Scan(&stats.MissingGeometry)
	if err != nil {
		return nil, fmt.Errorf("failed to count images missing geometry: %v", err)
	}

	err = db.QueryRow("SELECT COUNT(*) FROM collections WHERE sample_id = ?", sampleID).
		Scan(&stats.Collections)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection count: %v", err)
	}

	return &stats, nil
}

// nullableFloat maps an absent geometry field to SQL NULL
func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
