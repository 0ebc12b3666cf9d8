package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fleet-tracker/pkg/ontology"

	"github.com/mattn/go-sqlite3"
)

// TruckStore is the sqlite-backed truck registry.
type TruckStore struct {
	db *sql.DB
}

func NewTruckStore(db *sql.DB) *TruckStore {
	return &TruckStore{db: db}
}

const truckColumns = `document_id, identifier, model, latitude, longitude, position_updated_at, key, created_at, updated_at`

func (s *TruckStore) Create(truck *ontology.Truck) error {
	var latitude, longitude, positionUpdatedAt interface{}
	if truck.Position != nil {
		latitude = truck.Position.Latitude
		longitude = truck.Position.Longitude
	}
	if truck.PositionUpdatedAt != nil {
		positionUpdatedAt = truck.PositionUpdatedAt.Format(time.RFC3339)
	}

	_, err := s.db.Exec(
		`INSERT INTO trucks (`+truckColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		truck.DocumentID, truck.Identifier, truck.Model, latitude, longitude, positionUpdatedAt,
		truck.Key, truck.CreatedAt.Format(time.RFC3339), truck.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ontology.ErrDuplicateIdentifier
		}
		return fmt.Errorf("failed to create truck: %w", err)
	}

	return nil
}

func (s *TruckStore) FindByIdentifier(identifier string) (*ontology.Truck, error) {
	row := s.db.QueryRow(
		`SELECT `+truckColumns+` FROM trucks WHERE identifier = ?`, identifier,
	)

	truck, err := s.scanTruck(row)
	if err == sql.ErrNoRows {
		return nil, ontology.ErrTruckNotFound
	}
	if err != nil {
		return nil, err
	}

	return truck, nil
}

func (s *TruckStore) FindAll() ([]ontology.Truck, error) {
	rows, err := s.db.Query(`SELECT ` + truckColumns + ` FROM trucks`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trucks: %w", err)
	}
	defer rows.Close()

	var trucks []ontology.Truck
	for rows.Next() {
		truck, err := s.scanTruck(rows)
		if err != nil {
			return nil, err
		}
		trucks = append(trucks, *truck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trucks: %w", err)
	}

	return trucks, nil
}

// UpdateByID writes the new position, and the change timestamp when the
// update carries one, as a single statement so both fields commit together.
func (s *TruckStore) UpdateByID(documentID string, update ontology.PositionUpdate) (*ontology.Truck, error) {
	query := `UPDATE trucks SET latitude = ?, longitude = ?, updated_at = ?`
	args := []interface{}{
		update.Position.Latitude,
		update.Position.Longitude,
		time.Now().UTC().Format(time.RFC3339),
	}

	if update.PositionUpdatedAt != nil {
		query += `, position_updated_at = ?`
		args = append(args, update.PositionUpdatedAt.Format(time.RFC3339))
	}

	query += ` WHERE document_id = ?`
	args = append(args, documentID)

	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update truck: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, ontology.ErrTruckNotFound
	}

	return s.findByDocumentID(documentID)
}

func (s *TruckStore) findByDocumentID(documentID string) (*ontology.Truck, error) {
	row := s.db.QueryRow(
		`SELECT `+truckColumns+` FROM trucks WHERE document_id = ?`, documentID,
	)

	truck, err := s.scanTruck(row)
	if err == sql.ErrNoRows {
		return nil, ontology.ErrTruckNotFound
	}
	if err != nil {
		return nil, err
	}

	return truck, nil
}

func (s *TruckStore) scanTruck(scanner interface{ Scan(...interface{}) error }) (*ontology.Truck, error) {
	var truck ontology.Truck
	var lat, lon sql.NullFloat64
	var positionUpdatedAt sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&truck.DocumentID, &truck.Identifier, &truck.Model,
		&lat, &lon, &positionUpdatedAt,
		&truck.Key, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan truck: %w", err)
	}

	if lat.Valid && lon.Valid {
		truck.Position = &ontology.Position{
			Latitude:  lat.Float64,
			Longitude: lon.Float64,
		}
	}
	if positionUpdatedAt.Valid {
		t, err := time.Parse(time.RFC3339, positionUpdatedAt.String)
		if err == nil {
			truck.PositionUpdatedAt = &t
		}
	}

	truck.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	truck.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &truck, nil
}
