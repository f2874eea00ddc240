package database

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// likeEscaper neutralizes LIKE metacharacters in user-supplied tag values.
// The backslash doubling must come first so escapes are not re-escaped.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// TreeMarker is the slim row shape the map view consumes.
type TreeMarker struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Species    *string `json:"species,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Status     string  `json:"status"`
	ImageURL   string  `json:"image_url"`
	PreviewURL *string `json:"preview_url,omitempty"`
	UserID     int64   `json:"user_id"`
}

// TreeMapFilters narrows the map listing. Nil/empty fields are skipped.
type TreeMapFilters struct {
	MinLat *float64
	MaxLat *float64
	MinLng *float64
	MaxLng *float64
	Status string
	Tag    string
	UserID *uint
}

// ListTreeMarkers runs a dynamically-built read over the trees table. The
// filter combinations make this a better fit for a query builder than for
// static GORM chains.
func ListTreeMarkers(db *sql.DB, f TreeMapFilters) ([]TreeMarker, error) {
	qb := psql.Select("id", "name", "species", "latitude", "longitude", "status", "image_url", "preview_url", "user_id").
		From("trees").
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("created_at DESC")

	if f.MinLat != nil {
		qb = qb.Where(sq.GtOrEq{"latitude": *f.MinLat})
	}
	if f.MaxLat != nil {
		qb = qb.Where(sq.LtOrEq{"latitude": *f.MaxLat})
	}
	if f.MinLng != nil {
		qb = qb.Where(sq.GtOrEq{"longitude": *f.MinLng})
	}
	if f.MaxLng != nil {
		qb = qb.Where(sq.LtOrEq{"longitude": *f.MaxLng})
	}
	if f.Status != "" {
		qb = qb.Where(sq.Eq{"status": f.Status})
	}
	if f.Tag != "" {
		// tags are stored as a JSON array of strings; the quoted token
		// is escaped so % and _ in a tag match literally
		token := likeEscaper.Replace(fmt.Sprintf("%q", f.Tag))
		qb = qb.Where(sq.Expr(`tags LIKE ? ESCAPE '\'`, "%"+token+"%"))
	}
	if f.UserID != nil {
		qb = qb.Where(sq.Eq{"user_id": *f.UserID})
	}

	sqlStr, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListTreeMarkers: %w", err)
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListTreeMarkers query: %w", err)
	}
	defer rows.Close()

	markers := []TreeMarker{}
	for rows.Next() {
		var m TreeMarker
		if err := rows.Scan(&m.ID, &m.Name, &m.Species, &m.Latitude, &m.Longitude, &m.Status, &m.ImageURL, &m.PreviewURL, &m.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan tree marker row: %w", err)
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}
