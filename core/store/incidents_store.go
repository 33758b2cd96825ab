package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"incident-desk/core/utils"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("not found")

const (
	StatusPending  = "Pending"
	StatusResolved = "Resolved"
)

type Incident struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Priority    string    `json:"priority" db:"priority"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IncidentFilter narrows ListIncidents. Search matches title or priority as a
// case-insensitive substring; an empty Search returns everything.
type IncidentFilter struct {
	Search string
}

type IncidentsStore interface {
	CreateIncident(ctx context.Context, incident *Incident) (int64, error)
	GetIncident(ctx context.Context, id int64) (*Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error)
	ToggleIncidentStatus(ctx context.Context, id int64) (*Incident, error)
	DeleteIncident(ctx context.Context, id int64) error
}

type incidentsStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewIncidentsStore(db *sqlx.DB) IncidentsStore {
	return &incidentsStore{db: db, now: utils.NowUTC}
}

// NewIncidentsStoreWithClock is NewIncidentsStore with an injectable clock.
func NewIncidentsStoreWithClock(db *sqlx.DB, now func() time.Time) IncidentsStore {
	if now == nil {
		now = utils.NowUTC
	}
	return &incidentsStore{db: db, now: now}
}

const incidentColumns = `id, title, description, priority, status, created_at`

func (s *incidentsStore) CreateIncident(ctx context.Context, incident *Incident) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	incident.Status = StatusPending
	incident.CreatedAt = s.now().UTC()
	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO incidents(title, description, priority, status, created_at)
		VALUES(?,?,?,?,?) RETURNING id`),
		incident.Title, incident.Description, incident.Priority, incident.Status, incident.CreatedAt).Scan(&id)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	incident.ID = id
	return id, nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id int64) (*Incident, error) {
	var inc Incident
	err := s.db.GetContext(ctx, &inc, s.db.Rebind(`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	inc.CreatedAt = inc.CreatedAt.UTC()
	return &inc, nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents`
	var args []any
	if filter.Search != "" {
		query += ` WHERE (LOWER(title) LIKE ? ESCAPE '\' OR LOWER(priority) LIKE ? ESCAPE '\')`
		q := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		args = append(args, q, q)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	res := []Incident{}
	if err := s.db.SelectContext(ctx, &res, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].CreatedAt = res[i].CreatedAt.UTC()
	}
	return res, nil
}

// ToggleIncidentStatus flips the status in a single UPDATE so concurrent
// toggles serialize on the row instead of racing on a read-modify-write.
func (s *incidentsStore) ToggleIncidentStatus(ctx context.Context, id int64) (*Incident, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE incidents SET status = CASE WHEN status=? THEN ? ELSE ? END WHERE id=?`),
		StatusPending, StatusResolved, StatusPending, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return nil, ErrNotFound
	}
	var inc Incident
	if err := tx.GetContext(ctx, &inc, tx.Rebind(`SELECT `+incidentColumns+` FROM incidents WHERE id=?`), id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	inc.CreatedAt = inc.CreatedAt.UTC()
	return &inc, nil
}

func (s *incidentsStore) DeleteIncident(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM incidents WHERE id=?`), id)
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback()
		return ErrNotFound
	}
	return tx.Commit()
}

func escapeLike(val string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(val)
}
