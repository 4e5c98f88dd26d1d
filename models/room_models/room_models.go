package room_models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joy095/reservation/logger"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrInvalidRoom  = errors.New("invalid room")
)

// RoomStatus is the operational state of the room itself. It is independent
// of bookings and does not affect admission.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room is a bookable unit. NightlyPrice is in the smallest currency unit.
type Room struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	NightlyPrice int64      `json:"nightly_price"`
	Capacity     int        `json:"capacity"`
	Size         string     `json:"size,omitempty"`
	Description  string     `json:"description,omitempty"`
	Amenities    []string   `json:"amenities"`
	Status       RoomStatus `json:"status"`
	CurrentGuest *string    `json:"current_guest,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Validate checks the fields the core relies on.
func (r *Room) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidRoom)
	case strings.TrimSpace(r.Type) == "":
		return fmt.Errorf("%w: type is required", ErrInvalidRoom)
	case r.NightlyPrice <= 0:
		return fmt.Errorf("%w: nightly price must be positive", ErrInvalidRoom)
	case r.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidRoom)
	}
	if r.Status == "" {
		r.Status = RoomStatusAvailable
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return err
	}
	if r.Amenities == nil {
		r.Amenities = []string{}
	}
	return nil
}

// ParseStatus accepts the wire form of a room status.
func ParseStatus(s string) (RoomStatus, error) {
	switch RoomStatus(strings.ToLower(s)) {
	case RoomStatusAvailable:
		return RoomStatusAvailable, nil
	case RoomStatusOccupied:
		return RoomStatusOccupied, nil
	case RoomStatusMaintenance:
		return RoomStatusMaintenance, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRoom, s)
}

// Catalog is the room store. The booking core only reads from it.
type Catalog interface {
	Get(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]Room, error)
	Create(ctx context.Context, r *Room) error
	Update(ctx context.Context, r *Room) error
	SetStatus(ctx context.Context, id string, status RoomStatus, currentGuest *string) (*Room, error)
}

// PgCatalog reads and writes the rooms table.
type PgCatalog struct {
	DB *pgxpool.Pool
}

func NewPgCatalog(db *pgxpool.Pool) *PgCatalog {
	return &PgCatalog{DB: db}
}

const roomColumns = `id, name, room_type, nightly_price, capacity, size, description, amenities, status, current_guest, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var (
		r      Room
		status string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Type, &r.NightlyPrice, &r.Capacity, &r.Size, &r.Description,
		&r.Amenities, &status, &r.CurrentGuest, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = RoomStatus(status)
	return &r, nil
}

func (c *PgCatalog) Get(ctx context.Context, id string) (*Room, error) {
	r, err := scanRoom(c.DB.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch room %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching room: %w", err)
	}
	return r, nil
}

func (c *PgCatalog) List(ctx context.Context) ([]Room, error) {
	rows, err := c.DB.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

func (c *PgCatalog) Create(ctx context.Context, r *Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now

	_, err := c.DB.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.Name, r.Type, r.NightlyPrice, r.Capacity, r.Size, r.Description,
		r.Amenities, string(r.Status), r.CurrentGuest, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrRoomExists
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	logger.InfoLogger.Infof("Room %s created", r.ID)
	return nil
}

func (c *PgCatalog) Update(ctx context.Context, r *Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.UpdatedAt = time.Now()

	tag, err := c.DB.Exec(ctx, `
		UPDATE rooms
		SET name = $2, room_type = $3, nightly_price = $4, capacity = $5, size = $6,
		    description = $7, amenities = $8, status = $9, current_guest = $10, updated_at = $11
		WHERE id = $1`,
		r.ID, r.Name, r.Type, r.NightlyPrice, r.Capacity, r.Size, r.Description,
		r.Amenities, string(r.Status), r.CurrentGuest, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (c *PgCatalog) SetStatus(ctx context.Context, id string, status RoomStatus, currentGuest *string) (*Room, error) {
	r, err := scanRoom(c.DB.QueryRow(ctx, `
		UPDATE rooms SET status = $2, current_guest = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+roomColumns,
		id, string(status), currentGuest))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update room status: %w", err)
	}
	return r, nil
}

// MemoryCatalog is an in-process Catalog for development and tests.
type MemoryCatalog struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

// NewMemoryCatalog seeds the catalog with rooms.
func NewMemoryCatalog(rooms ...Room) *MemoryCatalog {
	c := &MemoryCatalog{rooms: make(map[string]Room)}
	for _, r := range rooms {
		r := r
		if err := c.Create(context.Background(), &r); err != nil {
			logger.WarnLogger.Warnf("Skipping seed room %q: %v", r.ID, err)
		}
	}
	return c
}

func (c *MemoryCatalog) Get(_ context.Context, id string) (*Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &r, nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]Room, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rooms := make([]Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (c *MemoryCatalog) Create(_ context.Context, r *Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.rooms[r.ID]; exists {
		return ErrRoomExists
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	c.rooms[r.ID] = *r
	return nil
}

func (c *MemoryCatalog) Update(_ context.Context, r *Room) error {
	if err := r.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.rooms[r.ID]
	if !ok {
		return ErrRoomNotFound
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	c.rooms[r.ID] = *r
	return nil
}

func (c *MemoryCatalog) SetStatus(_ context.Context, id string, status RoomStatus, currentGuest *string) (*Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.Status = status
	r.CurrentGuest = currentGuest
	r.UpdatedAt = time.Now()
	c.rooms[id] = r
	return &r, nil
}

var (
	_ Catalog = (*PgCatalog)(nil)
	_ Catalog = (*MemoryCatalog)(nil)
)
