package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventhub-ticketing/internal/config"
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite"
)

const mysqlDuplicateEntry = 1062

// SQLStore implements Store on bun. MySQL is the production backend; SQLite
// serves single-node deployments and tests through the same queries.
type SQLStore struct {
	db   *bun.DB
	log  *logger.Logger
	name string
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*SQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	sqldb, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	return newSQLStore(sqldb, mysqldialect.New(), "mysql", log)
}

// NewSQLiteStore opens a SQLite database; dsn is passed to modernc.org/sqlite.
func NewSQLiteStore(dsn string, log *logger.Logger) (*SQLStore, error) {
	log.LogDatabase("CONNECT", "sqlite", "Opening SQLite database "+dsn)

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Error("DATABASE", "Failed to open SQLite database: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	sqldb.SetMaxOpenConns(1)

	return newSQLStore(sqldb, sqlitedialect.New(), "sqlite", log)
}

func newSQLStore(sqldb *sql.DB, dialect schema.Dialect, name string, log *logger.Logger) (*SQLStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Error("DATABASE", fmt.Sprintf("Failed to ping %s: %s", name, err.Error()))
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLStore{
		db:   bun.NewDB(sqldb, dialect),
		log:  log,
		name: name,
	}

	if err := store.initTables(ctx); err != nil {
		log.Error("DATABASE", "Failed to initialize tables: "+err.Error())
		_ = store.db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	log.LogDatabase("SUCCESS", name, "Connection established and tables initialized")
	return store, nil
}

// DB exposes the bun handle for the migration tool.
func (s *SQLStore) DB() *bun.DB {
	return s.db
}

func (s *SQLStore) initTables(ctx context.Context) error {
	tables := []any{
		(*models.Event)(nil),
		(*models.TicketType)(nil),
		(*models.Attendee)(nil),
		(*models.Order)(nil),
		(*models.Ticket)(nil),
		(*models.CheckInLogEntry)(nil),
	}
	for _, model := range tables {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
	}{
		{(*models.Ticket)(nil), "idx_tickets_event", []string{"event_id"}},
		{(*models.Ticket)(nil), "idx_tickets_order", []string{"order_id"}},
		{(*models.Ticket)(nil), "idx_tickets_user", []string{"user_id"}},
		{(*models.Order)(nil), "idx_orders_user", []string{"user_id"}},
		{(*models.CheckInLogEntry)(nil), "idx_check_in_logs_event", []string{"event_id", "created_at"}},
	}
	for _, idx := range indexes {
		q := s.db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...)
		if s.name == "sqlite" {
			q = q.IfNotExists()
		}
		if _, err := q.Exec(ctx); err != nil && !isDuplicateIndex(err) {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	s.log.LogDatabase("MIGRATE", s.name, "Schema ready")
	return nil
}

func (s *SQLStore) SaveEvent(ctx context.Context, event *models.Event) error {
	s.log.LogDatabase("INSERT", s.name, fmt.Sprintf("Saving event %s", event.ID))
	if _, err := s.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *SQLStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	event := new(models.Event)
	if err := s.db.NewSelect().Model(event).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, s.notFound(err, ErrEventNotFound, "event", id)
	}
	return event, nil
}

func (s *SQLStore) SaveTicketType(ctx context.Context, tt *models.TicketType) error {
	s.log.LogDatabase("INSERT", s.name, fmt.Sprintf("Saving ticket type %s", tt.ID))
	if _, err := s.db.NewInsert().Model(tt).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save ticket type: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	tt := new(models.TicketType)
	if err := s.db.NewSelect().Model(tt).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, s.notFound(err, ErrTicketTypeNotFound, "ticket type", id)
	}
	return tt, nil
}

func (s *SQLStore) SaveAttendee(ctx context.Context, a *models.Attendee) error {
	if _, err := s.db.NewInsert().Model(a).Exec(ctx); err != nil {
		return fmt.Errorf("failed to save attendee: %w", err)
	}
	return nil
}

func (s *SQLStore) GetAttendee(ctx context.Context, id string) (*models.Attendee, error) {
	a := new(models.Attendee)
	if err := s.db.NewSelect().Model(a).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, s.notFound(err, ErrAttendeeNotFound, "attendee", id)
	}
	return a, nil
}

func (s *SQLStore) SaveOrder(ctx context.Context, order *models.Order) error {
	s.log.LogDatabase("INSERT", s.name, fmt.Sprintf("Saving order %s", order.ID))
	if _, err := s.db.NewInsert().Model(order).Exec(ctx); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save order %s: %s", order.ID, err.Error()))
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (s *SQLStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order := new(models.Order)
	if err := s.db.NewSelect().Model(order).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, s.notFound(err, ErrOrderNotFound, "order", id)
	}
	return order, nil
}

func (s *SQLStore) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	var orders []*models.Order
	q := paginate(s.db.NewSelect().Model(&orders).Where("user_id = ?", userID).Order("created_at DESC"), limit, offset)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *SQLStore) MarkOrderTicketsIssued(ctx context.Context, orderID string) (bool, error) {
	s.log.LogDatabase("UPDATE", s.name, fmt.Sprintf("Marking order %s as issued", orderID))

	res, err := s.db.NewUpdate().Model((*models.Order)(nil)).
		Set("tickets_issued = ?", true).
		Where("id = ?", orderID).
		Where("tickets_issued = ?", false).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to mark order issued: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	exists, err := s.db.NewSelect().Model((*models.Order)(nil)).Where("id = ?", orderID).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check order: %w", err)
	}
	if !exists {
		return false, ErrOrderNotFound
	}
	return false, nil
}

func (s *SQLStore) SaveTickets(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	s.log.LogDatabase("INSERT", s.name, fmt.Sprintf("Saving %d tickets for order %s", len(tickets), tickets[0].OrderID))

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&tickets).Exec(ctx)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTicket
		}
		s.log.Error("DATABASE", fmt.Sprintf("Failed to save tickets: %s", err.Error()))
		return fmt.Errorf("failed to save tickets: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTicket(ctx context.Context, id string) (*models.Ticket, error) {
	s.log.LogDatabase("SELECT", s.name, fmt.Sprintf("Fetching ticket %s", id))

	ticket := new(models.Ticket)
	if err := s.db.NewSelect().Model(ticket).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, s.notFound(err, ErrTicketNotFound, "ticket", id)
	}
	return ticket, nil
}

func (s *SQLStore) GetTicketForEvent(ctx context.Context, ticketID, eventID string) (*models.Ticket, error) {
	s.log.LogDatabase("SELECT", s.name, fmt.Sprintf("Fetching ticket %s for event %s", ticketID, eventID))

	ticket := new(models.Ticket)
	err := s.db.NewSelect().Model(ticket).
		Where("id = ?", ticketID).
		Where("event_id = ?", eventID).
		Scan(ctx)
	if err != nil {
		return nil, s.notFound(err, ErrTicketNotFound, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *SQLStore) ListTicketsByOrder(ctx context.Context, orderID string) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	err := s.db.NewSelect().Model(&tickets).
		Where("order_id = ?", orderID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (s *SQLStore) ListTicketsByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Ticket, error) {
	var tickets []*models.Ticket
	q := paginate(s.db.NewSelect().Model(&tickets).
		Where("user_id = ?", userID).
		Order("created_at ASC", "id ASC"), limit, offset)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

func (s *SQLStore) TransitionTicketToUsed(ctx context.Context, ticketID, staffID string, at time.Time) (bool, error) {
	s.log.LogDatabase("UPDATE", s.name, fmt.Sprintf("Conditional check-in of ticket %s", ticketID))

	res, err := s.db.NewUpdate().Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketUsed).
		Set("checked_in_at = ?", at).
		Set("checked_in_by = ?", staffID).
		Set("updated_at = ?", at).
		Where("id = ?", ticketID).
		Where("status = ?", models.TicketValid).
		Exec(ctx)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to check in ticket %s: %s", ticketID, err.Error()))
		return false, fmt.Errorf("failed to update ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	exists, err := s.db.NewSelect().Model((*models.Ticket)(nil)).Where("id = ?", ticketID).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket: %w", err)
	}
	if !exists {
		return false, ErrTicketNotFound
	}
	return false, nil
}

func (s *SQLStore) AppendCheckInLog(ctx context.Context, entry *models.CheckInLogEntry) error {
	if _, err := s.db.NewInsert().Model(entry).Exec(ctx); err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to append check-in log: %s", err.Error()))
		return fmt.Errorf("failed to append check-in log: %w", err)
	}
	return nil
}

func (s *SQLStore) ListCheckInLogs(ctx context.Context, eventID string, limit int) ([]*models.CheckInLogEntry, error) {
	var entries []*models.CheckInLogEntry
	q := s.db.NewSelect().Model(&entries).
		Where("event_id = ?", eventID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list check-in logs: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	s.log.LogDatabase("CLOSE", s.name, "Closing database connection")
	return s.db.Close()
}

func (s *SQLStore) notFound(err error, sentinel error, kind, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		s.log.LogDatabase("NOT_FOUND", s.name, fmt.Sprintf("%s %s not found", kind, id))
		return sentinel
	}
	s.log.Error("DATABASE", fmt.Sprintf("Failed to get %s %s: %s", kind, id, err.Error()))
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

// Both MySQL and SQLite reject OFFSET without LIMIT.
func paginate(q *bun.SelectQuery, limit, offset int) *bun.SelectQuery {
	if limit <= 0 {
		return q
	}
	q = q.Limit(limit)
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isDuplicateIndex(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1061
}
