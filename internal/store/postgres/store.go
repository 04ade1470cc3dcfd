// Package postgres implements the domain repositories on pgx connection
// pools. One repo per aggregate, all sharing a single pool owned by Store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolohq/tavolo/internal/domain"
)

type Store struct {
	pool        *pgxpool.Pool
	tenants     *TenantRepo
	users       *UserRepo
	memberships *MembershipRepo
	boards      *BoardRepo
	todos       *TodoRepo
	activities  *ActivityRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:        pool,
		tenants:     NewTenantRepo(pool),
		users:       NewUserRepo(pool),
		memberships: NewMembershipRepo(pool),
		boards:      NewBoardRepo(pool),
		todos:       NewTodoRepo(pool),
		activities:  NewActivityRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Tenants() domain.TenantRepository         { return s.tenants }
func (s *Store) Users() domain.UserRepository             { return s.users }
func (s *Store) Memberships() domain.MembershipRepository { return s.memberships }
func (s *Store) Boards() domain.BoardRepository           { return s.boards }
func (s *Store) Todos() domain.TodoRepository             { return s.todos }
func (s *Store) Activities() domain.ActivityRepository    { return s.activities }

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation, which the repos surface as domain.ErrConflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
