package v1_test

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
	"github.com/tavolohq/tavolo/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers — inject the authenticated user for DoCtx
// ---------------------------------------------------------------------------

func userCtx(userID uuid.UUID) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyUserID, userID)
}

// ---------------------------------------------------------------------------
// Mock DataStore
// ---------------------------------------------------------------------------

type mockDataStore struct {
	tenants     domain.TenantRepository
	users       domain.UserRepository
	memberships domain.MembershipRepository
	boards      domain.BoardRepository
	todos       domain.TodoRepository
	activities  domain.ActivityRepository
}

func (m *mockDataStore) Tenants() domain.TenantRepository         { return m.tenants }
func (m *mockDataStore) Users() domain.UserRepository             { return m.users }
func (m *mockDataStore) Memberships() domain.MembershipRepository { return m.memberships }
func (m *mockDataStore) Boards() domain.BoardRepository           { return m.boards }
func (m *mockDataStore) Todos() domain.TodoRepository             { return m.todos }
func (m *mockDataStore) Activities() domain.ActivityRepository    { return m.activities }

// ---------------------------------------------------------------------------
// Mock TenantRepository
// ---------------------------------------------------------------------------

type mockTenantRepo struct {
	createFunc      func(ctx context.Context, t *domain.Tenant) error
	getByIDFunc     func(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	getBySlugFunc   func(ctx context.Context, slug string) (*domain.Tenant, error)
	updateFunc      func(ctx context.Context, t *domain.Tenant) error
	listForUserFunc func(ctx context.Context, userID uuid.UUID) ([]*domain.Tenant, error)
}

func (m *mockTenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	return m.createFunc(ctx, t)
}

func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return m.getBySlugFunc(ctx, slug)
}

func (m *mockTenantRepo) Update(ctx context.Context, t *domain.Tenant) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTenantRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Tenant, error) {
	return m.listForUserFunc(ctx, userID)
}

// ---------------------------------------------------------------------------
// Mock UserRepository
// ---------------------------------------------------------------------------

type mockUserRepo struct {
	createFunc  func(ctx context.Context, u *domain.User) error
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) error {
	return m.createFunc(ctx, u)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.getByIDFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.getByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) Update(context.Context, *domain.User) error { return nil }

// ---------------------------------------------------------------------------
// Mock MembershipRepository
// ---------------------------------------------------------------------------

type mockMembershipRepo struct {
	createFunc       func(ctx context.Context, m *domain.Membership) error
	getFunc          func(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error)
	listByTenantFunc func(ctx context.Context, tenantID uuid.UUID) ([]*domain.Membership, error)
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockMembershipRepo) Create(ctx context.Context, mem *domain.Membership) error {
	return m.createFunc(ctx, mem)
}

func (m *mockMembershipRepo) Get(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	return m.getFunc(ctx, userID, tenantID)
}

func (m *mockMembershipRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Membership, error) {
	return m.listByTenantFunc(ctx, tenantID)
}

func (m *mockMembershipRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

// ---------------------------------------------------------------------------
// Mock BoardRepository
// ---------------------------------------------------------------------------

type mockBoardRepo struct {
	createFunc           func(ctx context.Context, b *domain.Board) error
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*domain.Board, error)
	getByIDAndTenantFunc func(ctx context.Context, tenantID, id uuid.UUID) (*domain.Board, error)
	listByTenantFunc     func(ctx context.Context, tenantID uuid.UUID) ([]*domain.Board, error)
	existsByNameFunc     func(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
	updateFunc           func(ctx context.Context, b *domain.Board) error
	deleteFunc           func(ctx context.Context, tenantID, id uuid.UUID) error
}

func (m *mockBoardRepo) Create(ctx context.Context, b *domain.Board) error {
	return m.createFunc(ctx, b)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockBoardRepo) GetByIDAndTenant(ctx context.Context, tenantID, id uuid.UUID) (*domain.Board, error) {
	return m.getByIDAndTenantFunc(ctx, tenantID, id)
}

func (m *mockBoardRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Board, error) {
	return m.listByTenantFunc(ctx, tenantID)
}

func (m *mockBoardRepo) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	if m.existsByNameFunc == nil {
		return false, nil
	}
	return m.existsByNameFunc(ctx, tenantID, name)
}

func (m *mockBoardRepo) Update(ctx context.Context, b *domain.Board) error {
	return m.updateFunc(ctx, b)
}

func (m *mockBoardRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.deleteFunc(ctx, tenantID, id)
}

// ---------------------------------------------------------------------------
// Mock TodoRepository
// ---------------------------------------------------------------------------

type mockTodoRepo struct {
	createFunc       func(ctx context.Context, t *domain.Todo) error
	getByIDFunc      func(ctx context.Context, tenantID, id uuid.UUID) (*domain.Todo, error)
	listByBoardFunc  func(ctx context.Context, tenantID, boardID uuid.UUID) ([]*domain.Todo, error)
	countByBoardFunc func(ctx context.Context, tenantID, boardID uuid.UUID) (int, error)
	nextPositionFunc func(ctx context.Context, tenantID, boardID uuid.UUID) (int, error)
	updateFunc       func(ctx context.Context, t *domain.Todo) error
	deleteFunc       func(ctx context.Context, tenantID, id uuid.UUID) error
}

func (m *mockTodoRepo) Create(ctx context.Context, t *domain.Todo) error {
	return m.createFunc(ctx, t)
}

func (m *mockTodoRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Todo, error) {
	return m.getByIDFunc(ctx, tenantID, id)
}

func (m *mockTodoRepo) ListByBoard(ctx context.Context, tenantID, boardID uuid.UUID) ([]*domain.Todo, error) {
	return m.listByBoardFunc(ctx, tenantID, boardID)
}

func (m *mockTodoRepo) CountByBoard(ctx context.Context, tenantID, boardID uuid.UUID) (int, error) {
	if m.countByBoardFunc == nil {
		return 0, nil
	}
	return m.countByBoardFunc(ctx, tenantID, boardID)
}

func (m *mockTodoRepo) NextPosition(ctx context.Context, tenantID, boardID uuid.UUID) (int, error) {
	if m.nextPositionFunc == nil {
		return 0, nil
	}
	return m.nextPositionFunc(ctx, tenantID, boardID)
}

func (m *mockTodoRepo) Update(ctx context.Context, t *domain.Todo) error {
	return m.updateFunc(ctx, t)
}

func (m *mockTodoRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.deleteFunc(ctx, tenantID, id)
}

// ---------------------------------------------------------------------------
// Mock ActivityRepository
// ---------------------------------------------------------------------------

type mockActivityRepo struct {
	mu       sync.Mutex
	created  []*domain.Activity
	createErr error

	listByBoardFunc func(ctx context.Context, tenantID, boardID uuid.UUID, limit int) ([]*domain.Activity, error)
}

func (m *mockActivityRepo) Create(_ context.Context, a *domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, a)
	return m.createErr
}

func (m *mockActivityRepo) ListByBoard(ctx context.Context, tenantID, boardID uuid.UUID, limit int) ([]*domain.Activity, error) {
	return m.listByBoardFunc(ctx, tenantID, boardID, limit)
}

func (m *mockActivityRepo) actions() []domain.ActivityAction {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.ActivityAction, len(m.created))
	for i, a := range m.created {
		out[i] = a.Action
	}
	return out
}

// ---------------------------------------------------------------------------
// Recording broadcaster
// ---------------------------------------------------------------------------

type broadcastCall struct {
	scopeKind string
	scopeID   uuid.UUID
	event     *events.Event
	exclude   uuid.UUID
}

type mockBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (m *mockBroadcaster) ToBoard(_ context.Context, boardID uuid.UUID, ev *events.Event, excludeUserID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, broadcastCall{scopeKind: "board", scopeID: boardID, event: ev, exclude: excludeUserID})
	return nil
}

func (m *mockBroadcaster) ToTenant(_ context.Context, tenantID uuid.UUID, ev *events.Event, excludeUserID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, broadcastCall{scopeKind: "tenant", scopeID: tenantID, event: ev, exclude: excludeUserID})
	return nil
}

func (m *mockBroadcaster) all() []broadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]broadcastCall(nil), m.calls...)
}

// ---------------------------------------------------------------------------
// Recording notifier
// ---------------------------------------------------------------------------

type notification struct {
	assignee *domain.User
	todo     *domain.Todo
	board    *domain.Board
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (m *mockNotifier) TodoAssigned(_ context.Context, assignee *domain.User, todo *domain.Todo, board *domain.Board) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notification{assignee: assignee, todo: todo, board: board})
}

func (m *mockNotifier) all() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notification(nil), m.calls...)
}

// ---------------------------------------------------------------------------
// Fixture builders
// ---------------------------------------------------------------------------

type fixture struct {
	userID   uuid.UUID
	tenant   *domain.Tenant
	board    *domain.Board
	tenants  *mockTenantRepo
	members  *mockMembershipRepo
	boards   *mockBoardRepo
}

// newFixture wires a tenant the user belongs to (with the given role) and a
// board owned by ownerID.
func newFixture(role domain.TenantRole, boardOwnerID uuid.UUID) *fixture {
	f := &fixture{userID: uuid.New()}
	f.tenant = &domain.Tenant{ID: uuid.New(), Name: "Acme", Slug: "acme"}
	f.board = &domain.Board{
		ID:          uuid.New(),
		TenantID:    f.tenant.ID,
		Name:        "Sprint",
		CreatedByID: boardOwnerID,
	}

	f.tenants = &mockTenantRepo{
		getBySlugFunc: func(_ context.Context, slug string) (*domain.Tenant, error) {
			if slug == f.tenant.Slug {
				return f.tenant, nil
			}
			return nil, domain.ErrNotFound
		},
	}
	f.members = &mockMembershipRepo{
		getFunc: func(_ context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
			if userID == f.userID && tenantID == f.tenant.ID {
				return &domain.Membership{UserID: userID, TenantID: tenantID, Role: role}, nil
			}
			return nil, domain.ErrNotFound
		},
	}
	f.boards = &mockBoardRepo{
		getByIDAndTenantFunc: func(_ context.Context, tenantID, id uuid.UUID) (*domain.Board, error) {
			if tenantID == f.tenant.ID && id == f.board.ID {
				return f.board, nil
			}
			return nil, domain.ErrNotFound
		},
	}

	return f
}
