package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/mailer"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/errors"
)

// In-memory stores used by the service tests. Rows are stored by value so a
// service only changes state through the store methods.

type fakeTx struct{ calls int }

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type recordedEvent struct {
	Type    events.EventType
	Payload events.Payload
}

type recordingOutbox struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (o *recordingOutbox) Enqueue(_ context.Context, t events.EventType, p events.Payload) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, recordedEvent{Type: t, Payload: p})
	return nil
}

func (o *recordingOutbox) ofType(t events.EventType) []events.Payload {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []events.Payload
	for _, e := range o.events {
		if e.Type == t {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (o *recordingOutbox) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = nil
}

type memClients struct {
	rows map[string]models.Client
}

func newMemClients(cs ...models.Client) *memClients {
	m := &memClients{rows: map[string]models.Client{}}
	for _, c := range cs {
		m.rows[c.ID] = c
	}
	return m
}

func (m *memClients) Create(_ context.Context, c *models.Client) error {
	m.rows[c.ID] = *c
	return nil
}

func (m *memClients) Get(_ context.Context, id string) (*models.Client, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("client", id)
	}
	return &c, nil
}

func (m *memClients) List(context.Context, persistence.ClientFilter) ([]models.Client, error) {
	out := make([]models.Client, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, c)
	}
	return out, nil
}

func (m *memClients) Update(_ context.Context, c *models.Client) error {
	if _, ok := m.rows[c.ID]; !ok {
		return errors.NewNotFoundError("client", c.ID)
	}
	m.rows[c.ID] = *c
	return nil
}

func (m *memClients) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

type memBudgets struct {
	rows map[string]models.Budget
}

func newMemBudgets() *memBudgets { return &memBudgets{rows: map[string]models.Budget{}} }

func (m *memBudgets) Create(_ context.Context, b *models.Budget) error {
	m.rows[b.ID] = *b
	return nil
}

func (m *memBudgets) Get(_ context.Context, id string) (*models.Budget, error) {
	b, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("budget", id)
	}
	return &b, nil
}

func (m *memBudgets) GetForUpdate(ctx context.Context, id string) (*models.Budget, error) {
	return m.Get(ctx, id)
}

func (m *memBudgets) GetByPublicToken(_ context.Context, token string) (*models.Budget, error) {
	for _, b := range m.rows {
		if b.PublicToken == token {
			return &b, nil
		}
	}
	return nil, errors.NewNotFoundError("budget", token)
}

func (m *memBudgets) List(context.Context, persistence.BudgetFilter) ([]models.Budget, error) {
	out := make([]models.Budget, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, b)
	}
	return out, nil
}

func (m *memBudgets) Update(_ context.Context, b *models.Budget) error {
	if _, ok := m.rows[b.ID]; !ok {
		return errors.NewNotFoundError("budget", b.ID)
	}
	m.rows[b.ID] = *b
	return nil
}

func (m *memBudgets) UpdateStatus(_ context.Context, id string, from, to workflow.BudgetStatus) error {
	b, ok := m.rows[id]
	if !ok {
		return errors.NewNotFoundError("budget", id)
	}
	if b.Status != from {
		return errors.NewConflictError("budget", "status", string(b.Status))
	}
	b.Status = to
	m.rows[id] = b
	return nil
}

func (m *memBudgets) SetProject(_ context.Context, id, projectID string) error {
	b := m.rows[id]
	b.ProjectID = &projectID
	m.rows[id] = b
	return nil
}

func (m *memBudgets) ListExpirable(_ context.Context, day time.Time) ([]models.Budget, error) {
	var out []models.Budget
	for _, b := range m.rows {
		if b.Status == workflow.BudgetSent && b.ValidUntil.Before(day) {
			out = append(out, b)
		}
	}
	return out, nil
}

type memPayments struct {
	rows  map[string]models.Payment
	order []string
	// failLock makes GetForUpdate fail before anything is written.
	failLock error
}

func newMemPayments() *memPayments { return &memPayments{rows: map[string]models.Payment{}} }

func (m *memPayments) Create(_ context.Context, p *models.Payment) error {
	m.rows[p.ID] = *p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memPayments) Get(_ context.Context, id string) (*models.Payment, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("payment", id)
	}
	return &p, nil
}

func (m *memPayments) GetForUpdate(ctx context.Context, id string) (*models.Payment, error) {
	if m.failLock != nil {
		return nil, m.failLock
	}
	return m.Get(ctx, id)
}

func (m *memPayments) find(match func(p models.Payment) bool) []models.Payment {
	var out []models.Payment
	for _, id := range m.order {
		if p := m.rows[id]; match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *memPayments) first(match func(p models.Payment) bool, key string) (*models.Payment, error) {
	found := m.find(match)
	if len(found) == 0 {
		return nil, errors.NewNotFoundError("payment", key)
	}
	return &found[0], nil
}

func (m *memPayments) FindByIntentID(_ context.Context, intentID string) (*models.Payment, error) {
	return m.first(func(p models.Payment) bool { return models.Deref(p.StripePaymentIntentID) == intentID }, intentID)
}

func (m *memPayments) FindBySessionID(_ context.Context, sessionID string) (*models.Payment, error) {
	return m.first(func(p models.Payment) bool { return models.Deref(p.StripeSessionID) == sessionID }, sessionID)
}

func (m *memPayments) FindByBudgetAndType(_ context.Context, budgetID string, typ workflow.PaymentType) (*models.Payment, error) {
	return m.first(func(p models.Payment) bool { return p.BudgetID == budgetID && p.Type == typ }, budgetID)
}

func (m *memPayments) FindPendingByBudgetAndType(_ context.Context, budgetID string, typ workflow.PaymentType) (*models.Payment, error) {
	return m.first(func(p models.Payment) bool {
		return p.BudgetID == budgetID && p.Type == typ && p.Status == workflow.PaymentPending
	}, budgetID)
}

func (m *memPayments) FindPendingByAmountAndEmail(_ context.Context, amount int64, email string) ([]models.Payment, error) {
	return m.find(func(p models.Payment) bool {
		return p.Amount == amount && p.CustomerEmail == email && p.Status == workflow.PaymentPending
	}), nil
}

func (m *memPayments) ListByBudget(_ context.Context, budgetID string) ([]models.Payment, error) {
	return m.find(func(p models.Payment) bool { return p.BudgetID == budgetID }), nil
}

func (m *memPayments) List(context.Context, persistence.PaymentFilter) ([]models.Payment, error) {
	return m.find(func(models.Payment) bool { return true }), nil
}

func (m *memPayments) SetCheckout(_ context.Context, id, sessionID, url string) error {
	p := m.rows[id]
	p.StripeSessionID, p.CheckoutURL = &sessionID, &url
	method := models.PaymentMethodStripe
	p.Method = &method
	m.rows[id] = p
	return nil
}

func (m *memPayments) Save(_ context.Context, p *models.Payment) error {
	if _, ok := m.rows[p.ID]; !ok {
		return errors.NewNotFoundError("payment", p.ID)
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memPayments) AttachProject(_ context.Context, budgetID, projectID string) error {
	for id, p := range m.rows {
		if p.BudgetID == budgetID {
			p.ProjectID = &projectID
			m.rows[id] = p
		}
	}
	return nil
}

func (m *memPayments) byType(budgetID string, typ workflow.PaymentType) models.Payment {
	found := m.find(func(p models.Payment) bool { return p.BudgetID == budgetID && p.Type == typ })
	if len(found) == 0 {
		return models.Payment{}
	}
	return found[0]
}

type memProjects struct {
	rows map[string]models.Project
}

func newMemProjects() *memProjects { return &memProjects{rows: map[string]models.Project{}} }

func (m *memProjects) Create(_ context.Context, p *models.Project) error {
	m.rows[p.ID] = *p
	return nil
}

func (m *memProjects) Get(_ context.Context, id string) (*models.Project, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("project", id)
	}
	return &p, nil
}

func (m *memProjects) GetForUpdate(ctx context.Context, id string) (*models.Project, error) {
	return m.Get(ctx, id)
}

func (m *memProjects) GetByBudget(_ context.Context, budgetID string) (*models.Project, error) {
	for _, p := range m.rows {
		if models.Deref(p.BudgetID) == budgetID {
			return &p, nil
		}
	}
	return nil, errors.NewNotFoundError("project", budgetID)
}

func (m *memProjects) List(context.Context, persistence.ProjectFilter) ([]models.Project, error) {
	out := make([]models.Project, 0, len(m.rows))
	for _, p := range m.rows {
		out = append(out, p)
	}
	return out, nil
}

func (m *memProjects) Update(_ context.Context, p *models.Project) error {
	if _, ok := m.rows[p.ID]; !ok {
		return errors.NewNotFoundError("project", p.ID)
	}
	m.rows[p.ID] = *p
	return nil
}

func (m *memProjects) ListDeliveryDue(_ context.Context, day time.Time) ([]models.Project, error) {
	var out []models.Project
	for _, p := range m.rows {
		if p.Status == workflow.ProjectDeliveryScheduled && p.DeliveryDate != nil && !p.DeliveryDate.After(day) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

func (m *memProjects) only() models.Project {
	for _, p := range m.rows {
		return p
	}
	return models.Project{}
}

type memEvents struct {
	rows []models.Event
}

func (m *memEvents) Create(_ context.Context, e *models.Event) error {
	m.rows = append(m.rows, *e)
	return nil
}

func (m *memEvents) Get(_ context.Context, id string) (*models.Event, error) {
	for _, e := range m.rows {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, errors.NewNotFoundError("event", id)
}

func (m *memEvents) List(context.Context, persistence.EventFilter) ([]models.Event, error) {
	return append([]models.Event(nil), m.rows...), nil
}

func (m *memEvents) Update(_ context.Context, e *models.Event) error {
	for i := range m.rows {
		if m.rows[i].ID == e.ID {
			m.rows[i] = *e
			return nil
		}
	}
	return errors.NewNotFoundError("event", e.ID)
}

func (m *memEvents) Delete(_ context.Context, id string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("event", id)
}

type memActivity struct {
	rows []models.ActivityLog
	fail error
}

func (m *memActivity) Create(_ context.Context, l *models.ActivityLog) error {
	if m.fail != nil {
		return m.fail
	}
	m.rows = append(m.rows, *l)
	return nil
}

func (m *memActivity) List(_ context.Context, entityType, entityID string, limit int) ([]models.ActivityLog, error) {
	var out []models.ActivityLog
	for _, l := range m.rows {
		if (entityType == "" || l.EntityType == entityType) && (entityID == "" || l.EntityID == entityID) {
			out = append(out, l)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memActivity) actions(entityID string) []string {
	var out []string
	for _, l := range m.rows {
		if l.EntityID == entityID {
			out = append(out, l.Action)
		}
	}
	return out
}

type memWebhooks struct {
	rows map[string]models.WebhookEvent
}

func newMemWebhooks() *memWebhooks { return &memWebhooks{rows: map[string]models.WebhookEvent{}} }

func (m *memWebhooks) TryRecord(_ context.Context, id, eventType string) (bool, error) {
	if _, ok := m.rows[id]; ok {
		return false, nil
	}
	m.rows[id] = models.WebhookEvent{ID: id, Type: eventType, Status: models.WebhookReceived}
	return true, nil
}

func (m *memWebhooks) MarkProcessed(_ context.Context, id, status string, paymentID *string) error {
	e := m.rows[id]
	e.Status, e.PaymentID = status, paymentID
	m.rows[id] = e
	return nil
}

func (m *memWebhooks) MarkFailed(_ context.Context, id string, cause error) error {
	e := m.rows[id]
	e.Status = models.WebhookFailed
	msg := cause.Error()
	e.Error = &msg
	m.rows[id] = e
	return nil
}

func (m *memWebhooks) Forget(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

func (m *memWebhooks) Get(_ context.Context, id string) (*models.WebhookEvent, error) {
	e, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("webhook_event", id)
	}
	return &e, nil
}

func (m *memWebhooks) List(_ context.Context, status string, _ int) ([]models.WebhookEvent, error) {
	var out []models.WebhookEvent
	for _, e := range m.rows {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTasks struct {
	rows map[string]models.Task
}

func newMemTasks() *memTasks { return &memTasks{rows: map[string]models.Task{}} }

func (m *memTasks) Create(_ context.Context, t *models.Task) error {
	m.rows[t.ID] = *t
	return nil
}

func (m *memTasks) Get(_ context.Context, id string) (*models.Task, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("task", id)
	}
	return &t, nil
}

func (m *memTasks) ListByProject(_ context.Context, projectID string) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.rows {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTasks) ListDueOn(_ context.Context, day time.Time) ([]models.Task, error) {
	var out []models.Task
	for _, t := range m.rows {
		if t.Status != models.TaskDone && t.DueDate != nil && t.DueDate.Equal(day) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTasks) Update(_ context.Context, t *models.Task) error {
	m.rows[t.ID] = *t
	return nil
}

func (m *memTasks) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

type memMilestones struct {
	rows map[string]models.Milestone
}

func newMemMilestones() *memMilestones { return &memMilestones{rows: map[string]models.Milestone{}} }

func (m *memMilestones) Create(_ context.Context, ms *models.Milestone) error {
	m.rows[ms.ID] = *ms
	return nil
}

func (m *memMilestones) Get(_ context.Context, id string) (*models.Milestone, error) {
	ms, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("milestone", id)
	}
	return &ms, nil
}

func (m *memMilestones) ListByProject(_ context.Context, projectID string) ([]models.Milestone, error) {
	var out []models.Milestone
	for _, ms := range m.rows {
		if ms.ProjectID == projectID {
			out = append(out, ms)
		}
	}
	return out, nil
}

func (m *memMilestones) Update(_ context.Context, ms *models.Milestone) error {
	m.rows[ms.ID] = *ms
	return nil
}

func (m *memMilestones) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

type memNotifications struct {
	rows []models.Notification
}

func (m *memNotifications) Create(_ context.Context, n *models.Notification) error {
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifications) ListForUser(_ context.Context, userID string, unreadOnly bool, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range m.rows {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, userID string) (int, error) {
	ns, _ := m.ListForUser(ctx, userID, true, 0)
	return len(ns), nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID string) error {
	for i := range m.rows {
		if m.rows[i].ID == id && m.rows[i].UserID == userID {
			m.rows[i].IsRead = true
			return nil
		}
	}
	return errors.NewNotFoundError("notification", id)
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var n int64
	for i := range m.rows {
		if m.rows[i].UserID == userID && !m.rows[i].IsRead {
			m.rows[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// Mocks

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}

func (m *MockGateway) VerifyWebhook(payload []byte, signatureHeader string) (*payments.WebhookEvent, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.WebhookEvent), args.Error(1)
}

type MockCheckout struct {
	mock.Mock
}

func (m *MockCheckout) EnsureCheckout(ctx context.Context, paymentID string) (string, error) {
	args := m.Called(ctx, paymentID)
	return args.String(0), args.Error(1)
}

type MockIdempotency struct {
	mock.Mock
}

func (m *MockIdempotency) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotency) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type memUsers struct {
	rows map[string]models.User
}

func newMemUsers(us ...models.User) *memUsers {
	m := &memUsers{rows: map[string]models.User{}}
	for _, u := range us {
		m.rows[u.ID] = u
	}
	return m
}

func (m *memUsers) CheckUserExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range m.rows {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) CountAdmins(context.Context) (int, error) {
	n := 0
	for _, u := range m.rows {
		if u.Role == "admin" {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("user", id)
	}
	return &u, nil
}

func (m *memUsers) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.rows {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errors.NewNotFoundError("user", email)
}

func (m *memUsers) FindAll(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(m.rows))
	for _, u := range m.rows {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) ListActiveIDs(ctx context.Context) ([]string, error) {
	all, _ := m.FindAll(ctx)
	var ids []string
	for _, u := range all {
		if u.IsActive {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := m.rows[id]
	if !ok {
		return errors.NewNotFoundError("user", id)
	}
	u.PasswordHash = hash
	m.rows[id] = u
	return nil
}

type memSessions struct {
	mu      sync.Mutex
	rows    map[string]models.Session
	touched chan string
}

func newMemSessions() *memSessions {
	return &memSessions{rows: map[string]models.Session{}, touched: make(chan string, 8)}
}

func (m *memSessions) InsertSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[s.ID] = *s
	return nil
}

func (m *memSessions) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	return &s, nil
}

func (m *memSessions) RevokeSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	s.IsRevoked = true
	m.rows[id] = s
	return nil
}

func (m *memSessions) RevokeUserSessions(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.rows {
		if s.UserID == userID {
			s.IsRevoked = true
			m.rows[id] = s
		}
	}
	return nil
}

func (m *memSessions) UpdateLastActivity(_ context.Context, id string) error {
	m.touched <- id
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}

// recordingMailer keeps every message it is asked to send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg mailer.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.sent = append(r.sent, msg)
	return "msg-" + msg.Template, nil
}

func (r *recordingMailer) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.Template)
	}
	return out
}
