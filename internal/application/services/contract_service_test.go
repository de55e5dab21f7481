package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/errors"
)

type memContracts struct {
	rows       []models.Contract
	count      map[int]int
	failCreate error
}

func newMemContracts() *memContracts {
	return &memContracts{count: map[int]int{}}
}

func (m *memContracts) NextNumber(_ context.Context, year int) (string, error) {
	return fmt.Sprintf("CT-%d-%04d", year, m.count[year]+1), nil
}

func (m *memContracts) Create(_ context.Context, c *models.Contract) error {
	if m.failCreate != nil {
		return m.failCreate
	}
	c.CreatedAt = testNow
	m.rows = append(m.rows, *c)
	m.count[testNow.Year()]++
	return nil
}

func (m *memContracts) Get(_ context.Context, id string) (*models.Contract, error) {
	for _, c := range m.rows {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, errors.NewNotFoundError("contract", id)
}

func (m *memContracts) List(_ context.Context, budgetID string, _, _ int) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range m.rows {
		if budgetID == "" || c.BudgetID == budgetID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContracts) UpdateStatus(_ context.Context, id, from, to string) error {
	for i := range m.rows {
		if m.rows[i].ID == id {
			if m.rows[i].Status != from {
				return errors.NewConflictError("contract", "status", m.rows[i].Status)
			}
			m.rows[i].Status = to
			return nil
		}
	}
	return errors.NewNotFoundError("contract", id)
}

func newContractFixture(t *testing.T) (*workflowFixture, *memContracts, *recordingMailer, *ContractService) {
	t.Helper()
	f := newWorkflowFixture(t, 50)
	contracts := newMemContracts()
	mail := &recordingMailer{}
	svc := NewContractService(ContractServiceConfig{
		Contracts: contracts,
		Budgets:   f.budgets,
		Clients:   f.clients,
		Mail:      mail,
		Logs:      NewActivityLogService(f.activity),
		Tx:        f.tx,
		Days:      f.days,
		Issuer:    "Dev Studio",
	})
	return f, contracts, mail, svc
}

func TestContractService_Generate(t *testing.T) {
	f, _, _, svc := newContractFixture(t)
	ctx := context.Background()
	b := f.sentBudget(t)

	c, err := svc.Generate(ctx, b.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "CT-2026-0001", c.Number)
	assert.Equal(t, "Contrato CT-2026-0001 - Site da Acme", c.Title)
	assert.Equal(t, models.ContractDraft, c.Status)
	assert.Contains(t, c.Body, "CONTRATADA: Dev Studio.")
	assert.Contains(t, c.Body, "CONTRATANTE: Ana Souza")
	assert.Contains(t, c.Body, "Valor total: R$ 2.500,00.")
	assert.Contains(t, c.Body, "Entrada de R$ 1.250,00 (50%)")
	assert.Contains(t, c.Body, "entrega estimada para 30/10/2026")
	assert.Contains(t, c.Body, "São Paulo, 16/10/2026.")
	assert.Equal(t, []string{"created"}, f.activity.actions(c.ID))

	second, err := svc.Generate(ctx, b.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "CT-2026-0002", second.Number)
}

func TestContractService_Generate_NumberTaken(t *testing.T) {
	f, contracts, _, svc := newContractFixture(t)
	ctx := context.Background()
	b := f.sentBudget(t)

	contracts.failCreate = errors.NewConflictError("contract", "number", "CT-2026-0001")
	calls := f.tx.calls
	_, err := svc.Generate(ctx, b.ID, "user-1")
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, calls+1, f.tx.calls, "numbering and insert share one transaction")
	assert.Empty(t, contracts.rows)
}

func TestContractService_Generate_SinglePayment(t *testing.T) {
	f, contracts, _, _ := newContractFixture(t)
	f100 := newWorkflowFixture(t, 100)
	svc := NewContractService(ContractServiceConfig{
		Contracts: contracts,
		Budgets:   f100.budgets,
		Clients:   f100.clients,
		Logs:      NewActivityLogService(f.activity),
		Tx:        f100.tx,
		Days:      f100.days,
	})
	b := f100.sentBudget(t)

	c, err := svc.Generate(context.Background(), b.ID, "")
	require.NoError(t, err)
	assert.Contains(t, c.Body, "Pagamento integral de R$ 2.500,00")
	assert.NotContains(t, c.Body, "Entrada de")
}

func TestContractService_Generate_ClosedBudget(t *testing.T) {
	f, _, _, svc := newContractFixture(t)
	ctx := context.Background()
	b := f.sentBudget(t)
	_, err := f.budgetSvc.Reject(ctx, b.ID, "user-1", "")
	require.NoError(t, err)

	_, err = svc.Generate(ctx, b.ID, "user-1")
	assert.True(t, errors.IsInvalidTransition(err))

	_, err = svc.Generate(ctx, "missing", "user-1")
	assert.True(t, errors.IsNotFound(err))
}

func TestContractService_SendAndSign(t *testing.T) {
	f, _, mail, svc := newContractFixture(t)
	ctx := context.Background()
	b := f.sentBudget(t)
	c, err := svc.Generate(ctx, b.ID, "user-1")
	require.NoError(t, err)

	_, err = svc.MarkSigned(ctx, c.ID, "user-1")
	assert.True(t, errors.IsInvalidTransition(err), "drafts cannot be signed")

	sent, err := svc.MarkSent(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractSent, sent.Status)

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	assert.Equal(t, []string{"ana@acme.com"}, msg.To)
	assert.Equal(t, "contract_sent", msg.Template)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "CT-2026-0001.pdf", msg.Attachments[0].Filename)
	assert.True(t, bytes.HasPrefix(msg.Attachments[0].Content, []byte("%PDF")))

	_, err = svc.MarkSent(ctx, c.ID, "user-1")
	assert.True(t, errors.IsInvalidTransition(err))

	signed, err := svc.MarkSigned(ctx, c.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractSigned, signed.Status)
	assert.Equal(t, []string{"created", "sent", "signed"}, f.activity.actions(c.ID))
}

func TestContractService_SendMailFailureKeepsDraft(t *testing.T) {
	f, contracts, mail, svc := newContractFixture(t)
	ctx := context.Background()
	c, err := svc.Generate(ctx, f.sentBudget(t).ID, "user-1")
	require.NoError(t, err)

	mail.err = assert.AnError
	_, err = svc.MarkSent(ctx, c.ID, "user-1")
	require.Error(t, err)
	stored, _ := contracts.Get(ctx, c.ID)
	assert.Equal(t, models.ContractDraft, stored.Status)
}

func TestContractService_RenderPDF(t *testing.T) {
	f, _, _, svc := newContractFixture(t)
	ctx := context.Background()
	c, err := svc.Generate(ctx, f.sentBudget(t).ID, "user-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	got, err := svc.RenderPDF(ctx, c.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, c.Number, got.Number)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	_, err = svc.RenderPDF(ctx, "missing", &buf)
	assert.True(t, errors.IsNotFound(err))
}
