package services

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/mailer"
	"github.com/devstudio/backoffice/internal/infrastructure/pdf"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/internal/metrics"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/money"
	"github.com/devstudio/backoffice/pkg/utils"
)

//go:embed templates/contract.tmpl
var contractTemplateText string

var contractTemplate = template.Must(template.New("contract").Parse(contractTemplateText))

type contractData struct {
	Number        string
	Issuer        string
	City          string
	Date          string
	Client        *models.Client
	Budget        *models.Budget
	ProjectType   string
	Scope         []string
	Total         string
	DownPayment   string
	FinalPayment  string
	SinglePayment bool
	Delivery      string
}

// ContractService generates, renders and tracks client contracts.
type ContractService struct {
	repo     ContractStore
	budgets  BudgetStore
	clients  ClientStore
	renderer *pdf.Renderer
	mail     mailer.Mailer
	logs     *ActivityLogService
	tx       Transactor
	days     businessDay
	issuer   string
	city     string
}

// ContractServiceConfig carries the collaborators of a ContractService.
// Mail is optional.
type ContractServiceConfig struct {
	Contracts ContractStore
	Budgets   BudgetStore
	Clients   ClientStore
	Renderer  *pdf.Renderer
	Mail      mailer.Mailer
	Logs      *ActivityLogService
	Tx        Transactor
	Days      businessDay
	Issuer    string
	City      string
}

func NewContractService(cfg ContractServiceConfig) *ContractService {
	if cfg.Renderer == nil {
		cfg.Renderer = pdf.NewRenderer()
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "Studio"
	}
	if cfg.City == "" {
		cfg.City = "São Paulo"
	}
	return &ContractService{
		repo:     cfg.Contracts,
		budgets:  cfg.Budgets,
		clients:  cfg.Clients,
		renderer: cfg.Renderer,
		mail:     cfg.Mail,
		logs:     cfg.Logs,
		tx:       cfg.Tx,
		days:     cfg.Days,
		issuer:   cfg.Issuer,
		city:     cfg.City,
	}
}

var closedBudgets = map[workflow.BudgetStatus]bool{
	workflow.BudgetRejected:  true,
	workflow.BudgetExpired:   true,
	workflow.BudgetCancelled: true,
}

// Generate drafts the contract of a budget with the next sequential number.
func (s *ContractService) Generate(ctx context.Context, budgetID, actorID string) (*models.Contract, error) {
	b, err := s.budgets.Get(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if closedBudgets[b.Status] {
		return nil, errors.NewInvalidTransitionError("budget", string(b.Status), "generate_contract")
	}
	client, err := s.clients.Get(ctx, b.ClientID)
	if err != nil {
		return nil, err
	}

	today := s.days.today()
	var c *models.Contract
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		number, err := s.repo.NextNumber(ctx, today.Year())
		if err != nil {
			return err
		}
		body, err := s.renderBody(number, today.Format(dateLayout), client, b)
		if err != nil {
			return err
		}
		c = &models.Contract{
			ID:       utils.GenerateID(),
			BudgetID: b.ID,
			ClientID: client.ID,
			Number:   number,
			Title:    fmt.Sprintf("Contrato %s - %s", number, b.Title),
			Body:     body,
			Status:   models.ContractDraft,
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		return s.logs.Record(ctx, EntityContract, c.ID, "created", "Contrato "+number+" gerado", actorID, models.JSONMap{"budget_id": b.ID})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContractService) renderBody(number, date string, client *models.Client, b *models.Budget) (string, error) {
	data := contractData{
		Number:        number,
		Issuer:        s.issuer,
		City:          s.city,
		Date:          date,
		Client:        client,
		Budget:        b,
		ProjectType:   b.ProjectType,
		Total:         money.FormatBRL(b.Total),
		DownPayment:   money.FormatBRL(b.DownPaymentAmount),
		FinalPayment:  money.FormatBRL(b.FinalPaymentAmount),
		SinglePayment: b.FinalPaymentAmount == 0,
		Delivery:      b.EstimatedDelivery.Format(dateLayout),
	}
	for _, line := range b.Breakdown {
		switch line.Kind {
		case "base":
			data.ProjectType = line.Label
		case "feature", "integration", "pages":
			data.Scope = append(data.Scope, line.Label)
		}
	}

	var buf bytes.Buffer
	if err := contractTemplate.Execute(&buf, data); err != nil {
		return "", errors.NewInternalError("failed to render contract", err)
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func (s *ContractService) Get(ctx context.Context, id string) (*models.Contract, error) {
	return s.repo.Get(ctx, id)
}

func (s *ContractService) List(ctx context.Context, budgetID string, limit, offset int) ([]models.Contract, error) {
	return s.repo.List(ctx, budgetID, limit, offset)
}

// RenderPDF writes the contract as an A4 PDF.
func (s *ContractService) RenderPDF(ctx context.Context, id string, w io.Writer) (*models.Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, s.render(c, w)
}

func (s *ContractService) render(c *models.Contract, w io.Writer) error {
	return s.renderer.Render(w, pdf.Document{
		Number:   c.Number,
		Title:    c.Title,
		Body:     c.Body,
		IssuedAt: c.CreatedAt,
		Issuer:   s.issuer,
	})
}

// MarkSent emails the PDF to the client and moves the contract to sent.
func (s *ContractService) MarkSent(ctx context.Context, id, actorID string) (*models.Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ContractDraft {
		return nil, errors.NewInvalidTransitionError("contract", c.Status, "send")
	}

	if s.mail != nil {
		client, err := s.clients.Get(ctx, c.ClientID)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := s.render(c, &buf); err != nil {
			return nil, err
		}
		_, err = s.mail.Send(ctx, mailer.Message{
			To:       []string{client.Email},
			Subject:  c.Title,
			Text:     fmt.Sprintf("Olá %s,\n\nSegue em anexo o contrato %s para assinatura.\n", client.Name, c.Number),
			Template: "contract_sent",
			Attachments: []mailer.Attachment{
				{Filename: c.Number + ".pdf", Content: buf.Bytes()},
			},
		})
		metrics.RecordEmail("contract_sent", err)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateStatus(ctx, c.ID, models.ContractDraft, models.ContractSent); err != nil {
		return nil, err
	}
	if err := s.logs.Record(ctx, EntityContract, c.ID, "sent", "Contrato "+c.Number+" enviado", actorID, nil); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infof("📨 Contract %s sent", c.Number)
	return s.repo.Get(ctx, c.ID)
}

// MarkSigned records the client's signature on a sent contract.
func (s *ContractService) MarkSigned(ctx context.Context, id, actorID string) (*models.Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ContractSent {
		return nil, errors.NewInvalidTransitionError("contract", c.Status, "sign")
	}
	if err := s.repo.UpdateStatus(ctx, c.ID, models.ContractSent, models.ContractSigned); err != nil {
		return nil, err
	}
	if err := s.logs.Record(ctx, EntityContract, c.ID, "signed", "Contrato "+c.Number+" assinado", actorID, nil); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, c.ID)
}
