package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/i18n"
	"github.com/devstudio/backoffice/internal/infrastructure/mailer"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/internal/metrics"
	"github.com/devstudio/backoffice/pkg/money"
)

// NotificationDispatcher turns domain events into client emails and in-app
// notifications for the team.
type NotificationDispatcher struct {
	tr            *i18n.Translator
	mail          mailer.Mailer
	notifications *NotificationService
	users         UserStore
	clients       ClientStore
	budgets       BudgetStore
	projects      ProjectStore
	checkout      CheckoutProvider
	locale        string
	baseURL       string
	log           *logrus.Entry
}

// DispatcherConfig carries the collaborators of a NotificationDispatcher.
type DispatcherConfig struct {
	Translator    *i18n.Translator
	Mail          mailer.Mailer
	Notifications *NotificationService
	Users         UserStore
	Clients       ClientStore
	Budgets       BudgetStore
	Projects      ProjectStore
	Checkout      CheckoutProvider
	Locale        string
	BaseURL       string
}

func NewNotificationDispatcher(cfg DispatcherConfig) *NotificationDispatcher {
	return &NotificationDispatcher{
		tr:            cfg.Translator,
		mail:          cfg.Mail,
		notifications: cfg.Notifications,
		users:         cfg.Users,
		clients:       cfg.Clients,
		budgets:       cfg.Budgets,
		projects:      cfg.Projects,
		checkout:      cfg.Checkout,
		locale:        cfg.Locale,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		log:           logging.WithComponent("notifications"),
	}
}

// Register subscribes the dispatcher to every event it reacts to.
func (d *NotificationDispatcher) Register(bus *EventBus) {
	bus.Subscribe(events.BudgetSent, d.onBudgetSent)
	bus.Subscribe(events.BudgetStatusChanged, d.onBudgetStatusChanged)
	bus.Subscribe(events.PaymentDownPaymentReceived, d.onDownPaymentReceived)
	bus.Subscribe(events.PaymentFinalReceived, d.onFinalPaymentReceived)
	bus.Subscribe(events.PaymentFailed, d.onPaymentFailed)
	bus.Subscribe(events.PaymentUnmatched, d.onPaymentUnmatched)
	bus.Subscribe(events.PaymentNeedsReview, d.onPaymentNeedsReview)
	bus.Subscribe(events.ProjectProgress, d.onProjectProgress)
	bus.Subscribe(events.ProjectCompleted, d.onProjectCompleted)
	bus.Subscribe(events.ProjectDeliveryScheduled, d.onDeliveryScheduled)
	bus.Subscribe(events.ProjectDelivered, d.onProjectDelivered)
	bus.Subscribe(events.TaskDueSoon, d.onTaskDueSoon)
	d.log.Info("📬 Notification dispatcher subscribed")
}

func (d *NotificationDispatcher) onBudgetSent(ctx context.Context, p events.Payload) error {
	b, err := d.budgets.Get(ctx, p.BudgetID)
	if err != nil {
		return err
	}
	client, err := d.clients.Get(ctx, b.ClientID)
	if err != nil {
		return err
	}
	url := p.URL
	if url == "" {
		url = d.budgetURL(b)
	}
	return d.email(ctx, client, "budget_sent", map[string]interface{}{
		"Title":        b.Title,
		"ClientName":   client.Name,
		"Total":        money.FormatBRL(b.Total),
		"Delivery":     b.EstimatedDelivery.Format(dateLayout),
		"BusinessDays": b.BusinessDays,
		"DownPayment":  money.FormatBRL(p.Amount),
		"PaymentURL":   url,
		"BudgetURL":    d.budgetURL(b),
		"ValidUntil":   b.ValidUntil.Format(dateLayout),
	})
}

func (d *NotificationDispatcher) onBudgetStatusChanged(ctx context.Context, p events.Payload) error {
	b, err := d.budgets.Get(ctx, p.BudgetID)
	if err != nil {
		return err
	}
	return d.notifyTeam(ctx, "budget_status", "notif_budget_status", "/budgets/"+b.ID, map[string]interface{}{
		"Title": b.Title,
		"From":  p.From,
		"To":    p.To,
	})
}

func (d *NotificationDispatcher) onDownPaymentReceived(ctx context.Context, p events.Payload) error {
	project, client, err := d.projectAndClient(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"Title":      project.Name,
		"ClientName": client.Name,
		"Amount":     money.FormatBRL(p.Amount),
		"StartDate":  formatDate(project.StartDate),
		"DueDate":    formatDate(project.DueDate),
	}
	if err := d.email(ctx, client, "down_payment_received", data); err != nil {
		return err
	}
	return d.notifyTeam(ctx, "payment_received", "notif_payment_received", "/projects/"+project.ID, data)
}

func (d *NotificationDispatcher) onFinalPaymentReceived(ctx context.Context, p events.Payload) error {
	project, client, err := d.projectAndClient(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"Title":      project.Name,
		"ClientName": client.Name,
		"Amount":     money.FormatBRL(p.Amount),
	}
	if err := d.email(ctx, client, "final_payment_received", data); err != nil {
		return err
	}
	return d.notifyTeam(ctx, "payment_received", "notif_payment_received", "/projects/"+project.ID, data)
}

func (d *NotificationDispatcher) onPaymentFailed(ctx context.Context, p events.Payload) error {
	return d.notifyTeam(ctx, "payment_failed", "notif_payment_failed", "/payments/"+p.PaymentID, map[string]interface{}{
		"PaymentID": p.PaymentID,
	})
}

func (d *NotificationDispatcher) onPaymentUnmatched(ctx context.Context, p events.Payload) error {
	return d.notifyTeam(ctx, "payment_unmatched", "notif_payment_unmatched", "/webhooks", map[string]interface{}{
		"EventID": p.Note,
		"Amount":  money.FormatBRL(p.Amount),
	})
}

func (d *NotificationDispatcher) onPaymentNeedsReview(ctx context.Context, p events.Payload) error {
	return d.notifyTeam(ctx, "payment_needs_review", "notif_payment_needs_review", "/payments/"+p.PaymentID, map[string]interface{}{
		"PaymentID": p.PaymentID,
		"Amount":    money.FormatBRL(p.Amount),
		"Reason":    p.Note,
	})
}

func (d *NotificationDispatcher) onProjectProgress(ctx context.Context, p events.Payload) error {
	project, client, err := d.projectAndClient(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"Title":      project.Name,
		"ClientName": client.Name,
		"Progress":   p.Progress,
	}
	// 100% is announced by the completion email.
	if p.Progress < 100 {
		if err := d.email(ctx, client, "project_progress", data); err != nil {
			return err
		}
	}
	return d.notifyTeam(ctx, "project_progress", "notif_project_progress", "/projects/"+project.ID, data)
}

func (d *NotificationDispatcher) onProjectCompleted(ctx context.Context, p events.Payload) error {
	if p.PaymentID == "" {
		return nil
	}
	project, client, err := d.projectAndClient(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	var url string
	if d.checkout != nil {
		if url, err = d.checkout.EnsureCheckout(ctx, p.PaymentID); err != nil {
			return err
		}
	}
	if url == "" && project.BudgetID != nil {
		if b, err := d.budgets.Get(ctx, *project.BudgetID); err == nil {
			url = d.budgetURL(b)
		}
	}
	return d.email(ctx, client, "project_completed", map[string]interface{}{
		"Title":      project.Name,
		"ClientName": client.Name,
		"Amount":     money.FormatBRL(p.Amount),
		"PaymentURL": url,
	})
}

func (d *NotificationDispatcher) onDeliveryScheduled(ctx context.Context, p events.Payload) error {
	project, client, err := d.projectAndClient(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"Title":        project.Name,
		"ClientName":   client.Name,
		"DeliveryDate": formatDate(p.Date),
	}
	if err := d.email(ctx, client, "delivery_scheduled", data); err != nil {
		return err
	}
	return d.notifyTeam(ctx, "delivery_scheduled", "notif_delivery_scheduled", "/projects/"+project.ID, data)
}

func (d *NotificationDispatcher) onProjectDelivered(ctx context.Context, p events.Payload) error {
	project, client, err := d.projectAndClient(ctx, p.ProjectID)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"Title":      project.Name,
		"ClientName": client.Name,
	}
	if err := d.email(ctx, client, "project_delivered", data); err != nil {
		return err
	}
	return d.notifyTeam(ctx, "project_delivered", "notif_project_delivered", "/projects/"+project.ID, data)
}

func (d *NotificationDispatcher) onTaskDueSoon(ctx context.Context, p events.Payload) error {
	return d.notifyTeam(ctx, "task_due", "notif_task_due", "/projects/"+p.ProjectID, map[string]interface{}{
		"Title":   p.Note,
		"DueDate": formatDate(p.Date),
	})
}

func (d *NotificationDispatcher) projectAndClient(ctx context.Context, projectID string) (*models.Project, *models.Client, error) {
	project, err := d.projects.Get(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	client, err := d.clients.Get(ctx, project.ClientID)
	if err != nil {
		return nil, nil, err
	}
	return project, client, nil
}

// email sends the localized <key>_subject / <key>_body pair to the client.
func (d *NotificationDispatcher) email(ctx context.Context, client *models.Client, key string, data map[string]interface{}) error {
	if d.mail == nil {
		return nil
	}
	msg := mailer.Message{
		To:       []string{client.Email},
		Subject:  d.tr.T(d.locale, key+"_subject", data),
		Text:     d.tr.T(d.locale, key+"_body", data),
		Template: key,
	}
	id, err := d.mail.Send(ctx, msg)
	metrics.RecordEmail(key, err)
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", key, err)
	}
	d.log.Debugf("✉️ Sent %s to %s (%s)", key, logging.MaskEmail(client.Email), id)
	return nil
}

// notifyTeam creates the localized notif_<key>_title / _message pair for
// every active user.
func (d *NotificationDispatcher) notifyTeam(ctx context.Context, kind, key, link string, data map[string]interface{}) error {
	ids, err := d.users.ListActiveIDs(ctx)
	if err != nil {
		return err
	}
	title := d.tr.T(d.locale, key+"_title", data)
	message := d.tr.T(d.locale, key+"_message", data)
	for _, id := range ids {
		if err := d.notifications.Notify(ctx, id, kind, title, message, link); err != nil {
			return err
		}
	}
	return nil
}

func (d *NotificationDispatcher) budgetURL(b *models.Budget) string {
	return fmt.Sprintf("%s/api/public/budgets/%s", d.baseURL, b.PublicToken)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
