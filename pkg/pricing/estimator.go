// Package pricing converts project parameters into a price estimate and a
// delivery date counted in business days.
package pricing

import (
	"fmt"
	"math"
	"time"

	"github.com/devstudio/backoffice/pkg/calendar"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/money"
)

// EstimateInput holds the parameters of a quote request.
type EstimateInput struct {
	ProjectType  ProjectType `json:"project_type" binding:"required"`
	Complexity   Complexity  `json:"complexity" binding:"required"`
	Timeline     Timeline    `json:"timeline" binding:"required"`
	Features     []string    `json:"features"`
	Pages        int         `json:"pages"`
	Integrations []string    `json:"integrations"`
	StartDate    *time.Time  `json:"start_date,omitempty"`
}

// Line is one entry of the estimate breakdown. Amount is the price delta in
// centavos contributed by this line.
type Line struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
	Days   int    `json:"days,omitempty"`
}

// Estimate is the result of pricing a project.
type Estimate struct {
	ProjectType  ProjectType `json:"project_type"`
	Complexity   Complexity  `json:"complexity"`
	Timeline     Timeline    `json:"timeline"`
	Features     []string    `json:"features"`
	Integrations []string    `json:"integrations"`
	Pages        int         `json:"pages"`
	Subtotal     int64       `json:"subtotal"`
	Total        int64       `json:"total"`
	DownPayment  int64       `json:"down_payment"`
	FinalPayment int64       `json:"final_payment"`
	BusinessDays int         `json:"business_days"`
	StartDate    time.Time   `json:"start_date"`
	DeliveryDate time.Time   `json:"delivery_date"`
	Breakdown    []Line      `json:"breakdown"`
}

// Estimator prices projects against the catalog tables.
type Estimator struct {
	cal                *calendar.Calendar
	downPaymentPercent int
	rules              *RuleSet
	now                func() time.Time
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithRules installs adjustment rules evaluated after the multipliers.
func WithRules(rs *RuleSet) Option {
	return func(e *Estimator) { e.rules = rs }
}

// WithClock overrides the clock used when no start date is given.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// NewEstimator creates an Estimator. downPaymentPercent must be in (0,100].
func NewEstimator(cal *calendar.Calendar, downPaymentPercent int, opts ...Option) *Estimator {
	if cal == nil {
		cal = calendar.Default
	}
	if downPaymentPercent <= 0 || downPaymentPercent > 100 {
		downPaymentPercent = 50
	}
	e := &Estimator{
		cal:                cal,
		downPaymentPercent: downPaymentPercent,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DownPaymentPercent returns the configured down payment share.
func (e *Estimator) DownPaymentPercent() int {
	return e.downPaymentPercent
}

// Calendar returns the business-day calendar used for delivery dates.
func (e *Estimator) Calendar() *calendar.Calendar {
	return e.cal
}

// Estimate prices the input. It never touches storage.
func (e *Estimator) Estimate(in EstimateInput) (*Estimate, error) {
	base, ok := baseTable[in.ProjectType]
	if !ok {
		return nil, errors.NewValidationError("project_type", fmt.Sprintf("unknown project type %q", in.ProjectType))
	}
	cm, ok := complexityTable[in.Complexity]
	if !ok {
		return nil, errors.NewValidationError("complexity", fmt.Sprintf("unknown complexity %q", in.Complexity))
	}
	tm, ok := timelineTable[in.Timeline]
	if !ok {
		return nil, errors.NewValidationError("timeline", fmt.Sprintf("unknown timeline %q", in.Timeline))
	}
	if in.Pages < 0 {
		return nil, errors.NewValidationError("pages", "pages cannot be negative")
	}

	features, err := lookupAll("features", in.Features, featureTable)
	if err != nil {
		return nil, err
	}
	integrations, err := lookupAll("integrations", in.Integrations, integrationTable)
	if err != nil {
		return nil, err
	}

	pages := in.Pages
	if pages == 0 {
		pages = base.IncludedPages
	}

	est := &Estimate{
		ProjectType: in.ProjectType,
		Complexity:  in.Complexity,
		Timeline:    in.Timeline,
		Pages:       pages,
	}

	subtotal := base.Price
	days := base.Days
	est.Breakdown = append(est.Breakdown, Line{Kind: "base", Key: base.Key, Label: base.Label, Amount: base.Price, Days: base.Days})

	for _, f := range features {
		subtotal += f.Price
		days += f.Days
		est.Features = append(est.Features, f.Key)
		est.Breakdown = append(est.Breakdown, Line{Kind: "feature", Key: f.Key, Label: f.Label, Amount: f.Price, Days: f.Days})
	}
	for _, it := range integrations {
		subtotal += it.Price
		days += it.Days
		est.Integrations = append(est.Integrations, it.Key)
		est.Breakdown = append(est.Breakdown, Line{Kind: "integration", Key: it.Key, Label: it.Label, Amount: it.Price, Days: it.Days})
	}

	if extra := pages - base.IncludedPages; extra > 0 {
		amount := int64(extra) * ExtraPagePrice
		extraDays := (extra + ExtraPagesPerDay - 1) / ExtraPagesPerDay
		subtotal += amount
		days += extraDays
		est.Breakdown = append(est.Breakdown, Line{
			Kind: "pages", Key: "extra_pages", Label: fmt.Sprintf("%d páginas adicionais", extra), Amount: amount, Days: extraDays,
		})
	}
	est.Subtotal = subtotal

	amount := float64(subtotal)
	afterComplexity := roundCents(amount * cm.Price)
	est.Breakdown = append(est.Breakdown, Line{Kind: "complexity", Key: string(in.Complexity), Label: "Complexidade", Amount: afterComplexity - subtotal})
	afterTimeline := roundCents(float64(afterComplexity) * tm.Price)
	est.Breakdown = append(est.Breakdown, Line{Kind: "timeline", Key: string(in.Timeline), Label: "Prazo", Amount: afterTimeline - afterComplexity})

	running := afterTimeline
	if e.rules != nil {
		adjusted, lines, err := e.rules.Apply(RuleEnv{
			Type:         string(in.ProjectType),
			Complexity:   string(in.Complexity),
			Timeline:     string(in.Timeline),
			Pages:        pages,
			Features:     est.Features,
			Integrations: est.Integrations,
			Subtotal:     running,
		})
		if err != nil {
			return nil, err
		}
		running = adjusted
		est.Breakdown = append(est.Breakdown, lines...)
	}

	total := roundUp(running, RoundingStep)
	if total != running {
		est.Breakdown = append(est.Breakdown, Line{Kind: "rounding", Key: "rounding", Label: "Arredondamento", Amount: total - running})
	}
	est.Total = total
	est.DownPayment = SplitDownPayment(total, e.downPaymentPercent)
	est.FinalPayment = total - est.DownPayment

	scaledDays := float64(days) * cm.Days * tm.Days
	est.BusinessDays = int(math.Ceil(math.Round(scaledDays*1000) / 1000))
	if est.BusinessDays < MinBusinessDays {
		est.BusinessDays = MinBusinessDays
	}

	start := e.now()
	if in.StartDate != nil && !in.StartDate.IsZero() {
		start = *in.StartDate
	}
	// StartDate shows the first working day. Delivery counts from the
	// requested date so a weekend start does not cost an extra day.
	est.StartDate = e.cal.RollForward(start)
	est.DeliveryDate = e.cal.AddBusinessDays(start, est.BusinessDays)

	if est.Features == nil {
		est.Features = []string{}
	}
	if est.Integrations == nil {
		est.Integrations = []string{}
	}
	return est, nil
}

// SplitDownPayment returns the down payment share of total, rounded to the centavo.
func SplitDownPayment(total int64, percent int) int64 {
	return money.Percent(total, percent)
}

func lookupAll(field string, keys []string, table map[string]Item) ([]Item, error) {
	seen := make(map[string]bool, len(keys))
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		it, ok := table[k]
		if !ok {
			return nil, errors.NewValidationError(field, fmt.Sprintf("unknown option %q", k))
		}
		seen[k] = true
		items = append(items, it)
	}
	return items, nil
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

func roundUp(v, step int64) int64 {
	if step <= 0 || v%step == 0 {
		return v
	}
	if v < 0 {
		return v - v%step
	}
	return v + step - v%step
}
