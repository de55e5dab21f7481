package pricing

import "sort"

// ProjectType identifies the kind of deliverable being quoted.
type ProjectType string

const (
	TypeLandingPage       ProjectType = "landing_page"
	TypeInstitutionalSite ProjectType = "institutional_site"
	TypeEcommerce         ProjectType = "ecommerce"
	TypeWebApp            ProjectType = "web_app"
	TypeMobileApp         ProjectType = "mobile_app"
	TypeCustomSystem      ProjectType = "custom_system"
)

// Complexity scales both price and effort.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Timeline trades price for delivery speed.
type Timeline string

const (
	TimelineUrgent   Timeline = "urgent"
	TimelineNormal   Timeline = "normal"
	TimelineFlexible Timeline = "flexible"
)

// Item is a priced catalog entry. Prices are in centavos.
type Item struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Price int64  `json:"price"`
	Days  int    `json:"days"`
}

type baseEntry struct {
	Item
	IncludedPages int
}

// Multiplier pairs a price factor with an effort factor.
type Multiplier struct {
	Price float64 `json:"price"`
	Days  float64 `json:"days"`
}

const (
	// ExtraPagePrice is charged for every page beyond the included ones.
	ExtraPagePrice int64 = 350_00
	// ExtraPagesPerDay is how many extra pages fit in one business day.
	ExtraPagesPerDay = 2
	// MinBusinessDays is the shortest delivery ever quoted.
	MinBusinessDays = 5
	// RoundingStep is the granularity totals are rounded up to (R$10).
	RoundingStep int64 = 10_00
)

var baseTable = map[ProjectType]baseEntry{
	TypeLandingPage:       {Item{string(TypeLandingPage), "Landing page", 2_500_00, 10}, 1},
	TypeInstitutionalSite: {Item{string(TypeInstitutionalSite), "Site institucional", 4_500_00, 20}, 5},
	TypeEcommerce:         {Item{string(TypeEcommerce), "E-commerce", 12_000_00, 45}, 10},
	TypeWebApp:            {Item{string(TypeWebApp), "Aplicação web", 18_000_00, 60}, 10},
	TypeMobileApp:         {Item{string(TypeMobileApp), "Aplicativo mobile", 22_000_00, 75}, 8},
	TypeCustomSystem:      {Item{string(TypeCustomSystem), "Sistema sob medida", 30_000_00, 90}, 10},
}

var complexityTable = map[Complexity]Multiplier{
	ComplexityLow:    {0.8, 0.8},
	ComplexityMedium: {1.0, 1.0},
	ComplexityHigh:   {1.5, 1.4},
}

var timelineTable = map[Timeline]Multiplier{
	TimelineUrgent:   {1.3, 0.7},
	TimelineNormal:   {1.0, 1.0},
	TimelineFlexible: {0.9, 1.25},
}

var featureTable = map[string]Item{
	"authentication":  {"authentication", "Autenticação de usuários", 1_500_00, 5},
	"payment_gateway": {"payment_gateway", "Pagamentos online", 2_500_00, 7},
	"admin_panel":     {"admin_panel", "Painel administrativo", 3_000_00, 10},
	"blog":            {"blog", "Blog", 1_200_00, 4},
	"chat":            {"chat", "Chat em tempo real", 2_800_00, 8},
	"notifications":   {"notifications", "Notificações", 1_000_00, 3},
	"multi_language":  {"multi_language", "Multi-idioma", 1_800_00, 5},
	"seo":             {"seo", "Otimização SEO", 800_00, 2},
	"analytics":       {"analytics", "Analytics", 900_00, 3},
	"file_upload":     {"file_upload", "Upload de arquivos", 1_100_00, 3},
	"reports":         {"reports", "Relatórios", 2_000_00, 6},
	"api":             {"api", "API pública", 2_500_00, 8},
}

var integrationTable = map[string]Item{
	"stripe":          {"stripe", "Stripe", 2_000_00, 5},
	"mercado_pago":    {"mercado_pago", "Mercado Pago", 2_000_00, 5},
	"pix":             {"pix", "PIX", 1_200_00, 3},
	"google_maps":     {"google_maps", "Google Maps", 600_00, 2},
	"whatsapp":        {"whatsapp", "WhatsApp", 900_00, 2},
	"erp":             {"erp", "ERP", 4_000_00, 12},
	"crm":             {"crm", "CRM", 3_000_00, 8},
	"email_marketing": {"email_marketing", "E-mail marketing", 1_000_00, 3},
	"social_login":    {"social_login", "Login social", 800_00, 2},
}

// CatalogEntry describes a project type for listing purposes.
type CatalogEntry struct {
	Item
	IncludedPages int `json:"included_pages"`
}

// CatalogView is the full price table as exposed to clients.
type CatalogView struct {
	ProjectTypes   []CatalogEntry            `json:"project_types"`
	Complexities   map[Complexity]Multiplier `json:"complexities"`
	Timelines      map[Timeline]Multiplier   `json:"timelines"`
	Features       []Item                    `json:"features"`
	Integrations   []Item                    `json:"integrations"`
	ExtraPagePrice int64                     `json:"extra_page_price"`
}

// Catalog returns a copy of the price tables, sorted by key.
func Catalog() CatalogView {
	view := CatalogView{
		Complexities:   make(map[Complexity]Multiplier, len(complexityTable)),
		Timelines:      make(map[Timeline]Multiplier, len(timelineTable)),
		ExtraPagePrice: ExtraPagePrice,
	}
	for _, b := range baseTable {
		view.ProjectTypes = append(view.ProjectTypes, CatalogEntry{Item: b.Item, IncludedPages: b.IncludedPages})
	}
	for k, v := range complexityTable {
		view.Complexities[k] = v
	}
	for k, v := range timelineTable {
		view.Timelines[k] = v
	}
	view.Features = sortedItems(featureTable)
	view.Integrations = sortedItems(integrationTable)
	sort.Slice(view.ProjectTypes, func(i, j int) bool { return view.ProjectTypes[i].Price < view.ProjectTypes[j].Price })
	return view
}

func sortedItems(table map[string]Item) []Item {
	items := make([]Item, 0, len(table))
	for _, it := range table {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items
}
