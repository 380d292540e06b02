package catalog

import (
	"time"

	"github.com/stackprice/stackprice/pkg/pricing"
)

// Tool is a SaaS product with tiered pricing.
type Tool struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Logo         string          `json:"logo,omitempty" yaml:"logo"`
	Description  string          `json:"description" yaml:"description"`
	Category     string          `json:"category" yaml:"category"`
	Website      string          `json:"website" yaml:"website"`
	Pricing      pricing.TierSet `json:"pricing" yaml:"-"`
	Integrations []string        `json:"integrations" yaml:"integrations"`
	LastUpdated  time.Time       `json:"lastUpdated" yaml:"-"`
}

// CloudProvider groups the services of one cloud vendor.
type CloudProvider struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Logo        string         `json:"logo,omitempty"`
	Description string         `json:"description"`
	Website     string         `json:"website"`
	Services    []CloudService `json:"services"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

type CloudService struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Pricing     pricing.TierSet `json:"pricing"`
}

// ComparisonTool is the snapshot of a tool stored with a saved comparison.
type ComparisonTool struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Logo     string `json:"logo,omitempty"`
	Category string `json:"category"`
}

// Comparison is a named, persisted selection of tools.
type Comparison struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	UserID    string           `json:"userId,omitempty"`
	Tools     []ComparisonTool `json:"tools"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Snapshot reduces a tool to the fields kept in a saved comparison.
func Snapshot(t Tool) ComparisonTool {
	return ComparisonTool{ID: t.ID, Name: t.Name, Logo: t.Logo, Category: t.Category}
}

// PricePoint is one recorded tier price for a tool.
type PricePoint struct {
	ToolID     string           `json:"toolId"`
	Tier       pricing.TierName `json:"tier"`
	Price      *pricing.Price   `json:"price"` // nil when the tier was removed
	ChangeType string           `json:"changeType"` // added | updated | removed
	RecordedAt time.Time        `json:"recordedAt"`
}

// PriceAlert asks for a callback when a tool tier drops below a threshold.
type PriceAlert struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	ToolID      string           `json:"toolId"`
	Tier        pricing.TierName `json:"tier"`
	Threshold   string           `json:"threshold"`
	CallbackURL string           `json:"callbackUrl"`
	CreatedAt   time.Time        `json:"createdAt"`
}
