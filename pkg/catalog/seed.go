package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackprice/stackprice/pkg/pricing"
)

// Seed is the content of a catalog file.
type Seed struct {
	Tools     []Tool
	Providers []CloudProvider
}

type seedFile struct {
	Tools     []seedTool     `yaml:"tools"`
	Providers []seedProvider `yaml:"providers"`
}

type seedTool struct {
	Tool    `yaml:",inline"`
	Pricing map[string]interface{} `yaml:"pricing"`
}

type seedProvider struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Logo        string        `yaml:"logo"`
	Description string        `yaml:"description"`
	Website     string        `yaml:"website"`
	Services    []seedService `yaml:"services"`
}

type seedService struct {
	ID          string                 `yaml:"id"`
	Name        string                 `yaml:"name"`
	Type        string                 `yaml:"type"`
	Description string                 `yaml:"description"`
	Pricing     map[string]interface{} `yaml:"pricing"`
}

// LoadSeed parses a YAML catalog. Pricing blocks go through
// pricing.ParseTierSet so numeric and string prices are normalized once.
func LoadSeed(r io.Reader) (*Seed, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("catalog: decode seed: %w", err)
	}

	now := time.Now().UTC()
	seed := &Seed{}
	seen := make(map[string]bool)
	for _, st := range f.Tools {
		t := st.Tool
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" || strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("catalog: tool %q needs an id and a name", t.Name)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("catalog: duplicate tool id %q", t.ID)
		}
		seen[t.ID] = true

		set, err := tierSetFrom(st.Pricing)
		if err != nil {
			return nil, fmt.Errorf("catalog: tool %s: %w", t.ID, err)
		}
		t.Pricing = set
		t.Website = NormalizeWebsite(t.Website)
		if t.Integrations == nil {
			t.Integrations = []string{}
		}
		t.LastUpdated = now
		seed.Tools = append(seed.Tools, t)
	}

	seenProviders := make(map[string]bool)
	for _, sp := range f.Providers {
		id := strings.TrimSpace(sp.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog: provider %q needs an id", sp.Name)
		}
		if seenProviders[id] {
			return nil, fmt.Errorf("catalog: duplicate provider id %q", id)
		}
		seenProviders[id] = true

		p := CloudProvider{
			ID:          id,
			Name:        sp.Name,
			Logo:        sp.Logo,
			Description: sp.Description,
			Website:     NormalizeWebsite(sp.Website),
			Services:    []CloudService{},
			LastUpdated: now,
		}
		for _, ss := range sp.Services {
			set, err := tierSetFrom(ss.Pricing)
			if err != nil {
				return nil, fmt.Errorf("catalog: provider %s service %s: %w", id, ss.ID, err)
			}
			p.Services = append(p.Services, CloudService{
				ID:          ss.ID,
				Name:        ss.Name,
				Type:        ss.Type,
				Description: ss.Description,
				Pricing:     set,
			})
		}
		seed.Providers = append(seed.Providers, p)
	}
	return seed, nil
}

func tierSetFrom(raw map[string]interface{}) (pricing.TierSet, error) {
	if raw == nil {
		return pricing.TierSet{}, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return pricing.ParseTierSet(b)
}
