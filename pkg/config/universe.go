package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Universe lists company categories in the order they are configured.
type Universe []Category

type Category struct {
	Name      string    `json:"name"`
	Companies []Company `json:"companies"`
}

type Company struct {
	Label  string `json:"label"`
	Ticker string `json:"ticker"`
}

// UnmarshalYAML reads a category -> label -> ticker mapping and keeps the
// document order of both levels.
func (u *Universe) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("universe: line %d: expected a mapping", n.Line)
	}
	out := make(Universe, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		cat := Category{Name: key.Value}
		switch val.Kind {
		case yaml.MappingNode:
			for j := 0; j+1 < len(val.Content); j += 2 {
				cat.Companies = append(cat.Companies, Company{
					Label:  val.Content[j].Value,
					Ticker: strings.TrimSpace(val.Content[j+1].Value),
				})
			}
		case yaml.ScalarNode:
			if val.Tag != "!!null" {
				return fmt.Errorf("universe.%s: line %d: expected a mapping", key.Value, val.Line)
			}
		default:
			return fmt.Errorf("universe.%s: line %d: expected a mapping", key.Value, val.Line)
		}
		out = append(out, cat)
	}
	*u = out
	return nil
}

// Find returns the category called name.
func (u Universe) Find(name string) (Category, bool) {
	for _, c := range u {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Tickers returns the category's tickers in configured order.
func (c Category) Tickers() []string {
	out := make([]string, 0, len(c.Companies))
	for _, co := range c.Companies {
		out = append(out, co.Ticker)
	}
	return out
}

func (u Universe) validate() error {
	seen := make(map[string]struct{}, len(u))
	for _, c := range u {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("universe.%s is listed twice", c.Name)
		}
		seen[c.Name] = struct{}{}
		if len(c.Companies) == 0 {
			return fmt.Errorf("universe.%s has no tickers", c.Name)
		}
		for _, co := range c.Companies {
			if co.Ticker == "" {
				return fmt.Errorf("universe.%s.%s has an empty ticker", c.Name, co.Label)
			}
		}
	}
	return nil
}

// DefaultUniverse is the FTSE set the dashboard ships with.
func DefaultUniverse() Universe {
	return Universe{
		{Name: "Consumer & Staples", Companies: []Company{
			{"Unilever (ULVR.L)", "ULVR.L"},
			{"Tesco (TSCO.L)", "TSCO.L"},
			{"Diageo (DGE.L)", "DGE.L"},
			{"Reckitt (RKT.L)", "RKT.L"},
		}},
		{Name: "Energy & Materials", Companies: []Company{
			{"Shell (SHEL.L)", "SHEL.L"},
			{"BP (BP.L)", "BP.L"},
			{"Rio Tinto (RIO.L)", "RIO.L"},
		}},
		{Name: "Healthcare", Companies: []Company{
			{"AstraZeneca (AZN.L)", "AZN.L"},
			{"GSK (GSK.L)", "GSK.L"},
		}},
		{Name: "Financials", Companies: []Company{
			{"Barclays (BARC.L)", "BARC.L"},
			{"HSBC (HSBA.L)", "HSBA.L"},
			{"Lloyds (LLOY.L)", "LLOY.L"},
		}},
		{Name: "Industrials/Utilities/Telecoms", Companies: []Company{
			{"BAE Systems (BA.L)", "BA.L"},
			{"RELX (REL.L)", "REL.L"},
			{"National Grid (NG.L)", "NG.L"},
			{"SSE (SSE.L)", "SSE.L"},
			{"Vodafone (VOD.L)", "VOD.L"},
			{"BT Group (BT-A.L)", "BT-A.L"},
		}},
	}
}
