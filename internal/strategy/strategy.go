// Package strategy holds the decision policies consulted once per period by
// the simulator. Policies are pure: the same history, sentiment and account
// state always produce the same decision.
package strategy

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"sentiment-backtest/internal/indicator"
	"sentiment-backtest/internal/model"
)

// ErrUnknownPolicy is returned by New for names that are not registered.
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy converts the history up to today plus an external sentiment score
// into a decision. It only ever receives periods up to and including today.
type Policy interface {
	Name() string

	// Ready reports whether every indicator the policy reads is out of its
	// warm-up window today. The simulator holds without calling Decide
	// (and without asking for sentiment) until Ready is true.
	Ready(h indicator.History) bool

	Decide(h indicator.History, sentiment float64, st model.PortfolioState) model.Decision
}

// ParamInfo describes a tunable policy parameter.
type ParamInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// Info describes a registered policy.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []ParamInfo `json:"parameters"`
}

type factory struct {
	info Info
	make func(params map[string]any) (Policy, error)
}

var registry = map[string]factory{
	BaselineName: {
		info: Info{
			Name:        BaselineName,
			Description: "Buy on positive sentiment while the close is rising day over day; sell on negative sentiment.",
		},
		make: func(map[string]any) (Policy, error) { return Baseline{}, nil },
	},
	EnhancedName: {
		info: Info{
			Name:        EnhancedName,
			Description: "Sentiment gated SMA trend entries with RSI and MACD exits plus stop-loss/take-profit bounds.",
			Parameters: []ParamInfo{
				{Name: "overbought", Type: "float", Description: "RSI level separating entries from MACD exits", Default: defaultOverbought},
				{Name: "stop_loss_pct", Type: "float", Description: "Fraction below the reference price that triggers a sell", Default: defaultStopLossPct},
				{Name: "take_profit_pct", Type: "float", Description: "Fraction above the reference price that triggers a sell", Default: defaultTakeProfitPct},
				{Name: "stop_reference", Type: "string", Description: "Reference price for the bounds: 'current' close or average 'entry' price", Default: string(ReferenceCurrent)},
			},
		},
		make: func(params map[string]any) (Policy, error) { return NewEnhanced(EnhancedParamsFrom(params)) },
	},
}

// New builds the policy registered under name. Names are case-insensitive.
func New(name string, params map[string]any) (Policy, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPolicy, name, strings.Join(Names(), ", "))
	}
	return f.make(params)
}

// Names lists registered policy names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Catalog describes every registered policy.
func Catalog() []Info {
	out := make([]Info, 0, len(registry))
	for _, n := range Names() {
		out = append(out, registry[n].info)
	}
	return out
}

func num(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case float32:
			return float64(x)
		case int:
			return float64(x)
		case int64:
			return float64(x)
		}
	}
	return def
}

func str(m map[string]any, key string, def string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}
