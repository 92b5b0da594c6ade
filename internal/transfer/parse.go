// SPDX-License-Identifier: MIT
package transfer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownStage = errors.New("transfer: unknown stage")

// Defaults used when a stage is named without parameters.
const (
	DefaultSoftClipLinear = 0.5
	DefaultSoftClipSlope  = 2.0
	DefaultGateThreshold  = 0.1
	DefaultAmplifyGain    = 1.0
)

// arity is the number of parameters each stage accepts.
var arity = map[string]int{
	"identity": 0,
	"softclip": 2,
	"gate":     1,
	"delta":    0,
	"amplify":  1,
}

var aliases = map[string]string{
	"":            "identity",
	"copy":        "identity",
	"soft-clip":   "softclip",
	"hard-gate":   "gate",
	"delta-probe": "delta",
	"gain":        "amplify",
}

// New builds the named stage. Missing parameters take their defaults.
func New(name string, params ...float64) (Stage, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	n, ok := arity[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}
	if len(params) > n {
		return nil, fmt.Errorf("transfer: %s takes at most %d parameters, got %d", key, n, len(params))
	}

	arg := func(i int, def float64) float64 {
		if i < len(params) {
			return params[i]
		}
		return def
	}

	switch key {
	case "softclip":
		s := SoftClip{Linear: arg(0, DefaultSoftClipLinear), Slope: arg(1, DefaultSoftClipSlope)}
		if s.Slope == 0 {
			return nil, errors.New("transfer: softclip slope must be non-zero")
		}
		return s, nil
	case "gate":
		g := Gate{Threshold: arg(0, DefaultGateThreshold)}
		if g.Threshold < 0 {
			return nil, errors.New("transfer: gate threshold must not be negative")
		}
		return g, nil
	case "delta":
		return Delta{}, nil
	case "amplify":
		return Amplify{Gain: arg(0, DefaultAmplifyGain)}, nil
	default:
		return Identity{}, nil
	}
}

// Parse builds a stage from its textual form: "name[:p1,p2]" with stages
// joined by "|" forming a chain, e.g. "softclip:0.5,2|amplify:0.8".
func Parse(spec string) (Stage, error) {
	parts := strings.Split(spec, "|")
	chain := make(Chain, 0, len(parts))
	for _, part := range parts {
		stage, err := parseOne(part)
		if err != nil {
			return nil, err
		}
		chain = append(chain, stage)
	}
	if len(chain) == 1 {
		return chain[0], nil
	}
	return chain, nil
}

func parseOne(part string) (Stage, error) {
	name, rawParams, _ := strings.Cut(strings.TrimSpace(part), ":")
	var params []float64
	if rawParams != "" {
		for _, field := range strings.Split(rawParams, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("transfer: parameter %q of %s: %w", field, name, err)
			}
			params = append(params, v)
		}
	}
	return New(name, params...)
}
