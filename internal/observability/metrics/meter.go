// Copyright 2026 The AuthGrid Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Metrics holds the service's instruments: authorization decisions on
// guarded routes and issued token pairs. All record methods are safe on a
// nil receiver, so callers never need to branch on whether metrics are
// configured.
type Metrics struct {
	decisions    metric.Int64Counter
	tokensIssued metric.Int64Counter
}

// New creates the instrument set against the global meter provider. When
// disabled the instruments still exist but record into a noop-scoped meter.
func New(ctx context.Context, cfg Config, serviceName string) (*Metrics, error) {
	name := serviceName
	if !cfg.Enabled {
		name = "noop"
	}
	meter := otel.Meter(name)

	decisions, err := meter.Int64Counter(
		"authz.decisions",
		metric.WithDescription("Authorization decisions on guarded routes, by route and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authz.decisions counter: %w", err)
	}

	tokensIssued, err := meter.Int64Counter(
		"tokens.issued",
		metric.WithDescription("Access/refresh token pairs issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued counter: %w", err)
	}

	return &Metrics{
		decisions:    decisions,
		tokensIssued: tokensIssued,
	}, nil
}

// Decision records the outcome of a request to a guarded route.
func (m *Metrics) Decision(ctx context.Context, route string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("outcome", outcome),
	))
}

// TokenIssued records the issuance of one access/refresh pair.
func (m *Metrics) TokenIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.tokensIssued.Add(ctx, 1)
}
