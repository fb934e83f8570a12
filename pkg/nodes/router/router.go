// Package router provides the multi-route distribution handler. One node
// kind, five mutually exclusive modes selected by config.
package router

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"

	"github.com/expr-lang/expr"

	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/protocol"
	"github.com/orchid-run/orchid/pkg/template"
)

// FallbackHandle is followed in expression mode when no route filter matches.
const FallbackHandle = "fallback"

// Distribution modes.
const (
	ModeExpression = "expression"
	ModeRoundRobin = "round_robin"
	ModeWeighted   = "weighted"
	ModeRandom     = "random"
	ModeHash       = "hash"
)

var modes = map[string]bool{
	ModeExpression: true,
	ModeRoundRobin: true,
	ModeWeighted:   true,
	ModeRandom:     true,
	ModeHash:       true,
}

type route struct {
	Handle string
	When   string
	Weight int
}

// Handler picks one outgoing handle per visit. The round-robin and weighted
// modes share one durable counter per workflow+node+mode so fairness holds
// across concurrent runs; when the counter store is unreachable they degrade
// to random instead of failing the run.
type Handler struct {
	counters protocol.CounterStore
	logger   *slog.Logger
}

func NewHandler(counters protocol.CounterStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{counters: counters, logger: logger.With("module", "nodes.router")}
}

func (h *Handler) Kinds() []string {
	return []string{"router"}
}

func (h *Handler) Validate(config map[string]any) error {
	mode, _ := config["mode"].(string)
	if !modes[mode] {
		return fmt.Errorf("unknown router mode %q", mode)
	}

	routes, err := parseRoutes(config)
	if err != nil {
		return err
	}

	if len(routes) == 0 {
		return errors.New("at least one route is required")
	}

	for i, r := range routes {
		if r.Handle == "" {
			return fmt.Errorf("route %d: missing handle", i)
		}

		if mode == ModeWeighted && r.Weight <= 0 {
			return fmt.Errorf("route %d: weighted mode requires a positive weight", i)
		}
	}

	if mode == ModeHash {
		if field, _ := config["hash_field"].(string); field == "" {
			return errors.New("hash mode requires 'hash_field'")
		}
	}

	return nil
}

func (h *Handler) Execute(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode) (*models.NodeResult, error) {
	config := node.Config()

	mode, _ := config["mode"].(string)

	routes, err := parseRoutes(config)
	if err != nil {
		return nil, err
	}

	var handle string

	switch mode {
	case ModeExpression:
		handle, err = pickByExpression(routes, ectx)
	case ModeRoundRobin:
		handle = h.pickByCounter(ctx, ectx, node, mode, routes, false)
	case ModeWeighted:
		handle = h.pickByCounter(ctx, ectx, node, mode, routes, true)
	case ModeRandom:
		handle = pickRandom(routes)
	case ModeHash:
		handle, err = pickByHash(config, routes, ectx)
	default:
		err = fmt.Errorf("unknown router mode %q", mode)
	}

	if err != nil {
		return nil, err
	}

	return &models.NodeResult{
		SourceHandle: handle,
		Output: map[string]any{
			"mode":  mode,
			"route": handle,
		},
	}, nil
}

// pickByExpression evaluates each route's filter in order against the run's
// variables and trigger data; the first route whose filter is true (or whose
// filter is empty) wins.
func pickByExpression(routes []route, ectx *models.ExecutionContext) (string, error) {
	env := map[string]any{}
	for k, v := range ectx.TriggerData() {
		env[k] = v
	}

	for k, v := range ectx.Variables() {
		env[k] = v
	}

	for i, r := range routes {
		if r.When == "" {
			return r.Handle, nil
		}

		program, err := expr.Compile(r.When, expr.Env(env), expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return "", fmt.Errorf("route %d: compiling filter: %w", i, err)
		}

		matched, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("route %d: evaluating filter: %w", i, err)
		}

		if matched == true {
			return r.Handle, nil
		}
	}

	return FallbackHandle, nil
}

func (h *Handler) pickByCounter(ctx context.Context, ectx *models.ExecutionContext, node *models.GraphNode, mode string, routes []route, weighted bool) string {
	key := fmt.Sprintf("router:%s:%s:%s", ectx.WorkflowID, node.ID, mode)

	n, err := h.counters.Incr(ctx, key)
	if err != nil {
		h.logger.Warn("counter store unavailable, degrading to random",
			"key", key, "error", err)

		return pickRandom(routes)
	}

	if !weighted {
		return routes[int((n-1)%int64(len(routes)))].Handle
	}

	total := 0
	for _, r := range routes {
		total += r.Weight
	}

	slot := int((n - 1) % int64(total))
	for _, r := range routes {
		slot -= r.Weight
		if slot < 0 {
			return r.Handle
		}
	}

	return routes[len(routes)-1].Handle
}

func pickRandom(routes []route) string {
	return routes[rand.IntN(len(routes))].Handle
}

// pickByHash maps the resolved hash field to a route with FNV-1a, so the
// same input lands on the same route every run.
func pickByHash(config map[string]any, routes []route, ectx *models.ExecutionContext) (string, error) {
	field, _ := config["hash_field"].(string)

	value := template.Resolve(field, ectx)
	if value == "" {
		return "", errors.New("hash field resolved to empty string")
	}

	digest := fnv.New32a()
	digest.Write([]byte(value))

	// Modulo in uint32 space: int(Sum32()) can be negative on 32-bit ints.
	return routes[digest.Sum32()%uint32(len(routes))].Handle, nil
}

func parseRoutes(config map[string]any) ([]route, error) {
	raw, ok := config["routes"].([]any)
	if !ok {
		return nil, errors.New("missing required field 'routes'")
	}

	routes := make([]route, 0, len(raw))

	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("route %d: expected an object", i)
		}

		r := route{}
		r.Handle, _ = entry["handle"].(string)
		r.When, _ = entry["when"].(string)

		if weight, ok := entry["weight"].(float64); ok {
			r.Weight = int(weight)
		}

		routes = append(routes, r)
	}

	return routes, nil
}
