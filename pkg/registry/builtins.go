package registry

import (
	"log/slog"
	"net/http"

	countermemory "github.com/orchid-run/orchid/pkg/counter/memory"
	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/nodes/ai"
	"github.com/orchid-run/orchid/pkg/nodes/condition"
	"github.com/orchid-run/orchid/pkg/nodes/data"
	"github.com/orchid-run/orchid/pkg/nodes/httprequest"
	"github.com/orchid-run/orchid/pkg/nodes/merge"
	"github.com/orchid-run/orchid/pkg/nodes/messaging"
	"github.com/orchid-run/orchid/pkg/nodes/router"
	"github.com/orchid-run/orchid/pkg/nodes/subworkflow"
	"github.com/orchid-run/orchid/pkg/nodes/trigger"
	"github.com/orchid-run/orchid/pkg/nodes/variable"
	"github.com/orchid-run/orchid/pkg/nodes/wait"
	"github.com/orchid-run/orchid/pkg/protocol"
)

// Deps are the external collaborators the builtin handlers depend on. Nil
// optional collaborators leave their handlers unregistered, so a deployment
// without, say, CRM credentials simply has no crm:create_lead kind.
type Deps struct {
	Logger     *slog.Logger
	HTTPClient *http.Client

	OpenAIProvider ai.Provider
	ClaudeProvider ai.Provider
	LocalProvider  ai.Provider

	EmailGateway gateways.EmailGateway
	ChatGateway  gateways.ChatGateway
	CRMGateway   gateways.CRMGateway

	Counters     protocol.CounterStore
	SubWorkflows protocol.SubWorkflowExecutor
}

// RegisterBuiltins wires every builtin handler family into reg.
func RegisterBuiltins(reg *Registry, deps Deps) error {
	if deps.Counters == nil {
		deps.Counters = countermemory.NewCounterStore()
	}

	handlers := []protocol.Handler{
		trigger.NewHandler(),
		condition.NewHandler(),
		variable.NewHandler(),
		wait.NewHandler(),
		merge.NewHandler(),
		httprequest.NewHandler(deps.HTTPClient),
		router.NewHandler(deps.Counters, deps.Logger),
		data.NewJSONTransformHandler(),
		data.NewIteratorHandler(),
		data.NewAggregatorHandler(),
		data.NewTextParserHandler(),
		data.NewFilterHandler(),
		data.NewSortHandler(),
	}

	if deps.OpenAIProvider != nil {
		handlers = append(handlers, ai.NewOpenAIHandler(deps.OpenAIProvider))
	}

	if deps.ClaudeProvider != nil {
		handlers = append(handlers, ai.NewClaudeHandler(deps.ClaudeProvider))
	}

	if deps.LocalProvider != nil {
		handlers = append(handlers, ai.NewLocalHandler(deps.LocalProvider))
	}

	if deps.EmailGateway != nil {
		handlers = append(handlers, messaging.NewEmailHandler(deps.EmailGateway))
	}

	if deps.ChatGateway != nil {
		handlers = append(handlers, messaging.NewChatHandler(deps.ChatGateway))
	}

	if deps.CRMGateway != nil {
		handlers = append(handlers, messaging.NewCRMHandler(deps.CRMGateway))
	}

	if deps.SubWorkflows != nil {
		handlers = append(handlers, subworkflow.NewHandler(deps.SubWorkflows))
	}

	for _, handler := range handlers {
		if err := reg.Register(handler); err != nil {
			return err
		}
	}

	return nil
}
