package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchid-run/orchid/pkg/gateways"
	"github.com/orchid-run/orchid/pkg/models"
)

type fakeEmailGateway struct {
	sent []gateways.EmailMessage
	err  error
}

func (g *fakeEmailGateway) Send(_ context.Context, msg gateways.EmailMessage) error {
	g.sent = append(g.sent, msg)
	return g.err
}

type fakeChatGateway struct {
	posted []gateways.ChatMessage
}

func (g *fakeChatGateway) Post(_ context.Context, msg gateways.ChatMessage) error {
	g.posted = append(g.posted, msg)
	return nil
}

type fakeCRMGateway struct {
	leads []gateways.Lead
}

func (g *fakeCRMGateway) CreateLead(_ context.Context, lead gateways.Lead) (string, error) {
	g.leads = append(g.leads, lead)
	return "lead-42", nil
}

func node(kind string, config map[string]any) *models.GraphNode {
	return &models.GraphNode{
		ID:   "node-1",
		Type: kind,
		Data: models.NodeData{Type: kind, Config: config},
	}
}

func TestEmailHandlerResolvesTemplates(t *testing.T) {
	gateway := &fakeEmailGateway{}
	handler := NewEmailHandler(gateway)

	triggerData := map[string]any{"customer_email": "ada@example.com", "order_id": "A-100"}
	ectx := models.NewExecutionContext("exec-1", "wf-1", triggerData, nil)

	result, err := handler.Execute(context.Background(), ectx, node("email:send", map[string]any{
		"to":      "{{customer_email}}",
		"subject": "Order {{order_id}} confirmed",
		"body":    "Thanks!",
	}))
	require.NoError(t, err)

	require.Len(t, gateway.sent, 1)
	assert.Equal(t, []string{"ada@example.com"}, gateway.sent[0].To)
	assert.Equal(t, "Order A-100 confirmed", gateway.sent[0].Subject)

	assert.Equal(t, true, result.Output["sent"])
	assert.Equal(t, "ada@example.com", result.Output["to"])
	assert.Equal(t, "Order A-100 confirmed", result.Output["subject"])
}

func TestEmailHandlerMultipleRecipients(t *testing.T) {
	gateway := &fakeEmailGateway{}
	handler := NewEmailHandler(gateway)

	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	_, err := handler.Execute(context.Background(), ectx, node("email:send", map[string]any{
		"to":      "a@example.com, b@example.com",
		"subject": "hi",
	}))
	require.NoError(t, err)
	require.Len(t, gateway.sent, 1)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, gateway.sent[0].To)
}

func TestEmailHandlerGatewayError(t *testing.T) {
	gatewayErr := errors.New("relay refused")
	handler := NewEmailHandler(&fakeEmailGateway{err: gatewayErr})

	ectx := models.NewExecutionContext("exec-1", "wf-1", nil, nil)

	_, err := handler.Execute(context.Background(), ectx, node("email:send", map[string]any{
		"to":      "a@example.com",
		"subject": "hi",
	}))
	assert.ErrorIs(t, err, gatewayErr)
}

func TestEmailHandlerValidate(t *testing.T) {
	handler := NewEmailHandler(&fakeEmailGateway{})

	assert.Error(t, handler.Validate(map[string]any{"subject": "hi"}))
	assert.Error(t, handler.Validate(map[string]any{"to": "a@example.com"}))
	assert.NoError(t, handler.Validate(map[string]any{"to": "a@example.com", "subject": "hi"}))
}

func TestChatHandler(t *testing.T) {
	gateway := &fakeChatGateway{}
	handler := NewChatHandler(gateway)

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"status": "paid"}, nil)

	result, err := handler.Execute(context.Background(), ectx, node("chat:send", map[string]any{
		"channel": "#orders",
		"message": "order is {{status}}",
	}))
	require.NoError(t, err)

	require.Len(t, gateway.posted, 1)
	assert.Equal(t, "#orders", gateway.posted[0].Channel)
	assert.Equal(t, "order is paid", gateway.posted[0].Text)
	assert.Equal(t, true, result.Output["sent"])
}

func TestCRMHandler(t *testing.T) {
	gateway := &fakeCRMGateway{}
	handler := NewCRMHandler(gateway)

	ectx := models.NewExecutionContext("exec-1", "wf-1", map[string]any{"email": "ada@example.com"}, nil)

	result, err := handler.Execute(context.Background(), ectx, node("crm:create_lead", map[string]any{
		"name":   "Ada",
		"email":  "{{email}}",
		"source": "webhook",
	}))
	require.NoError(t, err)

	require.Len(t, gateway.leads, 1)
	assert.Equal(t, "ada@example.com", gateway.leads[0].Email)

	assert.Equal(t, true, result.Output["created"])
	assert.Equal(t, "lead-42", result.Output["lead_id"])
}
