package models

// Built-in trigger node kinds. Trigger nodes are the graph entry points: the
// executor starts a run from every in-degree-zero node carrying one of these
// types.
const (
	NodeKindTriggerWebhook  = "trigger:webhook"
	NodeKindTriggerSchedule = "trigger:schedule"
	NodeKindTriggerManual   = "trigger:manual"
)

var triggerKindAliases = map[string]bool{
	NodeKindTriggerWebhook:  true,
	NodeKindTriggerSchedule: true,
	NodeKindTriggerManual:   true,
	"webhook_trigger":       true,
	"schedule_trigger":      true,
	"manual_trigger":        true,
}

// IsTriggerKind reports whether a node-type string names a trigger node,
// including the legacy aliases.
func IsTriggerKind(kind string) bool {
	return triggerKindAliases[kind]
}
