package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orchid-run/orchid/pkg/models"
)

func scheduledWorkflow(id, cronSpec string, active bool) *models.Workflow {
	return &models.Workflow{
		ID:     id,
		Active: active,
		Graph: &models.Graph{
			Nodes: []*models.GraphNode{
				{ID: "every", Type: models.NodeKindTriggerSchedule, Data: models.NodeData{
					Config: map[string]any{"cron": cronSpec},
				}},
				{ID: "set", Type: "variable"},
			},
			Edges: []*models.GraphEdge{
				{ID: "e1", Source: "every", Target: "set"},
			},
		},
	}
}

func TestSchedulesFor(t *testing.T) {
	workflows := []*models.Workflow{
		scheduledWorkflow("wf-b", "0 * * * *", true),
		scheduledWorkflow("wf-a", "*/5 * * * *", true),
		scheduledWorkflow("wf-inactive", "0 0 * * *", false),
	}

	entries := schedulesFor(workflows)

	assert.Equal(t, []scheduleEntry{
		{WorkflowID: "wf-a", NodeID: "every", Spec: "*/5 * * * *"},
		{WorkflowID: "wf-b", NodeID: "every", Spec: "0 * * * *"},
	}, entries)
}

func TestSchedulesForSkipsNodesWithoutCron(t *testing.T) {
	wf := scheduledWorkflow("wf-a", "", true)

	assert.Empty(t, schedulesFor([]*models.Workflow{wf}))
}

func TestSchedulesForSkipsNonEntrySchedules(t *testing.T) {
	wf := scheduledWorkflow("wf-a", "0 * * * *", true)
	wf.Graph.Edges = append(wf.Graph.Edges, &models.GraphEdge{
		ID: "e2", Source: "set", Target: "every",
	})

	assert.Empty(t, schedulesFor([]*models.Workflow{wf}))
}

func TestSignatureChangesWithEntries(t *testing.T) {
	a := schedulesFor([]*models.Workflow{scheduledWorkflow("wf-a", "0 * * * *", true)})
	b := schedulesFor([]*models.Workflow{scheduledWorkflow("wf-a", "*/5 * * * *", true)})

	assert.NotEqual(t, signatureOf(a), signatureOf(b))
	assert.Equal(t, signatureOf(a), signatureOf(a))
}
