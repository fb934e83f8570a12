package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/orchid-run/orchid/pkg/eventbus"
	"github.com/orchid-run/orchid/pkg/events"
	"github.com/orchid-run/orchid/pkg/models"
	"github.com/orchid-run/orchid/pkg/persistence"
)

const defaultSyncInterval = time.Minute

// scheduleEntry is one cron expression found on a schedule trigger node of
// an active workflow.
type scheduleEntry struct {
	WorkflowID string
	NodeID     string
	Spec       string
}

// schedulesFor extracts the cron entries from every active workflow. Only
// entry-point schedule trigger nodes with a non-empty cron expression count.
func schedulesFor(workflows []*models.Workflow) []scheduleEntry {
	entries := make([]scheduleEntry, 0)

	for _, wf := range workflows {
		if !wf.Active || wf.Graph == nil {
			continue
		}

		for _, node := range wf.Graph.Nodes {
			if node.Type != models.NodeKindTriggerSchedule && node.Type != "schedule_trigger" {
				continue
			}

			if wf.Graph.InDegree(node.ID) > 0 {
				continue
			}

			spec, _ := node.Config()["cron"].(string)
			if spec == "" {
				continue
			}

			entries = append(entries, scheduleEntry{
				WorkflowID: wf.ID,
				NodeID:     node.ID,
				Spec:       spec,
			})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].WorkflowID != entries[j].WorkflowID {
			return entries[i].WorkflowID < entries[j].WorkflowID
		}

		return entries[i].NodeID < entries[j].NodeID
	})

	return entries
}

func signatureOf(entries []scheduleEntry) string {
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		parts = append(parts, entry.WorkflowID+"/"+entry.NodeID+"@"+entry.Spec)
	}

	return strings.Join(parts, ";")
}

// Scheduler periodically re-reads the workflow store and keeps one cron job
// per schedule trigger node. Each firing enqueues a pending execution.
type Scheduler struct {
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	logger       *slog.Logger
	syncInterval time.Duration

	cron      *cron.Cron
	signature string
}

func NewScheduler(p persistence.Persistence, eventBus eventbus.EventBus, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		persistence:  p,
		eventBus:     eventBus,
		logger:       logger,
		syncInterval: defaultSyncInterval,
	}
}

// Start syncs the cron table immediately and then on every interval tick,
// blocking until the context is cancelled or a termination signal arrives.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.sync(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	s.logger.InfoContext(ctx, "Scheduler started", "sync_interval", s.syncInterval)

	for {
		select {
		case <-ticker.C:
			if err := s.sync(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Failed to sync schedules", "error", err)
			}
		case <-ctx.Done():
			s.stop()

			return nil
		case <-sigChan:
			s.logger.InfoContext(ctx, "Shutting down scheduler")
			s.stop()

			return nil
		}
	}
}

// sync rebuilds the cron table when the schedule set changed.
func (s *Scheduler) sync(ctx context.Context) error {
	workflows, err := s.persistence.WorkflowRepository().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	entries := schedulesFor(workflows)

	signature := signatureOf(entries)
	if signature == s.signature {
		return nil
	}

	next := cron.New()

	for _, entry := range entries {
		_, err := next.AddFunc(entry.Spec, func() {
			s.fire(context.Background(), entry)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid cron expression",
				"workflow_id", entry.WorkflowID, "node_id", entry.NodeID,
				"cron", entry.Spec, "error", err)
		}
	}

	s.stop()
	s.cron = next
	s.signature = signature
	s.cron.Start()

	s.logger.InfoContext(ctx, "Schedules synced", "entries", len(entries))

	return nil
}

func (s *Scheduler) stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// fire enqueues one scheduled run.
func (s *Scheduler) fire(ctx context.Context, entry scheduleEntry) {
	execution := &models.Execution{
		ID:          uuid.NewString(),
		WorkflowID:  entry.WorkflowID,
		Status:      models.ExecutionStatusPending,
		TriggeredBy: models.TriggeredBySchedule,
		TriggerData: map[string]any{
			"scheduled_at": time.Now().UTC().Format(time.RFC3339),
			"node_id":      entry.NodeID,
		},
	}

	if err := s.persistence.ExecutionRepository().Create(ctx, execution); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create scheduled execution",
			"workflow_id", entry.WorkflowID, "error", err)

		return
	}

	event := events.ExecutionRequested{
		BaseEvent: events.BaseEvent{
			ID:          s.eventBus.GenerateID(),
			Type:        events.ExecutionRequestedEvent,
			Timestamp:   time.Now().UTC(),
			WorkflowID:  entry.WorkflowID,
			ExecutionID: execution.ID,
		},
		TriggeredBy: models.TriggeredBySchedule,
	}

	if err := s.eventBus.Publish(ctx, entry.WorkflowID, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish scheduled execution request",
			"execution_id", execution.ID, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "Scheduled execution enqueued",
		"workflow_id", entry.WorkflowID, "execution_id", execution.ID)
}
