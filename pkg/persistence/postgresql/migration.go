package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow definitions, graph stored as one JSONB document.
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL DEFAULT '',
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'published', 'archived')),
				active BOOLEAN NOT NULL DEFAULT FALSE,
				graph JSONB NOT NULL DEFAULT '{}',
				webhook_token VARCHAR(255),
				variables JSONB,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				published_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_status ON workflows(status);
			CREATE INDEX idx_workflows_tenant_id ON workflows(tenant_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);
			CREATE UNIQUE INDEX idx_workflows_webhook_token ON workflows(webhook_token) WHERE webhook_token IS NOT NULL;
		`,
		2: `
			-- Immutable published graph snapshots, numbered per workflow.
			CREATE TABLE workflow_versions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				number INTEGER NOT NULL CHECK (number >= 1),
				graph JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, number)
			);

			CREATE INDEX idx_workflow_versions_workflow_id ON workflow_versions(workflow_id);
		`,
		3: `
			-- Workflow runs and per-node trace rows.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id),
				version_number INTEGER NOT NULL DEFAULT 0,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed', 'cancelled')),
				triggered_by VARCHAR(50) NOT NULL,
				trigger_data JSONB DEFAULT '{}',
				result_data JSONB DEFAULT '{}',
				error_message TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE,
				finished_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id);
			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_created_at ON executions(created_at);

			CREATE TABLE node_execution_logs (
				id VARCHAR(255) PRIMARY KEY,
				execution_id VARCHAR(255) NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(255) NOT NULL DEFAULT '',
				node_label VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				input JSONB DEFAULT '{}',
				output JSONB DEFAULT '{}',
				error TEXT NOT NULL DEFAULT '',
				duration_ms BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_node_execution_logs_execution_id ON node_execution_logs(execution_id);
			CREATE INDEX idx_node_execution_logs_node_id ON node_execution_logs(node_id);
			CREATE INDEX idx_node_execution_logs_created_at ON node_execution_logs(created_at);
		`,
	}
}
