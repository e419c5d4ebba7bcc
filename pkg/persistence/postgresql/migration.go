package postgresql

// migrations returns the ordered schema migrations for the engine's tables.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				user_id TEXT NOT NULL,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_user_id ON workflows (user_id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL,
				current_node_id TEXT,
				context JSONB NOT NULL DEFAULT '{}',
				credits_used INTEGER NOT NULL DEFAULT 0,
				credits_estimated INTEGER NOT NULL DEFAULT 0,
				error_message TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow_id ON executions (workflow_id);
			CREATE INDEX IF NOT EXISTS idx_executions_status ON executions (status);

			CREATE TABLE IF NOT EXISTS step_results (
				id TEXT PRIMARY KEY,
				execution_id TEXT NOT NULL REFERENCES executions (id) ON DELETE CASCADE,
				node_id TEXT NOT NULL,
				node_type TEXT NOT NULL,
				status TEXT NOT NULL,
				input_data JSONB,
				output_data JSONB,
				credits_used INTEGER NOT NULL DEFAULT 0,
				error_message TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_step_results_execution_id ON step_results (execution_id);
		`,
		3: `
			CREATE TABLE IF NOT EXISTS schedules (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
				user_id TEXT NOT NULL,
				cron_expression TEXT NOT NULL,
				timezone TEXT NOT NULL DEFAULT '',
				is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				next_run_at TIMESTAMP WITH TIME ZONE,
				last_run_at TIMESTAMP WITH TIME ZONE,
				last_error TEXT NOT NULL DEFAULT '',
				run_count INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_schedules_due
				ON schedules (next_run_at) WHERE is_enabled;
		`,
	}
}
