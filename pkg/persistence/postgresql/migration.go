package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE flows (
				id VARCHAR(255) PRIMARY KEY,
				owner VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT false,
				is_template BOOLEAN NOT NULL DEFAULT false,
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				schedule VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_flows_owner ON flows(owner);
			CREATE INDEX idx_flows_active ON flows(active);

			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL REFERENCES flows(id),
				user_id VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'running', 'completed', 'failed')),
				context JSONB NOT NULL DEFAULT '{}',
				artifact_id VARCHAR(255),
				parent_execution_id VARCHAR(255),
				resume_context JSONB,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				heartbeat_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT,
				execution_log JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_executions_status ON executions(status);
			CREATE INDEX idx_executions_flow_id ON executions(flow_id);
			CREATE INDEX idx_executions_artifact_id ON executions(artifact_id);
			CREATE INDEX idx_executions_created_at ON executions(created_at);

			CREATE TABLE artifacts (
				id VARCHAR(255) PRIMARY KEY,
				activation_id VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'error')),
				processing_result JSONB,
				feed_item_id VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_artifacts_status ON artifacts(status);
			CREATE INDEX idx_artifacts_activation_id ON artifacts(activation_id);
			CREATE INDEX idx_artifacts_feed_item_id ON artifacts(feed_item_id);

			CREATE TABLE feed_items (
				id VARCHAR(255) PRIMARY KEY,
				activation_id VARCHAR(255) NOT NULL,
				title TEXT NOT NULL,
				normalized_title TEXT NOT NULL,
				url TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			-- Natural identity key: repeated executions over the same input
			-- must not duplicate derivative records.
			CREATE UNIQUE INDEX idx_feed_items_natural_key
				ON feed_items(activation_id, normalized_title);
			CREATE INDEX idx_feed_items_created_at ON feed_items(created_at);
		`,
	}
}
