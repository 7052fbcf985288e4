package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_documents (
				name VARCHAR(128) PRIMARY KEY,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		2: `
			ALTER TABLE workflow_documents
				ADD COLUMN node_count INTEGER NOT NULL DEFAULT 0,
				ADD COLUMN connection_count INTEGER NOT NULL DEFAULT 0;

			CREATE INDEX idx_workflow_documents_updated_at ON workflow_documents(updated_at);
		`,
	}
}
