package repositories

import (
	"context"
	"database/sql"

	appcompliance "github.com/efilo-ai/compliance-engine/internal/application/compliance"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
	"github.com/efilo-ai/compliance-engine/pkg/types/common"
)

type postgresDocumentSource struct {
	baseRepo
}

// NewPostgresDocumentSource reads parsed document text from the documents
// table.  The table is owned by the document pipeline; this engine only
// consumes it.
func NewPostgresDocumentSource(conn *postgres.Connection, log logging.Logger) appcompliance.DocumentSource {
	return &postgresDocumentSource{baseRepo: baseRepo{conn: conn, log: log}}
}

func (r *postgresDocumentSource) GetDocument(ctx context.Context, projectID common.ProjectID, documentID common.ID) (*appcompliance.DocumentText, error) {
	row := r.executor(ctx).QueryRowContext(ctx,
		`SELECT id, name, file_type, COALESCE(parsed_text, '')
		 FROM documents
		 WHERE project_id = $1 AND id = $2`, projectID, documentID)

	var doc appcompliance.DocumentText
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Type, &doc.Text); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("document " + string(documentID) + " not found")
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load document")
	}
	return &doc, nil
}
