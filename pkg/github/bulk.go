package github

import (
	"context"

	"go.uber.org/zap"
)

// BulkCreator creates labels once at organization level through GraphQL
type BulkCreator struct {
	client APIClient
	logger *zap.Logger
}

// NewBulkCreator creates a bulk creator. A nil logger discards output.
func NewBulkCreator(client APIClient, logger *zap.Logger) *BulkCreator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkCreator{client: client, logger: logger}
}

// ResolveOwnerID returns the GraphQL node ID of org
func (b *BulkCreator) ResolveOwnerID(ctx context.Context, org string) (string, error) {
	return b.client.GetOrganizationNodeID(ctx, org)
}

// CreateOrgLabels issues one createLabel mutation per label. A label whose
// mutation fails is recorded and skipped; the remaining labels still run.
func (b *BulkCreator) CreateOrgLabels(ctx context.Context, ownerID string, labels []Label) []BulkResult {
	results := make([]BulkResult, 0, len(labels))

	for _, label := range labels {
		if err := ctx.Err(); err != nil {
			results = append(results, BulkResult{Label: label, Err: err})
			continue
		}

		id, err := b.client.CreateOrgLabel(ctx, ownerID, label)
		if err != nil {
			b.logger.Warn("Organization label creation failed",
				zap.String("label", label.Name),
				zap.Error(err))
			results = append(results, BulkResult{Label: label, Err: err})
			continue
		}

		b.logger.Debug("Created organization label", zap.String("label", label.Name), zap.String("id", id))
		results = append(results, BulkResult{Label: label, Created: true, LabelID: id})
	}

	return results
}
