package auditlog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/healthythako/payment-redirect/internal/models"
	"github.com/healthythako/payment-redirect/pkg/logctx"
	"github.com/healthythako/payment-redirect/pkg/tool"
	"github.com/healthythako/payment-redirect/pkg/types"
)

// Service is the append-only recorder for redirect audit rows. Concurrent
// writers across invoices are safe; there is no update or delete path.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Record asynchronously persists a redirect audit row. Nil input is ignored.
// A write failure is logged and swallowed: the audit trail never changes a
// resolved pipeline state and never blocks navigation.
func (s *Service) Record(ctx context.Context, entry *models.PaymentRedirectLog) {
	go func() {
		if entry == nil {
			return
		}
		if entry.ID == "" {
			entry.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Create(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to record redirect audit log: %v", err)
		}
	}()
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanResponse struct {
	Items []*models.PaymentRedirectLog `json:"items"`
	Total int64                        `json:"total"`
}

// Scan implements the paginated support/forensics listing used by admin.
func (s *Service) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.PaymentRedirectLog{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count redirect logs: %w", err)
	}

	var rows []*models.PaymentRedirectLog

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list redirect logs: %w", err)
	}

	return &ScanResponse{Items: rows, Total: total}, nil
}
