package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var pipelineTracer = otel.Tracer("service/lead_pipeline")

// allowedBillTypes maps accepted MIME types to the stored file extension.
var allowedBillTypes = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpg",
	"image/jpg":       "jpg",
	"image/png":       "png",
}

// PipelineConfig tunes the submission pipeline.
type PipelineConfig struct {
	MaxUploadBytes         int64
	CleanupOrphanedUploads bool
}

// LeadPipeline turns a visitor's form into a persisted lead: economy,
// attribution, bill upload, commission snapshot, insert.
type LeadPipeline struct {
	referrals *ReferralService
	leads     port.LeadStore
	documents port.DocumentStore
	cfg       PipelineConfig
	metrics   *observability.Metrics
	logger    *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewLeadPipeline creates the submission pipeline.
func NewLeadPipeline(referrals *ReferralService, leads port.LeadStore, documents port.DocumentStore, cfg PipelineConfig, metrics *observability.Metrics, logger *zap.Logger) *LeadPipeline {
	return &LeadPipeline{
		referrals: referrals,
		leads:     leads,
		documents: documents,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// validated is a SubmitInput that passed every precondition.
type validated struct {
	bill        decimal.Decimal
	clientName  string
	clientPhone string
	contentType string
	ext         string
	body        []byte
}

// Submit runs the pipeline for session sid. Each step waits for the previous
// one; a failure stops the run and nothing after it happens.
func (p *LeadPipeline) Submit(ctx context.Context, sid string, in domain.SubmitInput) (*domain.SubmitResponse, error) {
	ctx, span := pipelineTracer.Start(ctx, "LeadPipeline.Submit")
	defer span.End()
	start := p.now()

	v, err := p.validate(in)
	if err != nil {
		p.metrics.IncrLeadSubmission(observability.OutcomeRejected)
		return nil, err
	}

	// 1. economy
	economy := domain.Simulate(v.bill)

	// 2. attribution
	attribution := domain.Attribution{CommissionRate: p.referrals.defaultRate}
	if code, ok := p.referrals.Pending(sid); ok {
		attribution = p.referrals.Resolve(ctx, code)
	}

	// 3. upload
	leadID := p.newID()
	span.SetAttributes(attribute.String("lead.id", leadID))
	key := fmt.Sprintf("leads/%s_%d.%s", leadID, p.now().UnixMilli(), v.ext)

	fileURL, err := p.documents.Upload(ctx, key, v.contentType, v.body)
	if err != nil {
		p.metrics.IncrLeadSubmission(observability.OutcomeFailed)
		p.metrics.IncrExternalError("storage")
		p.logger.Error("lead pipeline: bill upload failed",
			zap.String("lead_id", observability.MaskID(leadID)),
			zap.Error(err),
		)
		return nil, asExternal("storage", err)
	}

	// 4. commission snapshot
	commission := domain.Commission(v.bill, attribution.CommissionRate)

	// 5. persist
	lead, err := p.leads.CreateLead(ctx, &domain.NewLead{
		ID:               leadID,
		ClientName:       v.clientName,
		ClientPhone:      v.clientPhone,
		BillValue:        v.bill,
		MonthlyEconomy:   economy.Monthly,
		YearlyEconomy:    economy.Yearly,
		CommissionAmount: commission,
		CommissionRate:   attribution.CommissionRate,
		AffiliateID:      attribution.AffiliateID,
		EnergyBillFile:   fileURL,
		Status:           domain.LeadStatusNew,
	})
	if err != nil {
		p.metrics.IncrLeadSubmission(observability.OutcomeFailed)
		p.handleOrphan(ctx, key, fileURL)
		return nil, err
	}

	// 6. the referral is single-use
	if attribution.Code != "" {
		p.referrals.Consume(sid)
	}

	p.metrics.IncrLeadSubmission(observability.OutcomeCreated)
	p.metrics.RecordRequestDuration("lead_pipeline", time.Since(start))
	p.logger.Info("lead created",
		zap.String("lead_id", observability.MaskID(lead.ID)),
		zap.String("client_name", observability.MaskName(lead.ClientName)),
		zap.String("client_phone", observability.MaskPhone(lead.ClientPhone)),
		zap.String("energy_bill_file", observability.MaskURL(lead.EnergyBillFile)),
		zap.Bool("attributed", attribution.Attributed()),
	)

	resp := &domain.SubmitResponse{
		Lead:          lead,
		FunEquivalent: domain.FunEquivalent(lead.YearlyEconomy),
	}
	if attribution.Affiliate != nil {
		resp.Affiliate = &domain.ContactCard{
			Name:  attribution.Affiliate.Name,
			Phone: domain.UnformatPhone(attribution.Affiliate.Phone),
		}
	}
	return resp, nil
}

// handleOrphan records a stored bill that no lead row points to and, when
// enabled, tries once to remove it.
func (p *LeadPipeline) handleOrphan(ctx context.Context, key, fileURL string) {
	p.metrics.IncrOrphanedUpload()
	p.logger.Warn("lead pipeline: insert failed after upload, bill is orphaned",
		zap.String("object_key", key),
		zap.String("energy_bill_file", observability.MaskURL(fileURL)),
	)
	if !p.cfg.CleanupOrphanedUploads {
		return
	}
	if err := p.documents.Delete(ctx, key); err != nil {
		p.logger.Warn("lead pipeline: orphan cleanup failed",
			zap.String("object_key", key),
			zap.Error(err),
		)
		return
	}
	p.logger.Info("lead pipeline: orphan removed", zap.String("object_key", key))
}

// validate checks every precondition before any I/O happens.
func (p *LeadPipeline) validate(in domain.SubmitInput) (*validated, error) {
	if strings.TrimSpace(in.BillValue) == "" {
		return nil, &domain.ErrValidation{Field: "bill_value", Message: "valor da conta é obrigatório"}
	}
	name := strings.TrimSpace(in.ClientName)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "client_name", Message: "nome é obrigatório"}
	}
	if strings.TrimSpace(in.ClientPhone) == "" {
		return nil, &domain.ErrValidation{Field: "client_phone", Message: "telefone é obrigatório"}
	}
	if in.BillFile == nil || len(in.BillFile.Body) == 0 {
		return nil, &domain.ErrValidation{Field: "energy_bill", Message: "comprovante da conta de luz é obrigatório"}
	}

	bill, err := domain.ParseBillValue(in.BillValue)
	if err != nil {
		return nil, err
	}
	if !domain.IsValidPhone(in.ClientPhone) {
		return nil, &domain.ErrValidation{Field: "client_phone", Message: "telefone deve ter 10 ou 11 dígitos"}
	}

	file := in.BillFile
	size := file.Size
	if size <= 0 {
		size = int64(len(file.Body))
	}
	if p.cfg.MaxUploadBytes > 0 && size > p.cfg.MaxUploadBytes {
		return nil, &domain.ErrFileTooLarge{Size: size, Limit: p.cfg.MaxUploadBytes}
	}

	contentType := billContentType(file)
	ext, ok := allowedBillTypes[contentType]
	if !ok {
		return nil, &domain.ErrUnsupportedFile{ContentType: contentType}
	}
	switch fromName := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Name)), "."); fromName {
	case "pdf", "jpg", "jpeg", "png":
		ext = fromName
	}

	return &validated{
		bill:        bill,
		clientName:  name,
		clientPhone: domain.UnformatPhone(in.ClientPhone),
		contentType: contentType,
		ext:         ext,
		body:        file.Body,
	}, nil
}

// billContentType returns the declared media type, sniffing the body when
// the client sent none or a generic one.
func billContentType(f *domain.BillFile) string {
	declared := f.ContentType
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}
	declared = strings.ToLower(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	head := f.Body
	if len(head) > 512 {
		head = head[:512]
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	return sniffed
}

// asExternal keeps typed errors and wraps the rest.
func asExternal(service string, err error) error {
	var ext *domain.ErrExternalService
	var open *domain.ErrCircuitOpen
	if errors.As(err, &ext) || errors.As(err, &open) {
		return err
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}
