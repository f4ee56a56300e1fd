package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the text fields and part headers on top
// of the bill itself.
const multipartOverhead = 1 << 20

// ============================================================
// Simulator — POST /v1/simulations
// ============================================================

func simulateHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/simulations")
		defer span.End()

		var req domain.SimulationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		resp, err := service.Simulate(&req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// Lead form — POST /v1/leads (multipart)
// ============================================================

func submitLeadHandler(pipeline *service.LeadPipeline, maxUploadBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				handleServiceError(w, &domain.ErrFileTooLarge{Size: tooBig.Limit, Limit: maxUploadBytes}, logger)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		in := domain.SubmitInput{
			BillValue:   r.FormValue("bill_value"),
			ClientName:  r.FormValue("client_name"),
			ClientPhone: r.FormValue("client_phone"),
		}

		file, header, err := r.FormFile("energy_bill")
		switch {
		case errors.Is(err, http.ErrMissingFile):
			// the pipeline reports the missing file
		case err != nil:
			writeError(w, http.StatusBadRequest, "invalid energy_bill part")
			return
		default:
			defer file.Close()
			body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
			if err != nil {
				writeError(w, http.StatusBadRequest, "could not read energy_bill")
				return
			}
			in.BillFile = &domain.BillFile{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        body,
			}
		}

		resp, err := pipeline.Submit(ctx, SessionIDFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("lead.id", resp.Lead.ID))
		writeJSON(w, http.StatusCreated, resp)
	}
}

// ============================================================
// Lead listings
// ============================================================

func listAffiliateLeadsHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/affiliate/leads")
		defer span.End()

		status, err := parseStatusParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		actor := ActorFromContext(ctx)
		leads, err := svc.ListForAffiliate(ctx, actor.AffiliateID, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Lead]{Data: leads, Total: len(leads)})
	}
}

func listAdminLeadsHandler(svc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/leads")
		defer span.End()

		status, err := parseStatusParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		leads, err := svc.ListAll(ctx, domain.LeadFilter{
			AffiliateID: r.URL.Query().Get("affiliate_id"),
			Status:      status,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Lead]{Data: leads, Total: len(leads)})
	}
}

// ============================================================
// Lead updates — PATCH /v1/{affiliate,admin}/leads/{leadId}
// ============================================================

func updateLeadHandler(svc *service.LeadService, spanName string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), spanName)
		defer span.End()

		leadID := chi.URLParam(r, "leadId")
		span.SetAttributes(attribute.String("lead.id", leadID))

		var req domain.UpdateLeadRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		lead, err := svc.Update(ctx, ActorFromContext(ctx), leadID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, lead)
	}
}
