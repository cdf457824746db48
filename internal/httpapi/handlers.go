package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vellum/backend/internal/ingest"
	"vellum/backend/internal/service"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func (a *API) handleSalesUpload(w http.ResponseWriter, r *http.Request) {
	files, err := a.readUploads(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	report, err := a.service.IngestSales(r.Context(), files)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (a *API) handleSalesClear(w http.ResponseWriter, r *http.Request) {
	removed, err := a.service.ClearSales(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (a *API) handleSalesChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := a.service.SalesChannels(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": channels})
}

func (a *API) handleSalesSnapshot(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSalesFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snapshot, err := a.service.SalesSnapshot(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) handleSalesExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSalesFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view := chi.URLParam(r, "view")
	var buf bytes.Buffer
	if err := a.service.ExportSales(r.Context(), filter, view, &buf); err != nil {
		a.fail(w, r, err)
		return
	}
	writeAttachment(w, csvContentType, "sales-"+view+".csv", buf.Bytes())
}

func (a *API) handleSalesSample(w http.ResponseWriter, r *http.Request) {
	sample, err := a.service.SampleSales()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeAttachment(w, csvContentType, "sales-sample.csv", sample)
}

// handleInsights answers from the cache unless refresh=true. Requests are
// limited per user since a miss may call the external generator.
func (a *API) handleInsights(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	if !a.insightLimiter.Allow(actor.Username) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many insight requests"))
		return
	}
	filter, err := parseSalesFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.Insights(r.Context(), filter, parseBool(r.URL.Query().Get("refresh")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleInsightCacheInfo(w http.ResponseWriter, r *http.Request) {
	info, err := a.service.InsightCacheInfo(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *API) handleInsightCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ClearInsightCache(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func (a *API) handleFunnelUpload(w http.ResponseWriter, r *http.Request) {
	files, err := a.readUploads(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	report, err := a.service.IngestFunnel(r.Context(), files)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (a *API) handleFunnelClear(w http.ResponseWriter, r *http.Request) {
	removed, err := a.service.ClearFunnel(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (a *API) handleFunnelStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := a.service.FunnelStatuses(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statuses": statuses})
}

func (a *API) handleFunnelSnapshot(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFunnelFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snapshot, err := a.service.FunnelSnapshot(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *API) handleFunnelExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFunnelFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view := chi.URLParam(r, "view")
	var buf bytes.Buffer
	if err := a.service.ExportFunnel(r.Context(), filter, view, &buf); err != nil {
		a.fail(w, r, err)
		return
	}
	writeAttachment(w, csvContentType, "funnel-"+view+".csv", buf.Bytes())
}

func (a *API) handleFunnelSample(w http.ResponseWriter, r *http.Request) {
	sample, err := a.service.SampleFunnel()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeAttachment(w, xlsxContentType, "funnel-sample.xlsx", sample)
}

// readUploads reads every multipart "file" part into memory. The whole body
// is capped at maxUploadBytes.
func (a *API) readUploads(w http.ResponseWriter, r *http.Request) ([]ingest.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: expected multipart form with file fields", ingest.ErrUnsupportedFormat)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return nil, service.ErrNoFiles
	}
	files := make([]ingest.File, 0, len(headers))
	for _, header := range headers {
		data, err := readPart(header)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
		}
		files = append(files, ingest.File{Name: header.Filename, Data: data})
	}
	return files, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	part, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer part.Close()
	return io.ReadAll(part)
}

func writeAttachment(w http.ResponseWriter, contentType string, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
