package handlers

import (
	"AssiScan/internal/config"
	"AssiScan/internal/extract"
	"AssiScan/internal/model"
	"AssiScan/internal/service"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RecordHandler обрабатывает конвейер сборки записей.
type RecordHandler struct {
	RecordService *service.RecordService
	Logger        *zap.SugaredLogger
	Config        *config.Config
}

// NewRecordHandler создаёт хендлер записей
func NewRecordHandler(recordService *service.RecordService, logger *zap.SugaredLogger, cfg *config.Config) *RecordHandler {
	return &RecordHandler{RecordService: recordService, Logger: logger, Config: cfg}
}

// formFile разбирает multipart-форму и достаёт файл из поля field.
// Закрытие файла - на вызывающем.
func (h *RecordHandler) formFile(w http.ResponseWriter, r *http.Request, field string) (extract.Upload, io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return extract.Upload{}, nil, err
		}
		if strings.Contains(err.Error(), "request body too large") {
			return extract.Upload{}, nil, &http.MaxBytesError{Limit: h.Config.MaxUploadBytes()}
		}
		return extract.Upload{}, nil, fmt.Errorf("%w: invalid multipart form: %v", service.ErrBadInput, err)
	}
	f, fh, err := r.FormFile(field)
	if err != nil {
		return extract.Upload{}, nil, fmt.Errorf("%w: no file uploaded", service.ErrBadInput)
	}
	if fh.Filename == "" {
		_ = f.Close()
		return extract.Upload{}, nil, fmt.Errorf("%w: no selected file", service.ErrBadInput)
	}
	return extract.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, f, nil
}

// Extract распознаёт свидетельство о рождении (поле imageFile).
func (h *RecordHandler) Extract(w http.ResponseWriter, r *http.Request) {
	up, closer, err := h.formFile(w, r, "imageFile")
	if err != nil {
		writeError(w, h.Logger, "Extract", err)
		return
	}
	defer closer.Close()

	res, err := h.RecordService.Extract(r.Context(), up)
	if err != nil {
		writeError(w, h.Logger, "Extract", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Success",
		"structured_data": res.Fields,
		"image_path":      res.ImagePath,
	})
}

// ExtractForm137 распознаёт Form 137 (поле imageFile).
func (h *RecordHandler) ExtractForm137(w http.ResponseWriter, r *http.Request) {
	up, closer, err := h.formFile(w, r, "imageFile")
	if err != nil {
		writeError(w, h.Logger, "ExtractForm137", err)
		return
	}
	defer closer.Close()

	res, err := h.RecordService.ExtractForm137(r.Context(), up)
	if err != nil {
		writeError(w, h.Logger, "ExtractForm137", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Success",
		"structured_data": res.School,
		"image_path":      res.ImagePath,
	})
}

// maxSaveBody - предел JSON-тела save-record: только текстовые поля.
const maxSaveBody = 1 << 20

// SaveRecordRequest принимает оба стиля ключей: snake_case и ключи ответа распознавания.
type SaveRecordRequest struct {
	service.SaveRequest
}

var saveKeys = map[string][]string{
	"name":               {"name", "Name"},
	"sex":                {"sex", "Sex"},
	"birthdate":          {"birthdate", "Birthdate"},
	"birthplace":         {"birthplace", "PlaceOfBirth"},
	"birth_order":        {"birth_order", "BirthOrder"},
	"religion":           {"religion", "Religion"},
	"age":                {"age", "Age"},
	"mother_name":        {"mother_name", "Mother_MaidenName"},
	"mother_citizenship": {"mother_citizenship", "Mother_Citizenship"},
	"mother_occupation":  {"mother_occupation", "Mother_Occupation"},
	"father_name":        {"father_name", "Father_Name"},
	"father_citizenship": {"father_citizenship", "Father_Citizenship"},
	"father_occupation":  {"father_occupation", "Father_Occupation"},
	"lrn":                {"lrn"},
	"school_name":        {"school_name"},
	"school_address":     {"school_address"},
	"final_average":      {"final_general_average"},
	"psa_image":          {"psa_image_path", "image_path"},
	"f137_image":         {"f137_image_path"},
	"email":              {"email"},
}

func (req *SaveRecordRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	get := func(key string) string {
		for _, k := range saveKeys[key] {
			if s := stringValue(raw[k]); s != "" {
				return s
			}
		}
		return ""
	}

	req.Fields = model.Fields{
		Name:              get("name"),
		Sex:               get("sex"),
		Birthdate:         get("birthdate"),
		PlaceOfBirth:      get("birthplace"),
		BirthOrder:        get("birth_order"),
		Religion:          get("religion"),
		MotherName:        get("mother_name"),
		MotherCitizenship: get("mother_citizenship"),
		MotherOccupation:  get("mother_occupation"),
		FatherName:        get("father_name"),
		FatherCitizenship: get("father_citizenship"),
		FatherOccupation:  get("father_occupation"),
	}
	req.School = model.SchoolFields{
		LRN:                 get("lrn"),
		SchoolName:          get("school_name"),
		SchoolAddress:       get("school_address"),
		FinalGeneralAverage: get("final_average"),
	}
	req.ImagePath = baseName(get("psa_image"))
	req.Form137Path = baseName(get("f137_image"))
	req.Age = get("age")
	req.Email = get("email")
	return nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if strings.EqualFold(s, "null") {
			return ""
		}
		return s
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// baseName отрезает путь: клиенты иногда присылают uploads/<file>.
func baseName(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(p, "\\", "/"))
}

// SaveRecord сохраняет подтверждённую запись и отправляет письмо.
func (h *RecordHandler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSaveBody)
	var req SaveRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.Logger, "SaveRecord", err)
			return
		}
		h.Logger.Warnw("SaveRecord: invalid request body", "error", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	res, err := h.RecordService.Save(r.Context(), req.SaveRequest)
	if err != nil {
		writeError(w, h.Logger, "SaveRecord", err)
		return
	}
	h.writeSaveResult(w, req.Fields.Name, res)
}

// Submit - весь конвейер за один запрос: imageFile + email.
func (h *RecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	up, closer, err := h.formFile(w, r, "imageFile")
	if err != nil {
		writeError(w, h.Logger, "Submit", err)
		return
	}
	defer closer.Close()

	res, err := h.RecordService.Submit(r.Context(), up, r.FormValue("email"))
	if err != nil {
		writeError(w, h.Logger, "Submit", err)
		return
	}
	h.writeSaveResult(w, "", res)
}

func (h *RecordHandler) writeSaveResult(w http.ResponseWriter, name string, res *service.SaveResult) {
	if res.State == service.StateRejectedDuplicate {
		msg := "Record already exists."
		if name != "" {
			msg = fmt.Sprintf("Record already exists for %s.", name)
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"status":  "error",
			"error":   "DUPLICATE_ENTRY",
			"message": msg,
			"state":   res.State,
		})
		return
	}

	body := map[string]any{
		"status":       "success",
		"db_id":        res.ID,
		"state":        res.State,
		"trace":        res.Trace,
		"email_status": res.Notification.Status,
	}
	if res.EmailFailed() {
		body["warning"] = "saved; email could not be sent"
	}
	writeJSON(w, http.StatusOK, body)
}

// UploadAdditional привязывает файл к слоту записи: поля file, id, type.
func (h *RecordHandler) UploadAdditional(w http.ResponseWriter, r *http.Request) {
	up, closer, err := h.formFile(w, r, "file")
	if err != nil {
		writeError(w, h.Logger, "UploadAdditional", err)
		return
	}
	defer closer.Close()

	id, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil || r.FormValue("type") == "" {
		h.Logger.Warnw("UploadAdditional: missing id or type", "id", r.FormValue("id"), "type", r.FormValue("type"))
		http.Error(w, "Missing ID or Type", http.StatusBadRequest)
		return
	}

	res, err := h.RecordService.BindAttachment(r.Context(), id, r.FormValue("type"), up)
	if err != nil {
		writeError(w, h.Logger, "UploadAdditional", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"state":  res.State,
		"slot":   res.Slot,
		"file":   res.Ref,
	})
}

// GetRecords - все записи, новые первыми.
func (h *RecordHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.RecordService.List(r.Context())
	if err != nil {
		writeError(w, h.Logger, "GetRecords", err)
		return
	}
	if recs == nil {
		recs = []model.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// DeleteRecord удаляет запись по id.
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.RecordService.Delete(r.Context(), id); err != nil {
		writeError(w, h.Logger, "DeleteRecord", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ExportXLSX отдаёт все записи книгой Excel.
func (h *RecordHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	b, err := h.RecordService.ExportXLSX(r.Context())
	if err != nil {
		writeError(w, h.Logger, "ExportXLSX", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="records.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// ServeUpload отдаёт сохранённый файл.
func (h *RecordHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rc, err := h.RecordService.OpenFile(r.Context(), name)
	if err != nil {
		writeError(w, h.Logger, "ServeUpload", err)
		return
	}
	defer rc.Close()

	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Warnw("ServeUpload: copy failed", "file", name, "error", err)
	}
}
