package handle

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"med-match/api/internal/ocr"
)

type ingestRequest struct {
	LLMName  string `json:"llm_name"`
	ImageB64 string `json:"image_b64"`
	UserID   int64  `json:"user_id,omitempty"` // optional, defaults to the configured user
}

// LogDose handles POST /v1/dose/log. Business rejections come back as
// HTTP 200 with success=false and a typed error_type; only transport
// problems map to non-200 codes.
func (h *Handle) LogDose(w http.ResponseWriter, r *http.Request) {
	img, eng, uid, ok := h.decodeIngest(w, r)
	if !ok {
		return
	}
	res := h.pipe.ForUser(uid).LogDose(r.Context(), eng, img)
	writeJSON(w, http.StatusOK, res)
}

// UploadPrescription handles POST /v1/prescription/upload.
func (h *Handle) UploadPrescription(w http.ResponseWriter, r *http.Request) {
	img, eng, uid, ok := h.decodeIngest(w, r)
	if !ok {
		return
	}
	res := h.pipe.ForUser(uid).UploadPrescription(r.Context(), eng, img)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handle) decodeIngest(w http.ResponseWriter, r *http.Request) ([]byte, ocr.Engine, int64, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return nil, nil, 0, false
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return nil, nil, 0, false
	}
	img, err := base64.StdEncoding.DecodeString(strings.TrimSpace(req.ImageB64))
	if err != nil || len(img) == 0 {
		http.Error(w, "bad image_b64", http.StatusBadRequest)
		return nil, nil, 0, false
	}
	eng, err := h.engs.GetEngine(req.LLMName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, nil, 0, false
	}
	return img, eng, req.UserID, true
}
