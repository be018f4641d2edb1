package handler

import (
	"net/http"
	"net/url"

	"github.com/dcl-platform/metamorph/internal/domain/model"
	"github.com/dcl-platform/metamorph/internal/usecase"
)

// ConvertHandler handles media conversion requests.
type ConvertHandler struct {
	svc *usecase.ConvertService
}

// NewConvertHandler creates a new ConvertHandler.
func NewConvertHandler(svc *usecase.ConvertService) *ConvertHandler {
	return &ConvertHandler{svc: svc}
}

// Convert handles GET and HEAD /convert.
//
// Query parameters:
//
//	url          source media URL (required, absolute http/https)
//	imageFormat  UASTC | ASTC | ASTC_HIGH (default UASTC)
//	videoFormat  MP4 | OGV (default MP4)
//	wait         "true" to block until the conversion finishes or times out
//	forceRefresh "true" to revalidate the cached artifact regardless of age
//
// Responses: 302 with a Location to the artifact, or to the original URL
// while the conversion is still pending; 202 only when wait was requested
// and the wait budget ran out; 400 on invalid parameters.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("url")
	if raw == "" {
		Error(w, http.StatusBadRequest, "missing_url", "The url parameter is required")
		return
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		Error(w, http.StatusBadRequest, "invalid_url", "The url parameter must be an absolute http or https URL")
		return
	}

	imageFormat, err := model.ParseImageFormat(q.Get("imageFormat"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_image_format", "imageFormat must be one of UASTC, ASTC, ASTC_HIGH")
		return
	}
	videoFormat, err := model.ParseVideoFormat(q.Get("videoFormat"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_video_format", "videoFormat must be one of MP4, OGV")
		return
	}

	out := h.svc.Convert(r.Context(), usecase.ConvertInput{
		URL:          raw,
		ImageFormat:  imageFormat,
		VideoFormat:  videoFormat,
		Wait:         q.Get("wait") == "true",
		ForceRefresh: q.Get("forceRefresh") == "true",
	})

	if out.Accepted {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	http.Redirect(w, r, out.RedirectURL, http.StatusFound)
}
