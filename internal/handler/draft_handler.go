package handler

import (
	"context"
	"errors"
	"net/http"

	"recap-mail/internal/domain/draft"
	"recap-mail/internal/services"
	"recap-mail/internal/transport/httpdto"
	recap_errors "recap-mail/pkg/errors"
	"recap-mail/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultDraftListLimit = 20
	maxDraftListLimit     = 100
)

type DraftGenerator interface {
	GenerateDraft(ctx context.Context, meetingID, transcriptID string, in services.DraftContext) services.GenerateDraftResult
	ListDrafts(ctx context.Context, userID uuid.UUID, meetingID string, limit int) ([]draft.EmailDraft, error)
	GetDraft(ctx context.Context, id uuid.UUID) (draft.EmailDraft, error)
}

// ArchiveLinker presigns read access to an archived generation attempt.
type ArchiveLinker interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

type DraftHandler struct {
	service DraftGenerator
	linker  ArchiveLinker
}

// NewDraftHandler creates a draft handler. linker may be nil when no archive
// is configured.
func NewDraftHandler(service DraftGenerator, linker ArchiveLinker) *DraftHandler {
	return &DraftHandler{service: service, linker: linker}
}

// Generate handles POST /v1/meetings/:meetingId/drafts. The body is always a
// GenerateDraftResult; only the status code varies with the outcome.
func (h *DraftHandler) Generate(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, recap_errors.ErrUnauthorized)
		return
	}

	var req httpdto.GenerateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", string(recap_errors.CodeValidationFailure)))
		return
	}

	meetingID := c.Param("meetingId")
	ctx := logger.WithMeetingID(c.Request.Context(), meetingID)
	res := h.service.GenerateDraft(ctx, meetingID, req.TranscriptID, services.DraftContext{
		UserID:     userID,
		Topic:      req.Topic,
		Transcript: req.Transcript,
		Attendees:  req.Attendees,
		Template:   req.Template,
		Voice:      req.Voice,
	})
	if err := res.Err(); err != nil {
		_ = c.Error(err)
		c.JSON(draftStatus(err), res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// draftStatus reports 502 for any upstream failure the generator gave up on.
func draftStatus(err error) int {
	switch recap_errors.CodeOf(err) {
	case recap_errors.CodeEmptyTranscript:
		return http.StatusUnprocessableEntity
	case recap_errors.CodePromptFailure, recap_errors.CodeValidationFailure:
		return http.StatusBadRequest
	case recap_errors.CodeRateLimited:
		return http.StatusTooManyRequests
	case recap_errors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// List handles GET /v1/meetings/:meetingId/drafts
func (h *DraftHandler) List(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, recap_errors.ErrUnauthorized)
		return
	}

	var req httpdto.ListDraftsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid query", string(recap_errors.CodeValidationFailure)))
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultDraftListLimit
	}
	if limit > maxDraftListLimit {
		limit = maxDraftListLimit
	}

	rows, err := h.service.ListDrafts(c.Request.Context(), userID, c.Param("meetingId"), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]httpdto.DraftDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, httpdto.ToDraftDTO(row))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListDraftsResponse{Drafts: out}))
}

// GetByID handles GET /v1/drafts/:id
func (h *DraftHandler) GetByID(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		writeError(c, recap_errors.ErrUnauthorized)
		return
	}
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid draft id", string(recap_errors.CodeValidationFailure)))
		return
	}

	row, err := h.service.GetDraft(c.Request.Context(), draftID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ownedBy(row, userID) {
		writeError(c, recap_errors.ErrNotFound)
		return
	}

	dto := httpdto.ToDraftDTO(row)
	if h.linker != nil && row.ArchiveKey.Valid {
		url, err := h.linker.PresignGet(c.Request.Context(), row.ArchiveKey.String)
		if err != nil {
			_ = c.Error(errors.Join(errors.New("presign archive"), err))
		} else {
			dto.ArchiveURL = url
		}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(dto))
}

// ownedBy reports whether row belongs to userID. Rows without an owner are
// hidden from everyone.
func ownedBy(row draft.EmailDraft, userID uuid.UUID) bool {
	return row.UserID.Valid && row.UserID.UUID == userID
}
