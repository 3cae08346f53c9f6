package visit

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/directionhq/frontdesk-api/internal/handler"
	"github.com/directionhq/frontdesk-api/internal/middleware"
	"github.com/directionhq/frontdesk-api/internal/model"
	"github.com/directionhq/frontdesk-api/internal/service/feed"
	"github.com/directionhq/frontdesk-api/internal/service/visit"
)

type Handler struct {
	svc *visit.Service
	hub *feed.Hub
}

func NewHandler(svc *visit.Service, hub *feed.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	visits := r.Group("/visits")
	{
		visits.POST("", h.RegisterVisit)
		visits.GET("/stream", h.Stream)
		visits.GET("/:id", h.GetVisit)
		visits.PATCH("/:id", h.UpdateVisit)
	}
	r.GET("/queue", h.ListQueue)

	patients := r.Group("/patients")
	{
		patients.GET("/:phone/visits", h.ListVisitsForPatient)
		patients.PATCH("/:id", h.UpdatePatient)
	}
}

// RegisterVisit checks in a patient and hands back the visit with its queue
// token. A repeat phone number reuses the existing patient record.
func (h *Handler) RegisterVisit(c *gin.Context) {
	var req model.RegisterVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.svc.RegisterVisit(c.Request.Context(), middleware.ActorID(c), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) GetVisit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid visit ID"))
		return
	}

	v, err := h.svc.GetVisit(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
}

func (h *Handler) UpdateVisit(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid visit ID"))
		return
	}

	var req model.UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	updated, err := h.svc.UpdateVisit(c.Request.Context(), middleware.ActorID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

// ListQueue serves the per-day desk view. Defaults to today; q matches
// patient name or phone fragments and status narrows by lifecycle stage.
func (h *Handler) ListQueue(c *gin.Context) {
	q, err := h.svc.ListQueue(c.Request.Context(), c.Query("date"), c.Query("q"), c.Query("status"))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(q))
}

func (h *Handler) ListVisitsForPatient(c *gin.Context) {
	exclude := uuid.Nil
	if raw := c.Query("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid exclude ID"))
			return
		}
		exclude = id
	}

	withPrescription := false
	if raw := c.Query("with_prescription"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid with_prescription flag"))
			return
		}
		withPrescription = parsed
	}

	visits, err := h.svc.ListVisitsForPatient(c.Request.Context(), c.Param("phone"), exclude, withPrescription)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(visits))
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patient, err := h.svc.UpdatePatient(c.Request.Context(), middleware.ActorID(c), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(patient))
}

// Stream pushes the visit feed over server-sent events: a snapshot of the
// current state first, then deltas as they commit. If the hub evicts the
// subscription for falling behind, the stream ends and the client reconnects
// for a fresh snapshot.
func (h *Handler) Stream(c *gin.Context) {
	scope, ok := feed.ParseScope(c.Query("scope"))
	if !ok {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid scope"))
		return
	}

	sub, err := h.hub.Subscribe(c.Request.Context(), scope)
	if err != nil {
		handler.Error(c, err)
		return
	}
	defer sub.Close()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent(string(event.Op), event)
			return true
		case <-clientGone:
			return false
		}
	})
}
