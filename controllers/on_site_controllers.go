package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/workshop-app/board"
	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/services"
	"github.com/yeremiapane/workshop-app/utils"
)

type OnSiteController struct {
	Service *services.OnSiteService
}

func NewOnSiteController(service *services.OnSiteService) *OnSiteController {
	return &OnSiteController{Service: service}
}

func (oc *OnSiteController) CreateOnSite(c *gin.Context) {
	var req services.OnSiteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	job, err := oc.Service.Create(c.Request.Context(), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastOnSiteUpdated(job)
	utils.RespondJSON(c, http.StatusCreated, "On-site job created successfully", job)
}

func (oc *OnSiteController) ListOnSite(c *gin.Context) {
	page, err := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	q := services.OnSiteQuery{SearchTerm: c.Query("searchTerm"), Page: page}
	var invalid []string
	if v := c.Query("warranty_status"); v != "" {
		s := models.WarrantyStatus(v)
		if !s.Valid() {
			invalid = append(invalid, "warranty_status must be one of [Warranty Non-Warranty]")
		}
		q.WarrantyStatus = &s
	}
	if v := c.Query("complaint_status"); v != "" {
		s := models.ComplaintStatus(v)
		if !s.Valid() {
			invalid = append(invalid, "complaint_status must be one of [Pending Closed Sent to Workshop]")
		}
		q.ComplaintStatus = &s
	}
	if v := c.Query("payment_status"); v != "" {
		s := models.PaymentStatus(v)
		if !s.Valid() {
			invalid = append(invalid, "payment_status must be one of [Pending Paid]")
		}
		q.PaymentStatus = &s
	}
	if len(invalid) > 0 {
		utils.RespondAppError(c, utils.NewValidationError("Invalid filter value", invalid...))
		return
	}

	result, err := oc.Service.Search(c.Request.Context(), q)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of on-site jobs", result)
}

func (oc *OnSiteController) GetOnSite(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	job, err := oc.Service.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "On-site job details", job)
}

func (oc *OnSiteController) EditOnSite(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	var req services.OnSiteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	job, err := oc.Service.Edit(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastOnSiteUpdated(job)
	utils.RespondJSON(c, http.StatusOK, "On-site job updated successfully", job)
}

func (oc *OnSiteController) AssignWorker(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	var body struct {
		WorkerID uint `json:"worker_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	job, err := oc.Service.AssignWorker(c.Request.Context(), id, body.WorkerID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastOnSiteUpdated(job)
	utils.RespondJSON(c, http.StatusOK, "Worker assigned successfully", job)
}

func (oc *OnSiteController) UpdateComplaintStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	var body struct {
		ComplaintStatus string `json:"complaint_status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	job, err := oc.Service.SetComplaintStatus(c.Request.Context(), id, models.ComplaintStatus(body.ComplaintStatus))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastOnSiteUpdated(job)
	utils.RespondJSON(c, http.StatusOK, "Complaint status updated", job)
}

func (oc *OnSiteController) UpdatePaymentStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	var body struct {
		PaymentStatus string `json:"payment_status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	job, err := oc.Service.SetPaymentStatus(c.Request.Context(), id, models.PaymentStatus(body.PaymentStatus))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastOnSiteUpdated(job)
	utils.RespondJSON(c, http.StatusOK, "Payment status updated", job)
}
