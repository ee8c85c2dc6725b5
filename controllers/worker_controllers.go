package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/workshop-app/board"
	"github.com/yeremiapane/workshop-app/services"
	"github.com/yeremiapane/workshop-app/utils"
)

type WorkerController struct {
	Service *services.WorkerService
}

func NewWorkerController(service *services.WorkerService) *WorkerController {
	return &WorkerController{Service: service}
}

// CreateWorker -> multipart form: worker_name, phone_number, image
func (wc *WorkerController) CreateWorker(c *gin.Context) {
	var req struct {
		WorkerName  string `form:"worker_name"`
		PhoneNumber string `form:"phone_number"`
	}
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	image, err := readSingleFile(c, "image")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	worker, err := wc.Service.Create(c.Request.Context(), services.WorkerInput{
		WorkerName:  req.WorkerName,
		PhoneNumber: req.PhoneNumber,
	}, image)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastWorkerUpdated(worker)
	utils.RespondJSON(c, http.StatusCreated, "Worker created successfully", worker)
}

func (wc *WorkerController) ListWorkers(c *gin.Context) {
	page, err := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	result, err := wc.Service.List(c.Request.Context(), page)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of workers", result)
}

// GetWorker -> /specific?id=
func (wc *WorkerController) GetWorker(c *gin.Context) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	worker, err := wc.Service.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Worker details", worker)
}

// EditWorker -> JSON or multipart form; an "image" part also replaces the photo
func (wc *WorkerController) EditWorker(c *gin.Context) {
	var req struct {
		ID          uint   `json:"id" form:"id"`
		WorkerName  string `json:"worker_name" form:"worker_name"`
		PhoneNumber string `json:"phone_number" form:"phone_number"`
	}
	if err := c.ShouldBind(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.ID == 0 {
		utils.RespondAppError(c, utils.NewValidationError("Worker id is required"))
		return
	}
	image, err := readSingleFile(c, "image")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	worker, err := wc.Service.Edit(c.Request.Context(), req.ID, services.WorkerPatch{
		WorkerName:  req.WorkerName,
		PhoneNumber: req.PhoneNumber,
	})
	if err == nil && image != nil {
		worker, err = wc.Service.UpdateImage(c.Request.Context(), req.ID, image)
	}
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastWorkerUpdated(worker)
	utils.RespondJSON(c, http.StatusOK, "Worker updated successfully", worker)
}

// ChangeStatus -> toggles availability, /change-status?id=
func (wc *WorkerController) ChangeStatus(c *gin.Context) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	worker, err := wc.Service.ChangeStatus(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastWorkerUpdated(worker)
	utils.RespondJSON(c, http.StatusOK, "Worker status changed", worker)
}

func (wc *WorkerController) ListAvailable(c *gin.Context) {
	workers, err := wc.Service.ListAvailable(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of available workers", workers)
}

func (wc *WorkerController) AssignWorker(c *gin.Context) {
	var req struct {
		WorkerID  uint `json:"worker_id"`
		JobCardID uint `json:"job_card_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	jobCard, err := wc.Service.AssignToJobCard(c.Request.Context(), req.WorkerID, req.JobCardID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastJobCardUpdated(jobCard)
	utils.RespondJSON(c, http.StatusOK, "Worker assigned successfully", jobCard)
}

func (wc *WorkerController) UpdateImage(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	image, err := readSingleFile(c, "image")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	worker, err := wc.Service.UpdateImage(c.Request.Context(), id, image)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastWorkerUpdated(worker)
	utils.RespondJSON(c, http.StatusOK, "Worker image updated", worker)
}
