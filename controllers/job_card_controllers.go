package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/workshop-app/board"
	"github.com/yeremiapane/workshop-app/models"
	"github.com/yeremiapane/workshop-app/services"
	"github.com/yeremiapane/workshop-app/utils"
)

type JobCardController struct {
	Service *services.JobCardService
}

func NewJobCardController(service *services.JobCardService) *JobCardController {
	return &JobCardController{Service: service}
}

type createJobCardForm struct {
	CustomerName    string `form:"customer_name"`
	CustomerAddress string `form:"customer_address"`
	SrNo            string `form:"sr_no"`
	Make            string `form:"make"`
	HP              string `form:"hp"`
	KVA             string `form:"kva"`
	RPM             string `form:"rpm"`
	Type            string `form:"type"`
	Frame           string `form:"frame"`
	DealerName      string `form:"dealer_name"`
	DealerNumber    string `form:"dealer_number"`
	Works           string `form:"works"`
	Spares          string `form:"spares"`
	IndustrialWorks string `form:"industrial_works"`
	Others          string `form:"others"`
	Warranty        string `form:"warranty"`
}

// CreateJobCard -> multipart form with up to 5 "files"
func (jc *JobCardController) CreateJobCard(c *gin.Context) {
	var form createJobCardForm
	if err := c.ShouldBind(&form); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	phones, _ := formList(c, "phone_numbers")

	files, err := readFiles(c, "files")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	jobCard, err := jc.Service.Create(c.Request.Context(), services.JobCardInput{
		CustomerName:    form.CustomerName,
		CustomerAddress: form.CustomerAddress,
		PhoneNumbers:    phones,
		SrNo:            form.SrNo,
		Make:            form.Make,
		HP:              form.HP,
		KVA:             form.KVA,
		RPM:             form.RPM,
		Type:            form.Type,
		Frame:           form.Frame,
		DealerName:      form.DealerName,
		DealerNumber:    form.DealerNumber,
		Works:           form.Works,
		Spares:          form.Spares,
		IndustrialWorks: form.IndustrialWorks,
		Others:          form.Others,
		Warranty:        strings.EqualFold(strings.TrimSpace(form.Warranty), "true"),
	}, files)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	board.BroadcastJobCardCreated(jobCard)
	utils.RespondJSON(c, http.StatusCreated, "Job card created successfully", jobCard)
}

func (jc *JobCardController) AddImages(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	files, err := readFiles(c, "files")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	jobCard, err := jc.Service.AddImages(c.Request.Context(), id, files)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastJobCardUpdated(jobCard)
	utils.RespondJSON(c, http.StatusOK, "Images added successfully", jobCard)
}

// ListJobCards -> page, limit, searchTerm, warranty and one status flag
func (jc *JobCardController) ListJobCards(c *gin.Context) {
	page, err := utils.ParsePagination(c.Query("page"), c.Query("limit"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	warranty, err := parseBoolParam(c, "warranty")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	flags := services.JobCardStatusFlags{
		Returned:  queryFlag(c, "returned"),
		Pending:   queryFlag(c, "pending"),
		Completed: queryFlag(c, "completed"),
		Billed:    queryFlag(c, "billed"),
	}
	result, err := jc.Service.Search(c.Request.Context(), services.JobCardQuery{
		SearchTerm: c.Query("searchTerm"),
		Warranty:   warranty,
		Status:     flags.ResolveStatusFilter(),
		Page:       page,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of job cards", result)
}

func (jc *JobCardController) GetJobCard(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	jobCard, err := jc.Service.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job card details", jobCard)
}

// EditJobCard -> only the form fields present in the request are changed
func (jc *JobCardController) EditJobCard(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	files, err := readFiles(c, "files")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	removed, err := formIDs(c, "removed_images")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	patch := services.JobCardPatch{
		CustomerName:    formString(c, "customer_name"),
		CustomerAddress: formString(c, "customer_address"),
		SrNo:            formString(c, "sr_no"),
		Make:            formString(c, "make"),
		HP:              formString(c, "hp"),
		KVA:             formString(c, "kva"),
		RPM:             formString(c, "rpm"),
		Type:            formString(c, "type"),
		Frame:           formString(c, "frame"),
		DealerName:      formString(c, "dealer_name"),
		DealerNumber:    formString(c, "dealer_number"),
		Works:           formString(c, "works"),
		Spares:          formString(c, "spares"),
		IndustrialWorks: formString(c, "industrial_works"),
		Others:          formString(c, "others"),
		Warranty:        formBool(c, "warranty"),
	}
	if phones, ok := formList(c, "phone_numbers"); ok {
		if phones == nil {
			phones = []string{}
		}
		patch.PhoneNumbers = phones
	}

	jobCard, err := jc.Service.Edit(c.Request.Context(), id, patch, files, removed)
	if jobCard != nil {
		board.BroadcastJobCardUpdated(jobCard)
	}
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job card updated successfully", jobCard)
}

func (jc *JobCardController) Reports(c *gin.Context) {
	report, err := jc.Service.Reports(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Job card report", report)
}

func (jc *JobCardController) MarkWorkDone(c *gin.Context) {
	jc.transition(c, models.JobCardCompleted, "Job card marked as completed")
}

func (jc *JobCardController) MarkPending(c *gin.Context) {
	jc.transition(c, models.JobCardPending, "Job card marked as pending")
}

func (jc *JobCardController) MarkReturned(c *gin.Context) {
	jc.transition(c, models.JobCardReturned, "Job card marked as returned")
}

// MarkBilled -> needs invoiceNumber in the query or invoice_number in the body
func (jc *JobCardController) MarkBilled(c *gin.Context) {
	jc.transition(c, models.JobCardBilled, "Job card billed successfully")
}

func (jc *JobCardController) transition(c *gin.Context, target models.JobCardStatus, message string) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	invoice := c.Query("invoiceNumber")
	if invoice == "" && target == models.JobCardBilled {
		var body struct {
			InvoiceNumber string `json:"invoice_number" form:"invoice_number"`
		}
		_ = c.ShouldBind(&body)
		invoice = body.InvoiceNumber
	}

	jobCard, err := jc.Service.Transition(c.Request.Context(), id, target, invoice)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	board.BroadcastJobCardStatus(jobCard)
	utils.RespondJSON(c, http.StatusOK, message, jobCard)
}
