package handler

import (
	"fmt"
	"mime/multipart"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/slidereel/api/internal/assembly"
	"github.com/slidereel/api/internal/service"
	"github.com/slidereel/api/pkg/response"
)

type AssemblyHandler struct {
	runs      *service.RunService
	assets    *service.AssetService
	validator *validator.Validate
	maxUpload int64
}

func NewAssemblyHandler(runs *service.RunService, assets *service.AssetService, v *validator.Validate, maxUpload int64) *AssemblyHandler {
	return &AssemblyHandler{
		runs:      runs,
		assets:    assets,
		validator: v,
		maxUpload: maxUpload,
	}
}

// startAssemblyForm carries the non-file fields of the multipart submission.
type startAssemblyForm struct {
	ProjectName  string `validate:"required,min=1,max=120"`
	SoundtrackID string `validate:"omitempty,max=64"`
	FilterID     string `validate:"omitempty,max=64"`
}

var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var audioContentTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
	"audio/x-aac": true,
}

// Start handles POST /api/assembly/start
// @Summary      Start assembly run
// @Description  Submit 30 ordered images plus a narration track and start an asynchronous video assembly run
// @Tags         Assembly
// @Accept       multipart/form-data
// @Produce      json
// @Param        projectName  formData string true  "Project name"
// @Param        images       formData file   true  "Exactly 30 ordered image files (JPEG, PNG, WebP)"
// @Param        narration    formData file   true  "Narration audio file (WAV, MP3, M4A, AAC)"
// @Param        thumbnail    formData file   false "Optional intro still image"
// @Param        soundtrackId formData string false "Optional soundtrack catalog id"
// @Param        filterId     formData string false "Optional filter catalog id"
// @Success      202 {object} model.AssemblyStartResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/assembly/start [post]
func (h *AssemblyHandler) Start(c *fiber.Ctx) error {
	req := startAssemblyForm{
		ProjectName:  c.FormValue("projectName"),
		SoundtrackID: c.FormValue("soundtrackId"),
		FilterID:     c.FormValue("filterId"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.ValidationError(c, "Multipart form is required", nil)
	}

	images := form.File["images"]
	narrations := form.File["narration"]
	thumbnails := form.File["thumbnail"]

	// Cheap shape checks before any byte is staged: the asset set must be
	// structurally valid before resources are acquired.
	fields := make(map[string]string)
	if len(images) != assembly.RequiredImageCount {
		fields["images"] = fmt.Sprintf("expected %d, got %d", assembly.RequiredImageCount, len(images))
	}
	if len(narrations) != 1 || narrations[0].Size == 0 {
		fields["narration"] = "missing or empty"
	}
	if len(thumbnails) > 1 {
		fields["thumbnail"] = "at most one thumbnail allowed"
	}
	for i, img := range images {
		if img.Size == 0 {
			fields[fmt.Sprintf("images[%d]", i)] = "missing or empty"
		} else if img.Size > h.maxUpload {
			fields[fmt.Sprintf("images[%d]", i)] = "exceeds upload size limit"
		} else if ct := img.Header.Get("Content-Type"); ct != "" && !imageContentTypes[ct] {
			fields[fmt.Sprintf("images[%d]", i)] = "unsupported content type " + ct
		}
	}
	if len(narrations) == 1 {
		if narrations[0].Size > h.maxUpload {
			fields["narration"] = "exceeds upload size limit"
		} else if ct := narrations[0].Header.Get("Content-Type"); ct != "" && !audioContentTypes[ct] {
			fields["narration"] = "unsupported content type " + ct
		}
	}
	if len(fields) > 0 {
		return response.ValidationError(c, "Validation failed", fields)
	}

	projectID := uuid.New().String()
	ctx := c.Context()

	set := assembly.AssetSet{
		ProjectID:    projectID,
		Name:         req.ProjectName,
		SoundtrackID: req.SoundtrackID,
		FilterID:     req.FilterID,
	}

	// Stage in submission order; image order defines screen-time order.
	for i, img := range images {
		f, err := img.Open()
		if err != nil {
			return response.ServiceError(c, fmt.Sprintf("Failed to open image %d", i))
		}
		asset, err := h.assets.StageImage(ctx, projectID, i, f, img.Size, img.Filename, img.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			return response.ServiceError(c, err.Error())
		}
		set.Images = append(set.Images, asset)
	}

	narrationAsset, err := h.stageOne(c, narrations[0], func(f multipart.File) (assembly.Asset, error) {
		return h.assets.StageNarration(ctx, projectID, f, narrations[0].Size, narrations[0].Filename, narrations[0].Header.Get("Content-Type"))
	})
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	set.Narration = narrationAsset

	if len(thumbnails) == 1 {
		thumbAsset, err := h.stageOne(c, thumbnails[0], func(f multipart.File) (assembly.Asset, error) {
			return h.assets.StageThumbnail(ctx, projectID, f, thumbnails[0].Size, thumbnails[0].Filename, thumbnails[0].Header.Get("Content-Type"))
		})
		if err != nil {
			return response.ServiceError(c, err.Error())
		}
		set.Thumbnail = &thumbAsset
	}

	// Full domain validation; every unmet constraint is reported at once.
	if verr := assembly.Validate(set); verr != nil {
		return response.ValidationError(c, "Validation failed", verr.Fields)
	}

	result, err := h.runs.StartRun(ctx, set)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/assembly/status/:runId
// @Summary      Get assembly run status
// @Description  Get the current phase and progress of an assembly run
// @Tags         Assembly
// @Produce      json
// @Param        runId path string true "Run ID"
// @Success      200 {object} model.AssemblyStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/assembly/status/{runId} [get]
func (h *AssemblyHandler) Status(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	result, err := h.runs.GetStatus(c.Context(), runID)
	if err != nil {
		if err.Error() == "run not found" {
			return response.NotFound(c, "Run not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/assembly/result/:runId
// @Summary      Get assembly run result
// @Description  Get the finished video artifact descriptor of a completed run
// @Tags         Assembly
// @Produce      json
// @Param        runId path string true "Run ID"
// @Success      200 {object} model.AssemblyResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/assembly/result/{runId} [get]
func (h *AssemblyHandler) Result(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	result, err := h.runs.GetResult(c.Context(), runID)
	if err != nil {
		if err.Error() == "run not found" {
			return response.NotFound(c, "Run not found")
		}
		if err.Error() == "run not completed" {
			return response.ValidationError(c, "Run not completed yet", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/assembly/cancel/:runId
// @Summary      Cancel assembly run
// @Description  Request cancellation of a queued or running assembly run; the worker observes it between encode steps
// @Tags         Assembly
// @Produce      json
// @Param        runId path string true "Run ID"
// @Success      200 {object} model.AssemblyCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/assembly/cancel/{runId} [post]
func (h *AssemblyHandler) Cancel(c *fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return response.ValidationError(c, "Run ID is required", nil)
	}

	result, err := h.runs.RequestCancel(c.Context(), runID)
	if err != nil {
		if err.Error() == "run not found" {
			return response.NotFound(c, "Run not found")
		}
		if err.Error() == "run already completed" {
			return response.ValidationError(c, "Run already completed", nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func (h *AssemblyHandler) stageOne(c *fiber.Ctx, header *multipart.FileHeader, stage func(multipart.File) (assembly.Asset, error)) (assembly.Asset, error) {
	f, err := header.Open()
	if err != nil {
		return assembly.Asset{}, fmt.Errorf("failed to open %s", header.Filename)
	}
	defer f.Close()
	return stage(f)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
