package catalog

import (
	"net/http"

	"smartdine/models"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxImageSize = 5 << 20

type Handler struct {
	svc    *Service
	images *ImageStore
}

func NewHandler(svc *Service, images *ImageStore) *Handler {
	return &Handler{svc: svc, images: images}
}

// GetFoods serves GET /api/foods.
func (h *Handler) GetFoods(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	foods, err := h.svc.List(r.Context())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, foods)
}

// AddFood serves POST /api/foods.
func (h *Handler) AddFood(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body NewFood
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	food, err := h.svc.Create(r.Context(), body)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"message": "Food added successfully",
		"food":    food,
	})
}

// DeleteFood serves DELETE /api/foods/:id.
func (h *Handler) DeleteFood(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.Delete(r.Context(), ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Food deleted successfully"})
}

// UploadFoodImage serves POST /api/foods/:id/image with a multipart "image" file.
func (h *Handler) UploadFoodImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id := ps.ByName("id")

	if _, err := h.svc.Get(ctx, id); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		utils.RespondWithAppError(w, r, errors.Wrapf(models.ErrInvalidArgument, "invalid upload: %v", err))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithAppError(w, r, errors.Wrap(models.ErrInvalidArgument, "image file is required"))
		return
	}
	defer file.Close()

	image, thumb, err := h.images.Save(file, id)
	if err != nil {
		log.WithError(err).WithField("food", id).Warn("food image rejected")
		utils.RespondWithAppError(w, r, errors.Wrap(models.ErrInvalidArgument, "unsupported image"))
		return
	}
	if err := h.svc.SetImages(ctx, id, image, thumb); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"image": image, "thumbnail": thumb})
}
