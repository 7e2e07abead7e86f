package auth

import (
	"net/http"

	"smartdine/models"
	"smartdine/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Login serves POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	token, staff, err := h.svc.Login(r.Context(), input.Email, input.Password)
	if errors.Is(err, ErrBadCredentials) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"token":   token,
		"role":    staff.Role,
		"userid":  staff.ID,
	})
}

// Register serves POST /api/auth/register (admin only).
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := utils.DecodeJSON(r, &input); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	if input.Role == "" {
		input.Role = models.RoleChef
	}

	staff, err := h.svc.Register(r.Context(), input.Email, input.Password, input.Role)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"success": true,
		"message": "User registered",
		"user":    staff,
	})
}
