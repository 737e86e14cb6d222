package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth"

	"github.com/hksamms/samms-services/internal/apisvc/models"
)

type principalKey struct{}

// Principal is the verified token subject.
type Principal struct {
	UserID string
	Role   string
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}

func (h *Handler) TokenAuth() *jwtauth.JWTAuth {
	return h.tokenAuth
}

// IssueToken signs a token carrying the user id and role.
func (h *Handler) IssueToken(u *models.User) (string, error) {
	now := time.Now()
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"_id":  u.ID.Hex(),
		"role": u.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(h.tokenTTL).Unix(),
	})
	return tokenString, err
}

// Authenticator answers 401 when no token was sent and 403 when it does not
// verify. It must run after jwtauth.Verifier.
func (h *Handler) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if errors.Is(err, jwtauth.ErrNoTokenFound) {
			h.CreateResponse(w, Response{Message: "No token", Code: http.StatusUnauthorized})
			return
		}
		if err != nil || token == nil {
			h.CreateResponse(w, Response{Message: "Invalid token", Code: http.StatusForbidden})
			return
		}

		id, _ := claims["_id"].(string)
		role, _ := claims["role"].(string)
		if id == "" {
			h.CreateResponse(w, Response{Message: "Invalid token", Code: http.StatusForbidden})
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, Principal{UserID: id, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole lets only the listed roles through.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFrom(r.Context())
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			h.CreateResponse(w, Response{Message: "Access denied", Code: http.StatusForbidden})
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginData struct {
	Token      string `json:"token"`
	Role       string `json:"role"`
	Username   string `json:"username"`
	EmployeeID string `json:"employeeId"`
	Email      string `json:"email"`
	Status     string `json:"status"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, err, "Server error")
		return
	}

	token, err := h.IssueToken(u)
	if err != nil {
		h.fail(w, err, "Server error")
		return
	}

	employeeID := u.EmployeeID
	if employeeID == "" {
		employeeID = "N/A"
	}
	h.CreateResponse(w, Response{
		Message: "Login successful",
		Code:    http.StatusOK,
		Data: loginData{
			Token:      token,
			Role:       u.Role,
			Username:   u.Username,
			EmployeeID: employeeID,
			Email:      u.Email,
			Status:     u.Status,
		},
	})
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		h.fail(w, err, "Failed to send OTP")
		return
	}
	h.CreateResponse(w, Response{Message: "OTP sent to email", Code: http.StatusOK})
}

func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		h.fail(w, err, "Server error")
		return
	}
	h.CreateResponse(w, Response{Message: "Code verified successfully", Code: http.StatusOK})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"newPassword"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		h.fail(w, err, notifyFallback(err, "Password reset but confirmation email failed"))
		return
	}
	h.CreateResponse(w, Response{Message: "Password reset successfully", Code: http.StatusOK})
}
