package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"pinky-promise-api/internal/captcha"
	resp "pinky-promise-api/internal/transport/http/response"
)

// VerifyCaptcha gates register/login behind a human-verification token. The
// body is read here to pull captchaToken and restored so the handler can
// bind it again. No mutation happens until this check passes.
func VerifyCaptcha(v captcha.Verifier) gin.HandlerFunc {
	type body struct {
		CaptchaToken string `json:"captchaToken"`
	}
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			resp.AbortErr(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))

		var b body
		if err := json.Unmarshal(raw, &b); err != nil || b.CaptchaToken == "" {
			resp.AbortErr(c, http.StatusBadRequest, "Missing captcha token")
			return
		}

		ok, err := v.Verify(c.Request.Context(), b.CaptchaToken)
		if err != nil {
			// unreachable or erroring verifier, not a rejection
			resp.AbortErr(c, http.StatusInternalServerError, "Captcha service error")
			return
		}
		if !ok {
			resp.AbortErr(c, http.StatusBadRequest, "Captcha verification failed")
			return
		}
		c.Next()
	}
}
