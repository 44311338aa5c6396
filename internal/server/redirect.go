package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	linkdomain "github.com/smallbiznis/affiliate/internal/link/domain"
	"go.uber.org/zap"
)

// Redirect resolves a tracked link, sets the attribution cookie and sends
// the visitor on to the destination. Unknown or disabled links go to the
// configured fallback when there is one.
func (s *Server) Redirect(c *gin.Context) {
	result, err := s.linkSvc.ResolveClick(c.Request.Context(), c.Param("slug"), visitorFrom(c))
	if err != nil {
		if errors.Is(err, linkdomain.ErrNotFound) && s.cfg.Attribution.FallbackURL != "" {
			c.Redirect(http.StatusFound, s.cfg.Attribution.FallbackURL)
			return
		}
		AbortWithError(c, err)
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cfg.Attribution.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   result.MaxAge,
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	c.Header("Cache-Control", "no-store")

	s.log.Debug("click redirected",
		zap.String("slug", result.Link.Slug),
		zap.String("link_id", result.Link.ID.String()),
	)
	c.Redirect(http.StatusFound, result.RedirectURL)
}
