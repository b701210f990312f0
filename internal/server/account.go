package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/auditelle/storefront/internal/auth"
	"github.com/auditelle/storefront/internal/email"
	"github.com/auditelle/storefront/internal/logging"
	"github.com/auditelle/storefront/internal/pagination"
	"github.com/auditelle/storefront/internal/profile"
	"github.com/auditelle/storefront/internal/reseller"
)

// welcomeEmailHandler sends the welcome email once per user. The client
// calls it right after signup; repeats are answered without sending.
func (s *Server) welcomeEmailHandler(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := reseller.MustFromContext(ctx)
	errs := cfg.Strings.Errors
	user, _ := auth.GetUser(c)

	if user.Email == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": errs.UserNotFound})
		return
	}

	var (
		alreadySent bool
		sendErr     error
	)
	err := s.locks.Do(ctx, user.ID, func(ctx context.Context) error {
		p, err := s.store.EnsureProfile(ctx, user.ID, user.Email, user.Name)
		if err != nil {
			return err
		}
		if p.WelcomeEmailSent {
			alreadySent = true
			return nil
		}

		msg, err := email.Render(cfg, email.Welcome, email.Params{
			Name: email.DisplayName(p.FullName, user.Email),
		})
		if err != nil {
			return err
		}
		msg.To = user.Email
		if sendErr = s.mailer.Send(ctx, msg); sendErr != nil {
			// Leave the flag unset so the next call retries.
			return nil
		}
		_, err = s.store.MarkWelcomeEmailSent(ctx, user.ID)
		return err
	})
	if err != nil {
		s.internalError(c, "welcome email", err)
		return
	}

	if alreadySent {
		c.JSON(http.StatusOK, gin.H{"message": errs.EmailAlreadySent})
		return
	}
	if sendErr != nil {
		logging.L(ctx).Error("welcome email not sent", "user_id", user.ID, "error", sendErr)
	}
	c.JSON(http.StatusOK, gin.H{"success": sendErr == nil})
}

// listScansHandler pages through the caller's scan history, newest first.
func (s *Server) listScansHandler(c *gin.Context) {
	ctx := c.Request.Context()
	user, _ := auth.GetUser(c)

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit := pagination.ParseLimit(c.Query("limit"))

	scans, err := s.store.ListScans(ctx, user.ID, cursor, limit+1)
	if err != nil {
		s.internalError(c, "list scans", err)
		return
	}
	c.JSON(http.StatusOK, pagination.ComputePage(scans, limit, func(sc *profile.Scan) (time.Time, string) {
		return sc.CreatedAt, sc.ID
	}))
}
