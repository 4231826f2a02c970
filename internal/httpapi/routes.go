package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "datashare/internal/errors"
	"datashare/internal/models"
	"datashare/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type purchaseRequest struct {
	Package string `json:"package"`
}

type joinRequest struct {
	ConnectionToken string `json:"connection_token"`
}

type usageRequest struct {
	DataUsedMB decimal.Decimal `json:"data_used_mb"`
}

type usageResponse struct {
	Success    bool            `json:"success"`
	DataUsedGB decimal.Decimal `json:"data_used_gb"`
	Terminated bool            `json:"terminated"`
}

// sharerSessionView exposes the connection token to the session's sharer only
type sharerSessionView struct {
	*models.SharingSession
	ConnectionToken string `json:"connection_token"`
}

// bindJSON decodes the request body, reporting malformed bodies as validation errors
func bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		writeError(c, &apperrors.ValidationError{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

func (s *Server) issueToken(c *gin.Context, status int, user *models.User) {
	token, expiresAt, err := s.deps.Tokens.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, tokenResponse{Token: token, ExpiresAt: expiresAt, User: user})
}

func (s *Server) handleRegister(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.deps.Accounts.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	s.issueToken(c, http.StatusCreated, user)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.deps.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	s.issueToken(c, http.StatusOK, user)
}

func (s *Server) handleMe(c *gin.Context) {
	ctx := c.Request.Context()
	claims := currentClaims(c)

	user, err := s.deps.Accounts.GetUser(ctx, claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	balance, err := s.deps.Accounts.Balance(ctx, claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	active, err := s.deps.Sessions.ListBuyerSessions(ctx, claims.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":              user,
		"balance":           balance,
		"active_sessions":   active,
		"supported_country": s.deps.Accounts.IsSupportedCountry(user.Country),
	})
}

func (s *Server) handlePackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"packages": s.deps.Prices.Packages(),
		"rates":    s.deps.Prices.Rates(),
	})
}

func (s *Server) handlePurchase(c *gin.Context) {
	var req purchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.deps.Purchases.PurchaseTokens(c.Request.Context(), currentClaims(c).UserID, req.Package)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) handleTransactions(c *gin.Context) {
	txns, err := s.deps.Accounts.ListTransactions(c.Request.Context(), currentClaims(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (s *Server) handleStartSharing(c *gin.Context) {
	session, err := s.deps.Sessions.StartSharing(c.Request.Context(), currentClaims(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session":         sharerSessionView{SharingSession: session, ConnectionToken: session.ConnectionToken},
		"earnings_per_gb": s.deps.Prices.Rates().SharerRatePerGB,
	})
}

func (s *Server) handleMySessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentClaims(c).UserID

	hosted, err := s.deps.Sessions.ListSharerSessions(ctx, userID, false)
	if err != nil {
		writeError(c, err)
		return
	}

	joined, err := s.deps.Sessions.ListBuyerSessions(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}

	views := make([]sharerSessionView, 0, len(hosted))
	for i := range hosted {
		views = append(views, sharerSessionView{SharingSession: &hosted[i], ConnectionToken: hosted[i].ConnectionToken})
	}
	c.JSON(http.StatusOK, gin.H{"sharing": views, "connected": joined})
}

func (s *Server) handleAvailableSessions(c *gin.Context) {
	sessions, err := s.deps.Sessions.ListAvailable(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (s *Server) handleJoinSession(c *gin.Context) {
	var req joinRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := s.deps.Sessions.JoinSession(c.Request.Context(), req.ConnectionToken, currentClaims(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (s *Server) handleGetSession(c *gin.Context) {
	session, err := s.deps.Sessions.GetForParticipant(c.Request.Context(), c.Param("id"), currentClaims(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (s *Server) handleSessionQR(c *gin.Context) {
	png, err := s.deps.Sessions.ConnectionQR(c.Request.Context(), c.Param("id"), currentClaims(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleReportUsage(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")

	var req usageRequest
	if !bindJSON(c, &req) {
		return
	}

	// Only the session's participants may report usage
	if _, err := s.deps.Sessions.GetForParticipant(ctx, sessionID, currentClaims(c).UserID); err != nil {
		writeError(c, err)
		return
	}

	result, err := s.deps.Settlement.ReportUsage(ctx, sessionID, req.DataUsedMB)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usageResponse{Success: true, DataUsedGB: result.DeltaGB, Terminated: result.Terminated})
}

func (s *Server) handleStopSession(c *gin.Context) {
	session, err := s.deps.Settlement.StopSession(c.Request.Context(), c.Param("id"), currentClaims(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
}

func (s *Server) handleAdminOverview(c *gin.Context) {
	overview, err := s.deps.Admin.Overview(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) handleTopSharers(c *gin.Context) {
	sortType := models.SortByEarnings
	switch c.Query("sort") {
	case "email":
		sortType = models.SortByEmail
	case "joined":
		sortType = models.SortByJoined
	}

	stats, err := s.deps.Admin.TopSharers(c.Request.Context(), sortType)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sharers": stats})
}
