package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/theeagle2407/Vigil/internal/monitor"
	"github.com/theeagle2407/Vigil/internal/risk"
)

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Status())
}

func (s *Server) getWalletProfile(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch wallet profile"})
		return
	}
	profile := s.monitor.WalletProfile(c.Request.Context(), address)
	c.JSON(http.StatusOK, profile)
}

func (s *Server) analyzeTransaction(c *gin.Context) {
	var tx risk.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		s.logger.Debug().Err(err).Msg("malformed analyze request")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analysis failed"})
		return
	}

	c.JSON(http.StatusOK, s.monitor.Evaluate(tx))
}

func (s *Server) getThreats(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	threats := s.registry.RecentThreats(limit)
	c.JSON(http.StatusOK, gin.H{
		"threats": threats,
		"total":   len(threats),
	})
}

func (s *Server) getAuditTrail(c *gin.Context) {
	actions := s.monitor.AuditTrail()
	c.JSON(http.StatusOK, gin.H{
		"actions": actions,
		"total":   len(actions),
	})
}

func (s *Server) updateSecurityRules(c *gin.Context) {
	var update monitor.RulesUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.logger.Debug().Err(err).Msg("malformed rules update")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rules"})
		return
	}

	s.monitor.UpdateRules(update)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Security rules updated",
	})
}

func (s *Server) startMonitoring(c *gin.Context) {
	address := c.Param("address")
	s.monitor.Watch(address)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Now monitoring %s", address),
		"address": address,
	})
}
