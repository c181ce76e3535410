package handler

import (
	"net/http"
	"strings"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
}

func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chat := router.Group("/api/chat")
	{
		chat.POST("", h.ProcessMessage)
		chat.GET("/status", h.GetStatus)
	}
}

// ProcessMessage runs one assistant exchange. The chat payload is not wrapped
// in the standard envelope: assistant faults come back inside ChatResponse
// with success=false, so the frontend renders them in the conversation.
func (h *ChatHandler) ProcessMessage(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	c.JSON(http.StatusOK, h.chatService.ProcessMessage(c.Request.Context(), req))
}

// GetStatus reports whether the assistant backend is configured.
func (h *ChatHandler) GetStatus(c *gin.Context) {
	configured := h.chatService.IsConfigured()
	message := "Chat service is ready"
	if !configured {
		message = "Chat service is not configured. Set GEMINI_API_KEY to enable it."
	}
	c.JSON(http.StatusOK, gin.H{
		"configured": configured,
		"message":    message,
	})
}
