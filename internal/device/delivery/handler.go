package delivery

import (
	"log"
	"net/http"

	"voicecmd-backend/internal/device/repository"

	"github.com/gin-gonic/gin"
)

// DeviceHandler registers the devices command replies are pushed to
type DeviceHandler struct {
	deviceRepo repository.DeviceRepository
}

func NewDeviceHandler(deviceRepo repository.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{deviceRepo: deviceRepo}
}

// RegisterDeviceRequest represents the request body for registering a device
type RegisterDeviceRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}

// Register stores an FCM token for the caller
// POST /api/devices
func (h *DeviceHandler) Register(c *gin.Context) {
	userID := c.GetString("userID")

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.deviceRepo.SaveToken(userID, req.Token, req.DeviceInfo); err != nil {
		log.Printf("[Devices] Failed to save token for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "device registered"})
}

// Unregister removes one of the caller's tokens
// DELETE /api/devices/:token
func (h *DeviceHandler) Unregister(c *gin.Context) {
	userID := c.GetString("userID")
	token := c.Param("token")

	if err := h.deviceRepo.DeleteToken(userID, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to unregister device"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "device unregistered"})
}
