package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campuscove/internal/models"
	"github.com/joshua-takyi/campuscove/internal/services"
)

type createBookingRequest struct {
	ServiceType    string                 `json:"serviceType" binding:"required"`
	ServiceID      string                 `json:"serviceId" binding:"required"`
	BookingDetails map[string]interface{} `json:"bookingDetails"`
}

type bookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

func CreateBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req createBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("serviceType and serviceId are required"))
			return
		}

		booking, err := b.CreateBooking(c.Request.Context(), claims, req.ServiceType, req.ServiceID, req.BookingDetails)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.SuccessResponse(booking, "Booking created successfully"))
	}
}

func ListBookings(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		bookings, err := b.ListBookings(c.Request.Context(), claims, c.Query("status"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ListResponse(bookings, len(bookings)))
	}
}

func GetBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		booking, err := b.GetBooking(c.Request.Context(), claims, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(booking, ""))
	}
}

// UpdateBookingStatus is the owner's accept/reject endpoint.
func UpdateBookingStatus(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req bookingStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("Invalid status. Must be accepted or rejected"))
			return
		}

		booking, err := b.UpdateBookingStatus(c.Request.Context(), claims, c.Param("id"), req.Status)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking "+string(booking.Status)+" successfully"))
	}
}

func CancelBooking(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		booking, err := b.CancelBooking(c.Request.Context(), claims, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Booking cancelled successfully"))
	}
}

func UpdatePaymentStatus(b *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := currentUser(c)
		if !ok {
			return
		}

		var req paymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("Invalid payment status. Must be paid or unpaid"))
			return
		}

		booking, err := b.UpdatePaymentStatus(c.Request.Context(), claims, c.Param("id"), req.PaymentStatus)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.SuccessResponse(booking, "Payment status updated successfully"))
	}
}
