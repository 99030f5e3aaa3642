package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farzamh/sms-dispatch/internal/domain"
	"github.com/farzamh/sms-dispatch/internal/service"
	"github.com/gofiber/fiber/v2"
)

// MessageSender is the dispatch surface the HTTP layer depends on.
type MessageSender interface {
	Send(ctx context.Context, recipient, content string) (*service.Receipt, error)
}

// BulkMessageSender fans one body out to many recipients.
type BulkMessageSender interface {
	SendBulk(ctx context.Context, recipients []string, content string) *service.BulkReceipt
}

// MessageReader is the tracking query surface consumed read-only by callers.
type MessageReader interface {
	Get(id string) (*domain.Message, error)
	ListAll() []domain.Message
}

// ConnectionTester probes provider credentials without sending a message.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

type MessageHandler struct {
	sender MessageSender
	bulk   BulkMessageSender
	reader MessageReader
	tester ConnectionTester
}

func NewMessageHandler(
	sender MessageSender,
	bulk BulkMessageSender,
	reader MessageReader,
	tester ConnectionTester,
) (*MessageHandler, error) {
	if sender == nil {
		return nil, fmt.Errorf("message sender is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("message reader is required")
	}
	return &MessageHandler{sender: sender, bulk: bulk, reader: reader, tester: tester}, nil
}

func RegisterMessageRoutes(
	router fiber.Router,
	sender MessageSender,
	bulk BulkMessageSender,
	reader MessageReader,
	tester ConnectionTester,
) error {
	h, err := NewMessageHandler(sender, bulk, reader, tester)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages", h.SendMessage)
	v1.Post("/messages/bulk", h.SendBulk)
	v1.Get("/messages", h.ListMessages)
	v1.Get("/messages/:id", h.GetMessage)
	v1.Get("/provider/test", h.TestProviderConnection)

	return nil
}

type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Content   string `json:"content"`
}

type sendBulkRequest struct {
	Recipients []string `json:"recipients"`
	Content    string   `json:"content"`
}

type sendMessageResponse struct {
	Success           bool   `json:"success"`
	TrackingID        string `json:"trackingId,omitempty"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	ErrorDetail       string `json:"errorDetail,omitempty"`
}

type sendBulkResponse struct {
	Success     bool     `json:"success"`
	TrackingIDs []string `json:"trackingIds"`
	FailedCount int      `json:"failedCount"`
	ErrorDetail string   `json:"errorDetail,omitempty"`
}

type messageResponse struct {
	ID                string    `json:"id"`
	Recipient         string    `json:"recipient"`
	Content           string    `json:"content"`
	Status            string    `json:"status"`
	ProviderMessageID *string   `json:"providerMessageId,omitempty"`
	ErrorDetail       *string   `json:"errorDetail,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type listMessagesResponse struct {
	Data  []messageResponse `json:"data"`
	Total int               `json:"total"`
}

type testConnectionResponse struct {
	Success     bool   `json:"success"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	receipt, err := h.sender.Send(c.Context(), req.Recipient, req.Content)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(sendMessageResponse{
		Success:           receipt.Success,
		TrackingID:        receipt.TrackingID,
		ProviderMessageID: receipt.ProviderMessageID,
		ErrorDetail:       receipt.ErrorDetail,
	})
}

func (h *MessageHandler) SendBulk(c *fiber.Ctx) error {
	if h.bulk == nil {
		return fiber.NewError(fiber.StatusNotImplemented, "bulk sending is not configured")
	}

	var req sendBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	receipt := h.bulk.SendBulk(c.Context(), req.Recipients, req.Content)

	return c.Status(fiber.StatusOK).JSON(sendBulkResponse{
		Success:     receipt.Success,
		TrackingIDs: receipt.TrackingIDs,
		FailedCount: receipt.FailedCount,
		ErrorDetail: receipt.ErrorDetail,
	})
}

func (h *MessageHandler) GetMessage(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	msg, err := h.reader.Get(id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(msg))
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	messages := h.reader.ListAll()

	data := make([]messageResponse, 0, len(messages))
	for i := range messages {
		data = append(data, toMessageResponse(&messages[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data:  data,
		Total: len(data),
	})
}

func (h *MessageHandler) TestProviderConnection(c *fiber.Ctx) error {
	if h.tester == nil {
		return toHTTPError(domain.ErrNoProvider)
	}

	if err := h.tester.TestConnection(c.Context()); err != nil {
		return c.Status(fiber.StatusOK).JSON(testConnectionResponse{
			Success:     false,
			ErrorDetail: err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(testConnectionResponse{Success: true})
}

func toMessageResponse(msg *domain.Message) messageResponse {
	if msg == nil {
		return messageResponse{}
	}

	return messageResponse{
		ID:                msg.ID,
		Recipient:         msg.Recipient,
		Content:           msg.Content,
		Status:            msg.Status.String(),
		ProviderMessageID: msg.ProviderMessageID,
		ErrorDetail:       msg.ErrorDetail,
		CreatedAt:         msg.CreatedAt,
		UpdatedAt:         msg.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoProvider):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
