package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/pitch-evaluator/internal/models"
	"alfredoptarigan/pitch-evaluator/internal/services"
)

const (
	kindValidation  = "validation_error"
	kindUpstream    = "upstream_unavailable"
	kindMalformed   = "malformed_response"
	kindInternal    = "internal_error"
	kindRequest     = "request_error"
	messageInternal = "evaluation failed unexpectedly"
)

// errorResponse maps the error taxonomy onto a status code and body. Model
// output never reaches the body.
func errorResponse(err error) models.ErrorResponse {
	var validationErr *services.ValidationError
	var upstreamErr *services.UpstreamError
	var malformedErr *services.MalformedResponseError

	switch {
	case errors.As(err, &validationErr):
		code := fiber.StatusBadRequest
		if validationErr.Reason == services.ReasonTooLarge {
			code = fiber.StatusRequestEntityTooLarge
		}
		return models.ErrorResponse{
			Error:   kindValidation,
			Reason:  string(validationErr.Reason),
			Message: validationErr.Message,
			Code:    code,
		}

	case errors.As(err, &upstreamErr):
		resp := models.ErrorResponse{
			Error:   kindUpstream,
			Message: "the evaluation model is unavailable, please try again",
			Code:    fiber.StatusBadGateway,
		}
		switch {
		case upstreamErr.Busy:
			resp.Reason = "busy"
			resp.Code = fiber.StatusServiceUnavailable
		case upstreamErr.Timeout:
			resp.Reason = "timeout"
			resp.Code = fiber.StatusGatewayTimeout
		}
		return resp

	case errors.As(err, &malformedErr):
		return models.ErrorResponse{
			Error:   kindMalformed,
			Message: "the evaluation could not be completed, please record again",
			Code:    fiber.StatusInternalServerError,
		}

	default:
		return models.ErrorResponse{
			Error:   kindInternal,
			Message: messageInternal,
			Code:    fiber.StatusInternalServerError,
		}
	}
}

func respondError(c *fiber.Ctx, requestID string, err error) error {
	resp := errorResponse(err)
	if resp.Reason != "" {
		log.Printf("❌ [%s] %d %s (%s)\n", requestID, resp.Code, resp.Error, resp.Reason)
	} else {
		log.Printf("❌ [%s] %d %s\n", requestID, resp.Code, resp.Error)
	}

	if resp.Code == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "5")
	}
	return c.Status(resp.Code).JSON(resp)
}

// NewErrorHandler handles errors that escape a handler or come from the server
// itself, such as a body over the server limit. fasthttp rejects such bodies
// before any middleware runs, so the handler sets the CORS origin header
// itself for allowOrigins (comma separated, "*" for any).
func NewErrorHandler(allowOrigins string) fiber.ErrorHandler {
	origins := strings.Split(allowOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(c *fiber.Ctx, err error) error {
		allowOrigin(c, origins)
		return handleError(c, err)
	}
}

func allowOrigin(c *fiber.Ctx, origins []string) {
	origin := c.Get(fiber.HeaderOrigin)
	if origin == "" {
		return
	}

	for _, allowed := range origins {
		switch allowed {
		case "*":
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
			return
		case origin:
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Vary(fiber.HeaderOrigin)
			return
		}
	}
}

func handleError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if !errors.As(err, &fiberErr) {
		log.Printf("❌ Unhandled error on %s %s\n", c.Method(), c.Path())
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   kindInternal,
			Message: messageInternal,
			Code:    fiber.StatusInternalServerError,
		})
	}

	resp := models.ErrorResponse{
		Error:   kindInternal,
		Message: fiberErr.Message,
		Code:    fiberErr.Code,
	}
	switch {
	case fiberErr.Code == fiber.StatusRequestEntityTooLarge:
		resp.Error = kindValidation
		resp.Reason = string(services.ReasonTooLarge)
	case fiberErr.Code >= 400 && fiberErr.Code < 500:
		resp.Error = kindRequest
	}

	return c.Status(resp.Code).JSON(resp)
}
