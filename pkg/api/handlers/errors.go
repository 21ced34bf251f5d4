package handlers

import "github.com/gofiber/fiber/v3"

// ErrPlanUnavailable is returned when the cluster cannot be listed
var ErrPlanUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "could not list indices")

// ErrInvalidOutcome is returned when the outcome filter names no known outcome
var ErrInvalidOutcome = fiber.NewError(fiber.StatusBadRequest, "invalid outcome filter")
