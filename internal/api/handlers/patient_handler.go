package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"patient-records-service/internal/adapters"
	"patient-records-service/internal/domain"
	"patient-records-service/internal/domain/dtos"
	"patient-records-service/internal/export"
	"patient-records-service/internal/services"
)

// PatientHandler exposes the record store over HTTP. It owns no domain logic:
// it decodes requests, invokes store operations, maps errors to status codes,
// and publishes a notification event per successful mutation.
type PatientHandler struct {
	store    services.RecordStoreContract
	notifier adapters.Notifier
	logger   *log.Logger
}

// NewPatientHandler wires the handler dependencies.
func NewPatientHandler(store services.RecordStoreContract, notifier adapters.Notifier, logger *log.Logger) *PatientHandler {
	return &PatientHandler{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns all patients, or the search matches when ?q= is present.
func (h *PatientHandler) List(c *fiber.Ctx) error {
	term := c.Query("q")
	patients := h.store.Search(c.Context(), term)
	return c.JSON(patients)
}

// Get returns one patient by id.
func (h *PatientHandler) Get(c *fiber.Ctx) error {
	patient, err := h.store.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(patient)
}

// Create registers a new patient record.
func (h *PatientHandler) Create(c *fiber.Ctx) error {
	var input dtos.PatientInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "could not parse request body: " + err.Error(),
		})
	}

	patient, err := h.store.Create(c.Context(), input)
	if err != nil {
		return h.renderError(c, err)
	}

	h.notifier.Publish(adapters.RecordEvent{Action: "created", PatientID: patient.ID, PatientName: patient.FullName()})
	return c.Status(fiber.StatusCreated).JSON(patient)
}

// Update replaces the editable fields of an existing patient.
func (h *PatientHandler) Update(c *fiber.Ctx) error {
	var input dtos.PatientInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "could not parse request body: " + err.Error(),
		})
	}

	patient, err := h.store.Update(c.Context(), c.Params("id"), input)
	if err != nil {
		return h.renderError(c, err)
	}

	h.notifier.Publish(adapters.RecordEvent{Action: "updated", PatientID: patient.ID, PatientName: patient.FullName()})
	return c.JSON(patient)
}

// Delete removes a patient and all of its sub-records.
func (h *PatientHandler) Delete(c *fiber.Ctx) error {
	removed, err := h.store.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return h.renderError(c, err)
	}

	h.notifier.Publish(adapters.RecordEvent{Action: "deleted", PatientID: removed.ID, PatientName: removed.FullName()})
	return c.JSON(removed)
}

// AddHistory appends a medical-history entry to a patient.
func (h *PatientHandler) AddHistory(c *fiber.Ctx) error {
	var input dtos.HistoryInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "could not parse request body: " + err.Error(),
		})
	}

	patient, err := h.store.AppendHistory(c.Context(), c.Params("id"), input)
	if err != nil {
		return h.renderError(c, err)
	}

	h.notifier.Publish(adapters.RecordEvent{Action: "history_added", PatientID: patient.ID, PatientName: patient.FullName()})
	return c.Status(fiber.StatusCreated).JSON(patient)
}

// AddLab appends a lab result to a patient.
func (h *PatientHandler) AddLab(c *fiber.Ctx) error {
	var input dtos.LabInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "could not parse request body: " + err.Error(),
		})
	}

	patient, err := h.store.AppendLab(c.Context(), c.Params("id"), input)
	if err != nil {
		return h.renderError(c, err)
	}

	h.notifier.Publish(adapters.RecordEvent{Action: "lab_added", PatientID: patient.ID, PatientName: patient.FullName()})
	return c.Status(fiber.StatusCreated).JSON(patient)
}

// Export renders the full patient record as a FHIR collection bundle.
func (h *PatientHandler) Export(c *fiber.Ctx) error {
	patient, err := h.store.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return h.renderError(c, err)
	}

	bundle, err := export.MapPatientToBundle(patient)
	if err != nil {
		h.logger.Printf("exporting patient %s failed: %v", patient.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "could not export patient record",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(bundle)
}

// renderError maps store errors to HTTP statuses. Adapter write failures get
// 503 so clients know the mutation may be retried.
func (h *PatientHandler) renderError(c *fiber.Ctx, err error) error {
	var validationErr *domain.ValidationError
	var persistenceErr *domain.PersistenceError
	switch {
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "patient not found"})
	case errors.As(err, &persistenceErr):
		h.logger.Printf("persistence failure: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "could not persist change, please retry"})
	default:
		h.logger.Printf("unexpected error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

// RegisterPatientRoutes mounts the patient API on the app.
func RegisterPatientRoutes(app *fiber.App, h *PatientHandler) {
	patients := app.Group("/patients")
	patients.Get("/", h.List)
	patients.Post("/", h.Create)
	patients.Get("/:id", h.Get)
	patients.Put("/:id", h.Update)
	patients.Delete("/:id", h.Delete)
	patients.Post("/:id/history", h.AddHistory)
	patients.Post("/:id/labs", h.AddLab)
	patients.Get("/:id/export", h.Export)
}
