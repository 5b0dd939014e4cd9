package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/joki_workflow/internal/storage"
	"github.com/Windi-Fikriyansyah/joki_workflow/internal/workflow"
)

type WorkHandler struct {
	Svc *workflow.Service
	Log *zap.Logger
}

func NewWorkHandler(svc *workflow.Service, log *zap.Logger) *WorkHandler {
	return &WorkHandler{Svc: svc, Log: log}
}

func (h *WorkHandler) Routes(r fiber.Router) {
	g := r.Group("/works")
	g.Get("/:id", h.Get)
	g.Get("/:id/updates", h.Updates)
	g.Patch("/:id/status", h.UpdateStatus)
	g.Post("/:id/milestones", h.UpdateMilestone)
	g.Post("/:id/completion", h.SubmitCompletion)
	g.Post("/:id/payment-details", h.SubmitPaymentDetails)
	g.Post("/:id/payment-proof", h.SubmitPaymentProof)
	g.Post("/:id/verify-payment", h.VerifyPayment)
	g.Post("/:id/deliver", h.ConfirmDelivery)
	g.Get("/:id/files/:fileType/:fileName", h.DownloadFile)
}

func (h *WorkHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	w, err := h.Svc.GetWork(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", w)
}

func (h *WorkHandler) Updates(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Svc.ListWorkUpdates(c.UserContext(), actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", u)
}

func (h *WorkHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req workflow.WorkStatusChange
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	w, err := h.Svc.Progress.SetWorkStatus(c.UserContext(), actor, id, req)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Work status updated", w)
}

func (h *WorkHandler) UpdateMilestone(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Percentage  int    `json:"percentage"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	res, err := h.Svc.Progress.UpdateMilestone(c.UserContext(), actor, id, req.Percentage, req.Description)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	msg := "Progress updated"
	if res.RequiresCompletion {
		msg = "Submit your completion evidence and payment details to finish this work"
	}
	return ok(c, fiber.StatusOK, msg, res)
}

// SubmitCompletion takes multipart: files[], project_links (repeated or a
// JSON array), submission_notes and the UPI payment details fields.
func (h *WorkHandler) SubmitCompletion(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "Expected a multipart form")
	}

	ev := workflow.Evidence{
		ProjectLinks:    formList(form, "project_links"),
		SubmissionNotes: formValue(form, "submission_notes"),
	}
	for _, fh := range form.File["files"] {
		ev.Files = append(ev.Files, storage.FromFileHeader(fh))
	}

	w, err := h.Svc.Handshake.SubmitCompletion(c.UserContext(), actor, id, ev, paymentDetails(form))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Work submitted, waiting for the client's payment", w)
}

// SubmitPaymentDetails retries the second half of a completion whose
// payment details failed.
func (h *WorkHandler) SubmitPaymentDetails(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "Expected a multipart form")
	}
	w, err := h.Svc.Handshake.SubmitPaymentDetails(c.UserContext(), actor, id, paymentDetails(form))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Payment details submitted", w)
}

func (h *WorkHandler) SubmitPaymentProof(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "Expected a multipart form")
	}

	pp := workflow.PaymentProof{
		UpiTransactionID: formValue(form, "upi_transaction_id"),
		PaymentToName:    formValue(form, "payment_to_name"),
	}
	if v := formValue(form, "payment_amount"); v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "payment_amount must be a whole number")
		}
		pp.PaymentAmount = amount
	}
	if v := formValue(form, "payment_date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return badRequest(c, "payment_date must be YYYY-MM-DD or RFC 3339")
		}
		pp.PaymentDate = &d
	}
	if fhs := form.File["payment_proof"]; len(fhs) > 0 {
		u := storage.FromFileHeader(fhs[0])
		pp.Proof = &u
	}

	w, err := h.Svc.Handshake.SubmitPaymentProof(c.UserContext(), actor, id, pp)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Payment proof submitted", w)
}

func (h *WorkHandler) VerifyPayment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		VerificationNotes string `json:"verification_notes"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	w, err := h.Svc.Handshake.VerifyPaymentAndComplete(c.UserContext(), actor, id, req.VerificationNotes)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Payment verified, work completed", w)
}

func (h *WorkHandler) ConfirmDelivery(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Note string `json:"note"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	w, err := h.Svc.Progress.ConfirmDelivery(c.UserContext(), actor, id, req.Note)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "Delivery confirmed", w)
}

func (h *WorkHandler) DownloadFile(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.Svc.Handshake.DownloadFile(c.UserContext(), actor, id, c.Params("fileType"), c.Params("fileName"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return ok(c, fiber.StatusOK, "", d)
}

func paymentDetails(form *multipart.Form) workflow.PaymentDetails {
	pd := workflow.PaymentDetails{
		UpiID:               formValue(form, "upi_id"),
		UpiPhoneNumber:      formValue(form, "upi_phone_number"),
		PaymentInstructions: formValue(form, "payment_instructions"),
	}
	if fhs := form.File["upi_qr_code"]; len(fhs) > 0 {
		u := storage.FromFileHeader(fhs[0])
		pd.UpiQrCode = &u
	}
	return pd
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// formList accepts both repeated fields and a single JSON array.
func formList(form *multipart.Form, key string) []string {
	vals := form.Value[key]
	if len(vals) == 1 && strings.HasPrefix(strings.TrimSpace(vals[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(vals[0]), &out); err == nil {
			return out
		}
	}
	return vals
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
