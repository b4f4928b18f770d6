package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/healthcare-api/internal/apperr"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/response"
	"github.com/harentsoaR/healthcare-api/internal/store"
)

// purgeable maps the path segment of the admin delete route to the
// collections that may be permanently deleted from.
var purgeable = map[string]string{
	"users":           models.CollectionUsers,
	"doctors":         models.CollectionDoctors,
	"patients":        models.CollectionPatients,
	"appointments":    models.CollectionAppointments,
	"prescriptions":   models.CollectionPrescriptions,
	"medical-records": models.CollectionMedicalRecords,
	"companies":       models.CollectionCompanies,
	"jobs":            models.CollectionJobs,
	"messages":        models.CollectionMessages,
	"notifications":   models.CollectionNotifications,
	"reviews":         models.CollectionReviews,
	"symptom-checks":  models.CollectionSymptomChecks,
}

// PurgeDocument is the only path that removes a document for good.
func (h *Handler) PurgeDocument(c *gin.Context) {
	collection, ok := purgeable[c.Param("collection")]
	if !ok {
		response.Fail(c, apperr.BadRequest("INVALID_COLLECTION", "Collection does not support permanent deletion"))
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := h.coll(collection).Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Fail(c, apperr.New(http.StatusNotFound, "DOCUMENT_NOT_FOUND", "Document not found"))
			return
		}
		response.Fail(c, failed("delete document", err))
		return
	}
	h.record(ctx, c, "purge", collection, id)

	response.OK(c, gin.H{"collection": collection, "id": id, "deleted": true})
}
