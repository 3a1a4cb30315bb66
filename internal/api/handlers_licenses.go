package api

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/goatkit/issueflow/internal/service"
)

// handleUploadLicense stores a license document.
//
//	@Summary	Upload license
//	@Tags		Licenses
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.LicenseInput	true	"Base64 document, expiry date and department"
//	@Success	201		{object}	Response
//	@Failure	400		{object}	apierrors.Envelope
//	@Router		/licenses/upload [post]
func (router *APIRouter) handleUploadLicense(c *gin.Context) {
	var req service.LicenseInput
	if !bindJSON(c, &req) {
		return
	}
	id, err := router.svc.Licenses.Upload(c.Request.Context(), req)
	if err != nil {
		sendError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"licenseId": id}, "License uploaded successfully")
}

func (router *APIRouter) handleListLicenses(c *gin.Context) {
	licenses, err := router.svc.Licenses.List(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, licenses, "Licenses retrieved successfully")
}

func (router *APIRouter) handleExpiringLicenses(c *gin.Context) {
	licenses, err := router.svc.Licenses.ListExpiring(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, licenses, "Expiring licenses retrieved successfully")
}

// handleGetLicenseFile streams the stored document for inline display.
func (router *APIRouter) handleGetLicenseFile(c *gin.Context) {
	id, ok := pathID(c, "id", "license ID")
	if !ok {
		return
	}
	file, err := router.svc.Licenses.Fetch(c.Request.Context(), id)
	if err != nil {
		sendError(c, err)
		return
	}
	disposition := mime.FormatMediaType("inline", map[string]string{"filename": file.FileName})
	if disposition == "" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, file.FileType, file.FileData)
}

func (router *APIRouter) handleUpdateLicense(c *gin.Context) {
	id, ok := pathID(c, "id", "license ID")
	if !ok {
		return
	}
	var req service.LicenseInput
	if !bindJSON(c, &req) {
		return
	}
	if err := router.svc.Licenses.Update(c.Request.Context(), id, req); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{}, "License updated successfully")
}

func (router *APIRouter) handleDeleteLicense(c *gin.Context) {
	id, ok := pathID(c, "id", "license ID")
	if !ok {
		return
	}
	if err := router.svc.Licenses.Delete(c.Request.Context(), id); err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, gin.H{"id": id}, "License deleted successfully")
}
