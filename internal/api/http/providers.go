package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codefixlab/internal/providers/assistant"
	"github.com/GriffinCanCode/codefixlab/internal/providers/catalog"
	"github.com/GriffinCanCode/codefixlab/internal/providers/contact"
)

// AskRequest carries an assistant question
type AskRequest struct {
	Question string `json:"question"`
}

// Ask answers a coding question from the canned response table
func (h *Handlers) Ask(c *gin.Context) {
	var req AskRequest
	if !h.bind(c, &req) {
		return
	}

	answer, err := h.assistant.Ask(c.Request.Context(), req.Question)
	if errors.Is(err, assistant.ErrEmptyQuestion) {
		c.JSON(http.StatusBadRequest, gin.H{"error": assistant.EmptyQuestionMessage})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// AssistantLinks lists external assistants
func (h *Handlers) AssistantLinks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"links": h.assistant.Links()})
}

func (h *Handlers) kind(c *gin.Context) (catalog.Kind, bool) {
	kind, err := catalog.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return kind, true
}

// ListCatalog lists the entries of one catalog section
func (h *Handlers) ListCatalog(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	var entries interface{}
	switch kind {
	case catalog.KindErrors:
		entries = h.catalog.Errors()
	case catalog.KindProjects:
		entries = h.catalog.Projects()
	case catalog.KindMiniProjects:
		entries = h.catalog.MiniProjects()
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"entries": entries,
	})
}

// GetCatalogEntry returns one entry with its highlighted code
func (h *Handlers) GetCatalogEntry(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}

	id := c.Param("id")
	var entry interface{}
	var err error
	switch kind {
	case catalog.KindErrors:
		entry, err = h.catalog.Error(id)
	case catalog.KindProjects:
		entry, err = h.catalog.Project(id)
	case catalog.KindMiniProjects:
		entry, err = h.catalog.MiniProject(id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	code, err := h.catalog.RenderCode(kind, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":      kind,
		"entry":     entry,
		"code_html": code,
	})
}

// CatalogCode serves an entry's highlighted code as an HTML fragment
func (h *Handlers) CatalogCode(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	code, err := h.catalog.RenderCode(kind, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(code))
}

// PreviewCatalogEntry renders an entry's example into a new frame
func (h *Handlers) PreviewCatalogEntry(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	bundle, err := h.catalog.PreviewBundle(kind, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	f, outcome, err := h.frames.Preview(c.Request.Context(), bundle)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"frame_id": f.ID(),
		"outcome":  outcome,
	})
}

// DownloadProject serves a project's source as an attachment
func (h *Handlers) DownloadProject(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	if kind != catalog.KindProjects {
		c.JSON(http.StatusNotFound, gin.H{"error": "only projects can be downloaded"})
		return
	}

	file, err := h.catalog.Download(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	serveFile(c, file)
}

// DownloadArchive serves every project in one tarball
func (h *Handlers) DownloadArchive(c *gin.Context) {
	file, err := h.catalog.Archive()
	if err != nil {
		h.fail(c, err)
		return
	}
	serveFile(c, file)
}

func serveFile(c *gin.Context, file *catalog.File) {
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// SubmitContact validates and stores a contact form
func (h *Handlers) SubmitContact(c *gin.Context) {
	var form contact.Form
	if !h.bind(c, &form) {
		return
	}

	receipt, err := h.contact.Submit(c.Request.Context(), form)
	if h.formError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// ContactInbox lists stored contact messages
func (h *Handlers) ContactInbox(c *gin.Context) {
	messages := h.contact.Inbox()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(messages),
		"messages": messages,
	})
}

// Login validates the demo login form
func (h *Handlers) Login(c *gin.Context) {
	var form contact.LoginForm
	if !h.bind(c, &form) {
		return
	}

	notice, err := h.contact.Login(form)
	if h.formError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": notice})
}

// formError writes field errors as 422 and reports whether err was handled
func (h *Handlers) formError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var verr *contact.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return true
	}
	h.fail(c, err)
	return true
}
