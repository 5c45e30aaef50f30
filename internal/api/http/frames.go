package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/codefixlab/internal/sandbox"
)

// documentPolicy makes browsers load a frame document in an opaque origin
const documentPolicy = "sandbox allow-scripts"

// RunRequest is the body of a run; blank fields are allowed
type RunRequest struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

func (r RunRequest) bundle() sandbox.SourceBundle {
	return sandbox.SourceBundle{Markup: r.Markup, Style: r.Style, Script: r.Script}
}

// DispatchRequest names the element and event to deliver
type DispatchRequest struct {
	Selector string `json:"selector" binding:"required"`
	Event    string `json:"event"`
}

// CreateFrame creates an empty render target
func (h *Handlers) CreateFrame(c *gin.Context) {
	f, err := h.frames.Create()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, f.Info())
}

// ListFrames lists render targets
func (h *Handlers) ListFrames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"frames": h.frames.List(),
		"stats":  h.frames.Stats(),
	})
}

// GetFrame returns a frame and the outcome of its last run
func (h *Handlers) GetFrame(c *gin.Context) {
	f, err := h.frames.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"frame":   f.Info(),
		"outcome": f.Last(),
	})
}

// DeleteFrame destroys a frame
func (h *Handlers) DeleteFrame(c *gin.Context) {
	id := c.Param("id")
	if err := h.frames.Delete(id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "frame_id": id})
}

// RunFrame assembles the submitted sources and renders them into the frame.
// With use_defaults=true blank fields get the editor examples.
func (h *Handlers) RunFrame(c *gin.Context) {
	var req RunRequest
	if !h.bind(c, &req) {
		return
	}
	h.run(c, req.bundle())
}

// UploadSources runs sources uploaded as multipart files. Files may use any
// charset chardet recognises; they are decoded to UTF-8 before assembly.
func (h *Handlers) UploadSources(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %w", errInvalidSource, err))
		return
	}

	var b sandbox.SourceBundle
	targets := map[string]*string{"markup": &b.Markup, "style": &b.Style, "script": &b.Script}
	var uploads []Upload
	for _, field := range sourceFields {
		files := form.File[field]
		if len(files) == 0 {
			if v := form.Value[field]; len(v) > 0 {
				*targets[field] = v[0]
			}
			continue
		}
		text, cs, err := readSourceFile(files[0])
		if err != nil {
			h.fail(c, fmt.Errorf("%s: %w", field, err))
			return
		}
		*targets[field] = text
		uploads = append(uploads, Upload{Field: field, Name: files[0].Filename, Charset: cs, Bytes: int(files[0].Size)})
	}

	c.Set("uploads", uploads)
	h.run(c, b)
}

func (h *Handlers) run(c *gin.Context, b sandbox.SourceBundle) {
	if useDefaults, _ := strconv.ParseBool(c.Query("use_defaults")); useDefaults {
		b = withDefaults(b)
	}

	id := c.Param("id")
	outcome, err := h.frames.Run(c.Request.Context(), id, b)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := gin.H{
		"frame_id": id,
		"outcome":  outcome,
	}
	if uploads, ok := c.Get("uploads"); ok {
		resp["uploads"] = uploads
	}
	c.JSON(http.StatusOK, resp)
}

// ClearFrame resets a frame to an empty document
func (h *Handlers) ClearFrame(c *gin.Context) {
	id := c.Param("id")
	if err := h.frames.Clear(id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "frame_id": id})
}

// FrameDocument serves the rendered document for display in a browser
func (h *Handlers) FrameDocument(c *gin.Context) {
	f, err := h.frames.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Security-Policy", documentPolicy)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(f.HTML()))
}

// QueryFrame finds elements in the rendered document by CSS selector or XPath
func (h *Handlers) QueryFrame(c *gin.Context) {
	f, err := h.frames.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	selector, expr := c.Query("selector"), c.Query("xpath")
	var matches []sandbox.Match
	switch {
	case selector != "":
		matches = f.Query(selector)
	case expr != "":
		matches, err = f.QueryXPath(expr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "selector or xpath query parameter required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"frame_id": f.ID(),
		"count":    len(matches),
		"matches":  matches,
	})
}

// DispatchFrame delivers a DOM event inside the frame's live document
func (h *Handlers) DispatchFrame(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.Event == "" {
		req.Event = "click"
	}

	id := c.Param("id")
	outcome, err := h.frames.Dispatch(c.Request.Context(), id, req.Selector, req.Event)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"frame_id": id,
		"outcome":  outcome,
	})
}

// Defaults returns the editor examples
func (h *Handlers) Defaults(c *gin.Context) {
	c.JSON(http.StatusOK, DefaultBundle())
}
